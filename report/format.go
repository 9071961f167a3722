package report

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders d as a compact literal such as "1h2m3s4ms",
// rounded to the millisecond. Zero-valued units are left out and at least
// one unit is always written, so a zero duration is "0ms".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Round(time.Millisecond).Milliseconds()

	units := []struct {
		suffix string
		size   int64
	}{
		{"h", int64(time.Hour / time.Millisecond)},
		{"m", int64(time.Minute / time.Millisecond)},
		{"s", int64(time.Second / time.Millisecond)},
		{"ms", 1},
	}

	var b strings.Builder
	for _, u := range units {
		n := ms / u.size
		ms -= n * u.size
		if n > 0 {
			b.WriteString(strconv.FormatInt(n, 10))
			b.WriteString(u.suffix)
		}
	}
	if b.Len() == 0 {
		return "0ms"
	}
	return b.String()
}

// CompressLines sorts and deduplicates 1-based line numbers, merges runs of
// consecutive lines into "start-end" ranges and joins everything with
// commas. An empty input gives "".
func CompressLines(lines []int) string {
	if len(lines) == 0 {
		return ""
	}
	sorted := slices.Clone(lines)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var parts []string
	start, prev := sorted[0], sorted[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, strconv.Itoa(start)+"-"+strconv.Itoa(prev))
		}
	}
	for _, n := range sorted[1:] {
		if n == prev+1 {
			prev = n
			continue
		}
		flush()
		start, prev = n, n
	}
	flush()
	return strings.Join(parts, ",")
}
