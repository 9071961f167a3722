package engine

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/ansel1/llmtest/parser"
)

// ReplayReader re-plays a recorded `go test -json` stream, pausing between
// lines as long as the recorded event timestamps say, scaled by rate.
// A rate of 0 replays instantly; 0.5 replays at twice the recorded speed.
type ReplayReader struct {
	src   *bufio.Reader
	rate  float64
	sleep func(time.Duration)

	pending  []byte
	lastTime time.Time
	done     bool
}

// NewReplayReader wraps r. Lines are read lazily, one at a time.
func NewReplayReader(r io.Reader, rate float64) *ReplayReader {
	return &ReplayReader{
		src:   bufio.NewReaderSize(r, 64*1024),
		rate:  rate,
		sleep: time.Sleep,
	}
}

// Read implements io.Reader.
func (r *ReplayReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		if err := r.next(); err != nil {
			return 0, err
		}
		if len(r.pending) == 0 {
			return 0, io.EOF
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// next loads the following line into pending, waiting first if the line is
// a timestamped event.
func (r *ReplayReader) next() error {
	line, err := r.src.ReadBytes('\n')
	if errors.Is(err, io.EOF) {
		r.done = true
		if len(line) == 0 {
			return nil
		}
		line = append(line, '\n')
	} else if err != nil {
		return err
	}

	if event, perr := parser.ParseEvent(line); perr == nil && !event.Time.IsZero() {
		r.wait(event.Time)
	}
	r.pending = line
	return nil
}

func (r *ReplayReader) wait(at time.Time) {
	defer func() { r.lastTime = at }()
	if r.rate <= 0 || r.lastTime.IsZero() {
		return
	}
	if gap := at.Sub(r.lastTime); gap > 0 {
		r.sleep(time.Duration(float64(gap) * r.rate))
	}
}
