package report

// GroupFailures partitions failures into regular ones and groups of
// parameterized failures sharing a location.
//
// Only failures marked Parameterized are grouped; two unmarked failures at
// the same location stay separate. Groups are ordered by the first
// occurrence of their location and members keep their input order.
func GroupFailures(failures []Failure) (regular []Failure, groups []Group) {
	index := make(map[Location]int)
	for _, f := range failures {
		if !f.Parameterized {
			regular = append(regular, f)
			continue
		}
		i, ok := index[f.At]
		if !ok {
			i = len(groups)
			index[f.At] = i
			groups = append(groups, Group{At: f.At})
		}
		groups[i].Details = append(groups[i].Details, f.Detail)
	}
	return regular, groups
}

// FailingEntry is one entry of the failing section: a single failure, or a
// group of parameterized failures when Group is non-nil.
type FailingEntry struct {
	At     Location
	Detail FailureDetail
	Group  []FailureDetail
}

// failingEntries merges the grouper's output back into one ordered list.
// A group takes the position of its first member. Groups with a single
// member are written as plain failures.
func failingEntries(failures []Failure) []FailingEntry {
	_, groups := GroupFailures(failures)
	byLoc := make(map[Location]Group, len(groups))
	for _, g := range groups {
		byLoc[g.At] = g
	}

	var entries []FailingEntry
	placed := make(map[Location]bool, len(groups))
	for _, f := range failures {
		if !f.Parameterized {
			entries = append(entries, FailingEntry{At: f.At, Detail: f.Detail})
			continue
		}
		if placed[f.At] {
			continue
		}
		placed[f.At] = true
		g := byLoc[f.At]
		if len(g.Details) == 1 {
			entries = append(entries, FailingEntry{At: g.At, Detail: g.Details[0]})
			continue
		}
		entries = append(entries, FailingEntry{At: g.At, Group: g.Details})
	}
	return entries
}
