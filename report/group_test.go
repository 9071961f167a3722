package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupFailures(t *testing.T) {
	math := Location{Path: "math_test.go", Line: 16, Column: 17}
	other := Location{Path: "math_test.go", Line: 40}

	failures := []Failure{
		{At: math, Test: "TestAdd/1", Detail: Assertion{Expected: "4", Got: "5"}, Parameterized: true},
		{At: other, Test: "TestDiv", Detail: ErrorDetail{Message: "division by zero"}},
		{At: other, Test: "TestMul/a", Detail: Assertion{Expected: "1", Got: "2"}, Parameterized: true},
		{At: math, Test: "TestAdd/2", Detail: Assertion{Expected: "9", Got: "10"}, Parameterized: true},
		{At: other, Test: "TestDivAgain", Detail: ErrorDetail{Message: "again"}},
	}

	regular, groups := GroupFailures(failures)

	assert.Equal(t, []Failure{failures[1], failures[4]}, regular)
	assert.Equal(t, []Group{
		{At: math, Details: []FailureDetail{
			Assertion{Expected: "4", Got: "5"},
			Assertion{Expected: "9", Got: "10"},
		}},
		{At: other, Details: []FailureDetail{
			Assertion{Expected: "1", Got: "2"},
		}},
	}, groups)
}

func TestGroupFailuresNeverMergesDifferentLocations(t *testing.T) {
	failures := []Failure{
		{At: Location{Path: "a_test.go", Line: 1}, Detail: ErrorDetail{Message: "x"}, Parameterized: true},
		{At: Location{Path: "a_test.go", Line: 1, Column: 2}, Detail: ErrorDetail{Message: "y"}, Parameterized: true},
		{At: Location{Path: "b_test.go", Line: 1}, Detail: ErrorDetail{Message: "z"}, Parameterized: true},
	}

	regular, groups := GroupFailures(failures)
	assert.Empty(t, regular)
	assert.Len(t, groups, 3)
	for _, g := range groups {
		assert.Len(t, g.Details, 1)
	}
}

func TestFailingEntriesKeepsFirstOccurrencePosition(t *testing.T) {
	p := Location{Path: "p_test.go", Line: 5}
	q := Location{Path: "q_test.go", Line: 8}
	r := Location{Path: "r_test.go", Line: 2}

	entries := failingEntries([]Failure{
		{At: q, Detail: ErrorDetail{Message: "first"}},
		{At: p, Detail: ErrorDetail{Message: "p1"}, Parameterized: true},
		{At: r, Detail: ErrorDetail{Message: "lonely"}, Parameterized: true},
		{At: q, Detail: ErrorDetail{Message: "second"}},
		{At: p, Detail: ErrorDetail{Message: "p2"}, Parameterized: true},
	})

	assert.Equal(t, []FailingEntry{
		{At: q, Detail: ErrorDetail{Message: "first"}},
		{At: p, Group: []FailureDetail{ErrorDetail{Message: "p1"}, ErrorDetail{Message: "p2"}}},
		{At: r, Detail: ErrorDetail{Message: "lonely"}},
		{At: q, Detail: ErrorDetail{Message: "second"}},
	}, entries)
}
