package parser

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNoAction is returned for JSON lines that are not test events.
var ErrNoAction = errors.New("not a test event: missing Action")

// Actions reported by `go test -json`.
const (
	ActionStart       = "start"
	ActionRun         = "run"
	ActionPause       = "pause"
	ActionCont        = "cont"
	ActionPass        = "pass"
	ActionFail        = "fail"
	ActionSkip        = "skip"
	ActionOutput      = "output"
	ActionBench       = "bench"
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

// TestEvent represents a single event from `go test -json` output
type TestEvent struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	Test        string    `json:"Test,omitempty"`
	Output      string    `json:"Output,omitempty"`
	Elapsed     float64   `json:"Elapsed,omitempty"`
	Source      string    `json:"Source,omitempty"`
	ImportPath  string    `json:"ImportPath,omitempty"`
	FailedBuild string    `json:"FailedBuild,omitempty"`
}

// ParseEvent parses a single line of JSON from `go test -json` output.
// Lines that are valid JSON but carry no action are rejected, so plain
// JSON printed by a test is treated as raw output.
func ParseEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, ErrNoAction
	}
	return event, nil
}
