package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ansel1/llmtest/parser"
)

// EventType identifies the type of event emitted by the engine
type EventType string

const (
	EventRawLine  EventType = "raw"      // Non-JSON line from input
	EventTest     EventType = "test"     // Parsed test event from go test -json
	EventError    EventType = "error"    // Error occurred during processing
	EventComplete EventType = "complete" // Input stream finished
)

// Event represents a single event emitted by the engine
type Event struct {
	Type      EventType
	RawLine   []byte           // Populated for EventRawLine
	TestEvent parser.TestEvent // Populated for EventTest
	Error     error            // Populated for EventError
}

const maxLineSize = 1024 * 1024

// Engine turns raw input into events.
// It keeps no state about tests.
type Engine struct {
	rawWriter  io.Writer
	jsonWriter io.Writer
	log        *zap.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithRawOutput copies every input line to w.
func WithRawOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.rawWriter = w
	}
}

// WithJSONOutput copies every line that parsed as a test event to w.
func WithJSONOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.jsonWriter = w
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates a new event processing engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stream reads from input, parses lines, and emits events via channel.
// The last event is always EventComplete, after which the channel is
// closed. Cancelling ctx stops reading; the complete event is still sent
// if a receiver is ready.
func (e *Engine) Stream(ctx context.Context, input io.Reader) <-chan Event {
	events := make(chan Event, 100)

	go func() {
		defer close(events)

		send := func(evt Event) bool {
			select {
			case events <- evt:
				return true
			case <-ctx.Done():
				return false
			}
		}

		tee := &teeWriters{raw: e.rawWriter, json: e.jsonWriter}
		rawLines, malformed := 0, 0

		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}
			line := scanner.Bytes()
			tee.writeRaw(line)

			testEvent, err := parser.ParseEvent(line)
			if err != nil {
				rawLines++
				if bytes.HasPrefix(bytes.TrimSpace(line), []byte("{")) {
					malformed++
					e.log.Debug("line looks like JSON but is not a test event", zap.Error(err))
				}
				// scanner reuses its buffer
				lineCopy := make([]byte, len(line))
				copy(lineCopy, line)
				if !send(Event{Type: EventRawLine, RawLine: lineCopy}) {
					return
				}
				continue
			}

			tee.writeJSON(line)
			if !send(Event{Type: EventTest, TestEvent: testEvent}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if !send(Event{Type: EventError, Error: fmt.Errorf("reading input: %w", err)}) {
				return
			}
		}
		if err := tee.err; err != nil {
			if !send(Event{Type: EventError, Error: err}) {
				return
			}
		}

		e.log.Debug("input consumed", zap.Int("rawLines", rawLines), zap.Int("malformed", malformed))
		send(Event{Type: EventComplete})
	}()

	return events
}

// teeWriters copies lines to the optional output files. The first write
// error stops further copying.
type teeWriters struct {
	raw, json io.Writer
	err       error
}

func (t *teeWriters) writeRaw(line []byte) {
	t.write(t.raw, line, "raw output")
}

func (t *teeWriters) writeJSON(line []byte) {
	t.write(t.json, line, "JSON output")
}

func (t *teeWriters) write(w io.Writer, line []byte, what string) {
	if w == nil || t.err != nil {
		return
	}
	if _, err := w.Write(line); err != nil {
		t.err = fmt.Errorf("writing %s: %w", what, err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		t.err = fmt.Errorf("writing %s: %w", what, err)
	}
}
