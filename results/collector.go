package results

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ansel1/llmtest/engine"
	"github.com/ansel1/llmtest/parser"
)

// Collector processes engine events and keeps the state of the run.
//
// The Collector is the single consumer of engine.Event and the single source
// of truth for test state. Subscribers get change notifications; a
// subscriber that falls behind misses notifications rather than stalling
// the collector.
type Collector struct {
	run  *Run
	mu   sync.RWMutex
	errs []error

	subscribers []chan Event
	subMu       sync.Mutex
	closed      bool

	log *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Collector) {
		c.log = log
	}
}

// NewCollector creates a new result collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		run: NewRun(),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe returns a channel that receives change notifications. It is
// closed when the input is exhausted.
func (c *Collector) Subscribe() <-chan Event {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	ch := make(chan Event, 100)
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

func (c *Collector) emit(evts ...Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, evt := range evts {
		for _, sub := range c.subscribers {
			select {
			case sub <- evt:
			default:
			}
		}
	}
}

func (c *Collector) closeSubscribers() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, sub := range c.subscribers {
		close(sub)
	}
}

// ProcessEvents consumes engine events until EventComplete or until the
// channel is closed, then finishes the run.
func (c *Collector) ProcessEvents(events <-chan engine.Event) {
	defer c.Finish()

	for evt := range events {
		switch evt.Type {
		case engine.EventRawLine:
			c.emit(Event{Type: EventRawOutput, Output: string(evt.RawLine)})

		case engine.EventTest:
			c.emit(c.handleTestEvent(evt.TestEvent)...)

		case engine.EventError:
			c.log.Warn("input error", zap.Error(evt.Error))
			c.mu.Lock()
			c.errs = append(c.errs, evt.Error)
			c.mu.Unlock()

		case engine.EventComplete:
			return
		}
	}
}

// Errors returns the input errors seen so far.
func (c *Collector) Errors() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]error(nil), c.errs...)
}

// handleTestEvent updates the run and returns the notifications to send
// once the lock is released.
func (c *Collector) handleTestEvent(event parser.TestEvent) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	run := c.run
	if !event.Time.IsZero() {
		if run.StartTime.IsZero() || event.Time.Before(run.StartTime) {
			run.StartTime = event.Time
		}
		if event.Time.After(run.EndTime) {
			run.EndTime = event.Time
		}
	}

	if event.Package == "" {
		return c.handleBuildEvent(run, event)
	}

	pkg, exists := run.Packages[event.Package]
	if !exists {
		pkg = &PackageResult{Name: event.Package}
		run.Packages[event.Package] = pkg
		run.PackageOrder = append(run.PackageOrder, event.Package)
		run.RunningPkgs++
	} else if !pkg.Running() && !isFinal(event.Action) {
		// a rerun tool started the package again
		pkg.Status = ""
		run.RunningPkgs++
	}

	if event.Test == "" {
		return c.handlePackageEvent(run, pkg, event)
	}
	return c.handleTestLevelEvent(run, pkg, event)
}

func (c *Collector) handleBuildEvent(run *Run, event parser.TestEvent) []Event {
	switch event.Action {
	case parser.ActionBuildOutput:
		output := strings.TrimRight(event.Output, "\n")
		if output == "" {
			return nil
		}
		if _, seen := run.BuildOutput[event.ImportPath]; !seen {
			run.BuildOrder = append(run.BuildOrder, event.ImportPath)
		}
		run.BuildOutput[event.ImportPath] = append(run.BuildOutput[event.ImportPath], output)
		return []Event{{Type: EventBuildOutput, Output: output}}

	case parser.ActionBuildFail:
		c.log.Debug("build failed", zap.String("importPath", event.ImportPath))
	}
	return nil
}

func (c *Collector) handlePackageEvent(run *Run, pkg *PackageResult, event parser.TestEvent) []Event {
	switch event.Action {
	case parser.ActionOutput:
		output := strings.TrimRight(event.Output, "\n")
		if output == "" {
			return nil
		}
		pkg.Output = append(pkg.Output, output)
		if isTimeoutPanic(output) {
			run.TimedOut = true
		}
		return []Event{packageUpdated(pkg.Name)}

	case parser.ActionPass, parser.ActionFail, parser.ActionSkip:
		pkg.Status = packageStatus(event.Action)
		pkg.Elapsed = seconds(event.Elapsed)
		if event.FailedBuild != "" {
			pkg.FailedBuild = event.FailedBuild
		}
		run.RunningPkgs--
		return []Event{packageUpdated(pkg.Name)}
	}
	return nil
}

func (c *Collector) handleTestLevelEvent(run *Run, pkg *PackageResult, event parser.TestEvent) []Event {
	test := run.Test(event.Package, event.Test)
	if test == nil {
		test = &TestResult{Package: event.Package, Name: event.Test}
		run.TestResults[testKey(event.Package, event.Test)] = test
		pkg.TestOrder = append(pkg.TestOrder, event.Test)
		if p := parentName(event.Test); p != "" {
			if parent := run.Test(event.Package, p); parent != nil {
				parent.Subtests = append(parent.Subtests, event.Test)
			}
		}
	}

	switch event.Action {
	case parser.ActionRun:
		startAttempt(test)
		run.LastStarted = event.Test

	case parser.ActionOutput:
		output := strings.TrimRight(event.Output, "\n")
		if output == "" {
			return nil
		}
		a := test.Last()
		if a == nil {
			a = startAttempt(test)
		}
		a.Output = append(a.Output, output)
		if isTimeoutPanic(output) {
			run.TimedOut = true
		}

	case parser.ActionPass, parser.ActionFail, parser.ActionSkip:
		a := test.Last()
		if a == nil || a.Done() {
			// streams from older toolchains have no run events
			a = startAttempt(test)
		}
		a.Status = Status(event.Action)
		a.Elapsed = seconds(event.Elapsed)
		if test.Leaf() {
			switch a.Status {
			case StatusPass:
				run.Counts.Passed++
			case StatusFail:
				run.Counts.Failed++
			case StatusSkip:
				run.Counts.Skipped++
			}
		}

	default:
		return nil
	}
	return []Event{testUpdated(event.Package, event.Test)}
}

func startAttempt(t *TestResult) *Attempt {
	if a := t.Last(); a != nil && !a.Done() {
		return a
	}
	a := &Attempt{Status: StatusRunning}
	t.Attempts = append(t.Attempts, a)
	return a
}

// Finish marks packages that never reported a final status as interrupted
// and closes subscriber channels. It is safe to call more than once.
func (c *Collector) Finish() {
	c.mu.Lock()
	run := c.run
	for _, name := range run.PackageOrder {
		pkg := run.Packages[name]
		if pkg.Running() {
			pkg.Status = "interrupted"
			run.Interrupted = true
			if !run.EndTime.IsZero() && !run.StartTime.IsZero() {
				pkg.Elapsed = run.EndTime.Sub(run.StartTime)
			}
			c.log.Debug("package did not finish", zap.String("package", name))
		}
	}
	run.RunningPkgs = 0
	c.mu.Unlock()

	c.emit(Event{Type: EventRunFinished})
	c.closeSubscribers()
}

// WithRun executes fn with the run while holding the read lock. fn must
// not keep references to the run's maps or slices.
func (c *Collector) WithRun(fn func(*Run)) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fn(c.run)
}

// Counts returns the live totals.
func (c *Collector) Counts() Counts {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.run.Counts
}

func isFinal(action string) bool {
	switch action {
	case parser.ActionPass, parser.ActionFail, parser.ActionSkip:
		return true
	}
	return false
}

func packageStatus(action string) string {
	switch action {
	case parser.ActionPass:
		return "ok"
	case parser.ActionFail:
		return "FAIL"
	default:
		return "?"
	}
}

func isTimeoutPanic(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "panic: test timed out")
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
