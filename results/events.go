package results

// EventType identifies the type of event emitted by the Collector.
type EventType string

const (
	EventPackageUpdated EventType = "package_updated" // A package's state changed
	EventTestUpdated    EventType = "test_updated"    // A test's state changed
	EventRawOutput      EventType = "raw_output"      // Raw non-test output
	EventBuildOutput    EventType = "build_output"    // Compiler output
	EventRunFinished    EventType = "run_finished"    // The input stream is exhausted
)

// Event is a change notification sent to subscribers.
type Event struct {
	Type        EventType
	PackageName string // For EventPackageUpdated, EventTestUpdated
	TestName    string // For EventTestUpdated
	Output      string // For EventRawOutput, EventBuildOutput
}

func packageUpdated(pkg string) Event {
	return Event{Type: EventPackageUpdated, PackageName: pkg}
}

func testUpdated(pkg, test string) Event {
	return Event{Type: EventTestUpdated, PackageName: pkg, TestName: test}
}
