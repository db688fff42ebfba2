package harness

import (
	"github.com/pagetest/harness/logging"
)

// Sink receives the harness's three lifecycle events in an ancestor or
// otherwise external execution context. Sinks fire after all locally
// registered callbacks for the same event. A sink returning an error, or
// panicking, never affects test state, local callbacks, or completion; the
// failure is logged and dropped.
type Sink interface {
	Start() error
	Result(result TestResult) error
	Complete(results []TestResult, status StatusReport) error
}

// dispatcher owns the three append-only observer lists plus the sink list.
// Each event's observers fire in registration order; a panicking observer
// does not prevent later observers or sinks from running.
type dispatcher struct {
	logger              logging.Logger
	startCallbacks      []func()
	resultCallbacks     []func(TestResult)
	completionCallbacks []func([]TestResult, StatusReport)
	sinks               []Sink
}

func (d *dispatcher) fireStart() {
	for _, cb := range d.startCallbacks {
		cb := cb
		d.safely("start", func() error { cb(); return nil })
	}
	for _, s := range d.sinks {
		s := s
		d.safely("start", func() error { return s.Start() })
	}
}

func (d *dispatcher) fireResult(result TestResult) {
	for _, cb := range d.resultCallbacks {
		cb := cb
		d.safely("result", func() error { cb(result); return nil })
	}
	for _, s := range d.sinks {
		s := s
		d.safely("result", func() error { return s.Result(result) })
	}
}

func (d *dispatcher) fireComplete(results []TestResult, status StatusReport) {
	for _, cb := range d.completionCallbacks {
		cb := cb
		d.safely("complete", func() error { cb(results, status); return nil })
	}
	for _, s := range d.sinks {
		s := s
		d.safely("complete", func() error { return s.Complete(results, status) })
	}
}

// safely isolates one observer or sink invocation: panics are recovered and
// errors logged, so one misbehaving observer cannot suppress the rest.
func (d *dispatcher) safely(event string, f func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("recovered panic from %s callback: %+v", event, r)
		}
	}()
	if err := f(); err != nil {
		d.logger.Printf("error from %s event sink: %s", event, err)
	}
}

func (d *dispatcher) teardown() {
	d.startCallbacks = nil
	d.resultCallbacks = nil
	d.completionCallbacks = nil
	d.sinks = nil
}
