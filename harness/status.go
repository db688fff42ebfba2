package harness

import (
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// TestStatus is the terminal status of a single test. It is only meaningful
// once the test has completed.
type TestStatus int

const (
	// StatusNotRun means the test never ran to completion on its own; it is
	// assigned only when the harness-wide timeout gives up on the run.
	StatusNotRun TestStatus = iota
	StatusPass
	StatusFail
	// StatusTimeout means this specific test's own timer expired before the
	// test completed.
	StatusTimeout
)

func (s TestStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusNotRun:
		return "NOTRUN"
	default:
		return fmt.Sprintf("TestStatus(%d)", int(s))
	}
}

// HarnessStatus is the overall status of one document run.
type HarnessStatus int

const (
	HarnessOK HarnessStatus = iota
	// HarnessError means document setup code failed. Individual tests may
	// still have run and produced their own results.
	HarnessError
	// HarnessTimeout means the harness-wide timer expired before the run
	// completed naturally.
	HarnessTimeout
)

func (s HarnessStatus) String() string {
	switch s {
	case HarnessOK:
		return "OK"
	case HarnessError:
		return "ERROR"
	case HarnessTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("HarnessStatus(%d)", int(s))
	}
}

// TestResult is an immutable snapshot of a completed test, as delivered to
// result and completion callbacks and to sinks.
type TestResult struct {
	Name    string
	Status  TestStatus
	Message ldvalue.OptionalString
}

func (r TestResult) String() string {
	if r.Message.IsDefined() {
		return fmt.Sprintf("[%s] %s: %s", r.Status, r.Name, r.Message.StringValue())
	}
	return fmt.Sprintf("[%s] %s", r.Status, r.Name)
}

// StatusReport is a snapshot of the overall harness status.
type StatusReport struct {
	Status  HarnessStatus
	Message ldvalue.OptionalString
}

// Results is everything a finished run produced: one entry per created test,
// in creation order, plus the overall status.
type Results struct {
	Tests  []TestResult
	Status StatusReport
}

// OK reports whether the run as a whole succeeded: harness status OK and
// every test passed.
func (r Results) OK() bool {
	if r.Status.Status != HarnessOK {
		return false
	}
	for _, t := range r.Tests {
		if t.Status != StatusPass {
			return false
		}
	}
	return true
}
