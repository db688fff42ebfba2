package harness

import (
	"fmt"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// TestConfig is the per-test configuration captured when a test is created.
type TestConfig struct {
	// Timeout is this test's own timeout in milliseconds. If undefined, the
	// harness default applies. An async test's timer is armed when its first
	// step runs, not when the test is created.
	Timeout ldvalue.OptionalInt
}

type testPhase int

const (
	phaseNotStarted testPhase = iota
	phaseRunning
	phaseComplete
)

const timedOutMessage = "Test timed out"

// Test is one unit of verification with a single terminal status. Tests are
// created through Harness.Test or Harness.AsyncTest, never directly; creation
// registers the test with the harness before any of its code runs, so a
// failure in the very first step is still attributable to a known test.
//
// A test moves forward through its phases exactly once. Once complete, its
// status and message never change, and any further Step, Done or timer
// activity is a no-op.
type Test struct {
	h       *Harness
	name    string
	config  TestConfig
	phase   testPhase
	status  TestStatus
	message ldvalue.OptionalString
	timeout time.Duration
	timer   *Timer
}

func (h *Harness) newTest(name string, config TestConfig) *Test {
	timeout := h.testTimeout
	if config.Timeout.IsDefined() {
		timeout = time.Duration(config.Timeout.IntValue()) * time.Millisecond
	}
	t := &Test{
		h:       h,
		name:    name,
		config:  config,
		phase:   phaseNotStarted,
		status:  StatusNotRun,
		timeout: timeout,
	}
	h.register(t)
	return t
}

func (t *Test) Name() string { return t.name }

// Config returns the configuration snapshot captured when the test was
// created.
func (t *Test) Config() TestConfig { return t.config }

// Completed reports whether the test has reached its terminal state.
func (t *Test) Completed() bool { return t.phase == phaseComplete }

// Result returns a snapshot of the test's name, status and message. The
// status is only meaningful once Completed reports true.
func (t *Test) Result() TestResult {
	return TestResult{Name: t.name, Status: t.status, Message: t.message}
}

// Step executes body under the harness's failure-catching wrapper. If the
// test is already complete this is a no-op and body is not invoked, which
// defends against callbacks that fire after completion or timeout. The first
// step to run arms the test's timer.
func (t *Test) Step(body func()) {
	if t.phase == phaseComplete {
		return
	}
	t.phase = phaseRunning
	if t.timer == nil {
		t.timer = t.h.Schedule(t.timeout, t.forceTimeout)
	}
	t.execStep(body)
}

// StepFunc returns a reusable callback that performs Step(body) each time it
// is invoked. It adapts a test's step execution to event-driven call sites:
// the call site holds a plain func() and needs no knowledge of the test.
// The returned function must be invoked on the harness goroutine; callbacks
// arriving from elsewhere go through Harness.Post.
func (t *Test) StepFunc(body func()) func() {
	return func() { t.Step(body) }
}

// Done marks the test complete with status PASS, unless a failure or timeout
// already completed it. Calling Done again is a no-op.
func (t *Test) Done() {
	if t.phase == phaseComplete {
		return
	}
	t.status = StatusPass
	t.message = ldvalue.OptionalString{}
	t.completeNow()
}

// execStep invokes body and converts any panic into this test's terminal
// failure. An *AssertionError carries its own message; anything else gets a
// generic wrapped message. Either way the failure stops at this boundary and
// never propagates to the surrounding document code.
func (t *Test) execStep(body func()) {
	defer func() {
		r := recover()
		if r == nil || t.phase == phaseComplete {
			return
		}
		if ae, ok := r.(*AssertionError); ok {
			t.fail(ae.Message)
		} else {
			t.fail(fmt.Sprintf("unexpected panic in test body: %+v", r))
		}
	}()
	body()
}

func (t *Test) fail(message string) {
	t.status = StatusFail
	t.message = ldvalue.NewOptionalString(message)
	t.completeNow()
}

// forceTimeout is the timer-fired transition, the only one that happens
// without user code calling into the test.
func (t *Test) forceTimeout() {
	if t.phase == phaseComplete {
		return
	}
	t.status = StatusTimeout
	t.message = ldvalue.NewOptionalString(timedOutMessage)
	t.completeNow()
}

// abandon is the harness-wide-timeout transition: the run gave up before this
// test finished, which is NOTRUN rather than TIMEOUT. No result event fires;
// the test only appears in the completion snapshot.
func (t *Test) abandon() {
	if t.phase == phaseComplete {
		return
	}
	t.status = StatusNotRun
	t.message = ldvalue.OptionalString{}
	t.phase = phaseComplete
	t.timer.Cancel()
}

func (t *Test) completeNow() {
	t.phase = phaseComplete
	t.timer.Cancel()
	t.h.report(t)
}
