// Package harness implements the test lifecycle and completion-detection
// engine for single-document test runs: test registration, synchronous and
// asynchronous test execution, per-test and harness-wide timeouts, and the
// rule that decides when a whole document's tests are done.
//
// The execution model is single-threaded and cooperative. All test bodies,
// steps, timer callbacks and completion evaluation run on the one goroutine
// that calls Harness.Run; there is no preemption and no locking around test
// state. Code running on other goroutines (event sources, servers, anything
// that wants to invoke a StepFunc later) must deliver its work through
// Harness.Post, which enqueues it on the run's single event queue.
package harness
