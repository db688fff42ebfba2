package harness

import (
	"fmt"
	"time"

	"github.com/pagetest/harness/logging"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	// DefaultTestTimeout applies to tests whose TestConfig does not set one.
	DefaultTestTimeout = time.Second * 2
	// DefaultHarnessTimeout is the harness-wide timeout applied unless Config
	// overrides it.
	DefaultHarnessTimeout = time.Second * 10
)

// Config is the document-level setup configuration. It is applied at
// creation and may be adjusted by Setup until the first test result is
// recorded, after which setup calls become no-ops.
type Config struct {
	// Timeout is the harness-wide timeout in milliseconds. If the run has not
	// completed naturally when it expires, every test still pending becomes
	// NOTRUN and the overall status becomes TIMEOUT.
	Timeout ldvalue.OptionalInt

	// TestTimeout is the default per-test timeout in milliseconds, for tests
	// whose own config does not set one.
	TestTimeout ldvalue.OptionalInt

	// ExplicitDone requires SignalDone to be called before the run can
	// complete, in addition to load having fired and no tests being pending.
	// Pages that create tests from asynchronous setup code need this so the
	// run does not complete before those tests exist.
	ExplicitDone bool

	// Output is an opaque handle for a rendering collaborator. The harness
	// carries it but never touches it.
	Output interface{}
}

// Harness is the coordinator for one document's test run. It owns every Test
// created during the run, the overall status, the event queue, and the
// harness-wide timer. Create one with New, drive it with Run, and discard it;
// a Harness is not reusable across runs.
type Harness struct {
	logger      logging.Logger
	queue       *eventQueue
	config      Config
	testTimeout time.Duration

	tests        []*Test
	pending      int
	loadFired    bool
	doneSignaled bool
	setupLocked  bool
	startFired   bool
	completed    bool

	status  HarnessStatus
	message ldvalue.OptionalString

	dispatcher  dispatcher
	globalTimer *Timer
	timers      []*Timer
}

// New creates a Harness with the given configuration. The harness-wide timer
// is armed immediately; Setup can re-arm it with a different value until the
// first test result locks configuration.
func New(config Config, logger logging.Logger) *Harness {
	if logger == nil {
		logger = logging.NullLogger()
	}
	h := &Harness{
		logger: logger,
		queue:  newEventQueue(),
		status: HarnessOK,
	}
	h.dispatcher.logger = logger
	h.applyConfig(config)
	h.armGlobalTimer()
	return h
}

func (h *Harness) applyConfig(config Config) {
	h.config.ExplicitDone = config.ExplicitDone
	if config.Timeout.IsDefined() {
		h.config.Timeout = config.Timeout
	}
	if config.TestTimeout.IsDefined() {
		h.config.TestTimeout = config.TestTimeout
	}
	if config.Output != nil {
		h.config.Output = config.Output
	}
	h.testTimeout = DefaultTestTimeout
	if h.config.TestTimeout.IsDefined() {
		h.testTimeout = time.Duration(h.config.TestTimeout.IntValue()) * time.Millisecond
	}
}

func (h *Harness) armGlobalTimer() {
	h.globalTimer.Cancel()
	timeout := DefaultHarnessTimeout
	if h.config.Timeout.IsDefined() {
		timeout = time.Duration(h.config.Timeout.IntValue()) * time.Millisecond
	}
	h.globalTimer = h.Schedule(timeout, h.forceHarnessTimeout)
}

// Setup applies document-level configuration. Once the first test result has
// been recorded the configuration is locked and Setup is a no-op, so a run
// cannot be reconfigured midway.
func (h *Harness) Setup(config Config) {
	if h.setupLocked {
		return
	}
	h.applyConfig(config)
	h.armGlobalTimer()
}

// SetupFunc applies config and then runs body, treating any panic from it as
// a setup fault: the overall status becomes ERROR but tests already created
// keep running.
func (h *Harness) SetupFunc(config Config, body func()) {
	h.Setup(config)
	defer func() {
		if r := recover(); r != nil {
			h.FailSetup(fmt.Errorf("%+v", r))
		}
	}()
	body()
}

// FailSetup records a fault in document setup code. The overall status
// becomes ERROR with the error's message; it does not fail or stop any
// individual test.
func (h *Harness) FailSetup(err error) {
	h.status = HarnessError
	h.message = ldvalue.NewOptionalString(err.Error())
}

// Output returns the opaque rendering handle from the configuration.
func (h *Harness) Output() interface{} { return h.config.Output }

// Test creates and immediately executes a synchronous test. The body runs
// under the step executor; if it returns normally and the test is not already
// complete, the test passes.
func (h *Harness) Test(name string, config TestConfig, body func(*Test)) *Test {
	t := h.newTest(name, config)
	t.Step(func() { body(t) })
	t.Done()
	return t
}

// AsyncTest creates a test that will complete later, from steps driven by
// timers or external callbacks. The test is live immediately but its timer is
// not armed until its first step runs.
func (h *Harness) AsyncTest(name string, config TestConfig) *Test {
	t := h.newTest(name, config)
	t.phase = phaseRunning
	return t
}

// register appends the test to the run's ordered list. The first registration
// ever fires the start event.
func (h *Harness) register(t *Test) {
	h.tests = append(h.tests, t)
	h.pending++
	if !h.startFired {
		h.startFired = true
		h.dispatcher.fireStart()
	}
}

// report records a test's completion. It runs exactly once per test, fires
// the result event, and then re-evaluates whether the whole run is done.
func (h *Harness) report(t *Test) {
	h.setupLocked = true
	h.pending--
	h.logger.Printf("test %q completed: %s", t.name, t.status)
	h.dispatcher.fireResult(t.Result())
	h.evaluateCompletion()
}

// SignalLoad is called by the surrounding collaborator when the document's
// load signal arrives. It is one of the conditions for natural completion.
func (h *Harness) SignalLoad() {
	if h.loadFired {
		return
	}
	h.loadFired = true
	h.evaluateCompletion()
}

// SignalDone is the explicit completion signal. It only matters when the
// configuration set ExplicitDone.
func (h *Harness) SignalDone() {
	if h.doneSignaled {
		return
	}
	h.doneSignaled = true
	h.evaluateCompletion()
}

// evaluateCompletion applies the completion rule: no tests pending, load
// fired, and, if configured, the explicit done signal received. The first
// time it holds, the run completes; afterwards it is a no-op.
func (h *Harness) evaluateCompletion() {
	if h.completed {
		return
	}
	if h.pending != 0 || !h.loadFired {
		return
	}
	if h.config.ExplicitDone && !h.doneSignaled {
		return
	}
	h.complete()
}

// forceHarnessTimeout fires when the harness-wide timer expires before
// natural completion. Every test still live becomes NOTRUN, distinguishing
// "the harness gave up on everything" from a test's own TIMEOUT, and the run
// completes with overall status TIMEOUT.
func (h *Harness) forceHarnessTimeout() {
	if h.completed {
		return
	}
	for _, t := range h.tests {
		t.abandon()
	}
	h.pending = 0
	h.status = HarnessTimeout
	h.message = ldvalue.NewOptionalString("test harness timed out")
	h.complete()
}

func (h *Harness) complete() {
	h.completed = true
	h.globalTimer.Cancel()
	h.logger.Printf("run complete: %s", h.status)
	h.dispatcher.fireComplete(h.snapshotTests(), h.statusReport())
}

// Completed reports whether the run has reached its terminal state.
func (h *Harness) Completed() bool { return h.completed }

func (h *Harness) snapshotTests() []TestResult {
	results := make([]TestResult, 0, len(h.tests))
	for _, t := range h.tests {
		results = append(results, t.Result())
	}
	return results
}

func (h *Harness) statusReport() StatusReport {
	return StatusReport{Status: h.status, Message: h.message}
}

// Results returns the run's final data set: one snapshot per created test in
// creation order, plus the overall status.
func (h *Harness) Results() Results {
	return Results{Tests: h.snapshotTests(), Status: h.statusReport()}
}

// AddStartCallback registers an observer for the start event, which fires
// when the first test is registered.
func (h *Harness) AddStartCallback(cb func()) {
	h.dispatcher.startCallbacks = append(h.dispatcher.startCallbacks, cb)
}

// AddResultCallback registers an observer that receives each test's snapshot
// as the test completes.
func (h *Harness) AddResultCallback(cb func(TestResult)) {
	h.dispatcher.resultCallbacks = append(h.dispatcher.resultCallbacks, cb)
}

// AddCompletionCallback registers an observer that receives the full ordered
// snapshot list and the overall status when the run completes. The complete
// event fires at most once per run.
func (h *Harness) AddCompletionCallback(cb func([]TestResult, StatusReport)) {
	h.dispatcher.completionCallbacks = append(h.dispatcher.completionCallbacks, cb)
}

// AddSink attaches an external event sink, such as a bridge to an ancestor
// execution context. Having no sink is normal; sink failures are swallowed.
func (h *Harness) AddSink(s Sink) {
	h.dispatcher.sinks = append(h.dispatcher.sinks, s)
}

// Post enqueues f on the run's event queue. It is the only harness entry
// point that may be called from another goroutine; everything else must run
// on the goroutine pumping the run.
func (h *Harness) Post(f func()) {
	h.queue.push(f)
}

// Run executes one document: the script runs first on the calling goroutine
// (creating tests, registering callbacks, scheduling work), then the load
// signal fires, then the event queue is pumped until the run completes,
// naturally or by harness timeout. A panic out of the script is recorded as a
// setup fault; tests the script already created still run.
func (h *Harness) Run(script func(*Harness)) Results {
	if script != nil {
		h.runScript(script)
	}
	h.SignalLoad()
	h.pump()
	h.teardown()
	return h.Results()
}

func (h *Harness) runScript(script func(*Harness)) {
	defer func() {
		if r := recover(); r != nil {
			h.FailSetup(fmt.Errorf("uncaught error in document script: %+v", r))
		}
	}()
	script(h)
}

func (h *Harness) pump() {
	for !h.completed {
		f, ok := h.queue.pop()
		if !ok {
			h.queue.awaitWake()
			continue
		}
		f()
	}
}

// teardown cancels every timer still pending and clears the observer sets.
// The run's results remain available through Results.
func (h *Harness) teardown() {
	for _, t := range h.timers {
		t.Cancel()
	}
	h.timers = nil
	h.dispatcher.teardown()
}
