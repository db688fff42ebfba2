package docfile

import (
	"fmt"
	"time"

	"github.com/pagetest/harness/harness"
	"github.com/pagetest/harness/logging"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// RunOptions configures one document run.
type RunOptions struct {
	// Filter selects which of the document's tests to create; nil means all.
	// A filtered-out test is never registered, so it does not appear in the
	// results at all.
	Filter func(name string) bool

	// Logger receives the harness's debug output.
	Logger logging.Logger

	// Sinks are attached to the harness before the run starts.
	Sinks []harness.Sink

	// OnStart, OnResult and OnComplete, when non-nil, are registered as
	// harness callbacks. Used by the CLI's console reporter.
	OnStart    func()
	OnResult   func(harness.TestResult)
	OnComplete func([]harness.TestResult, harness.StatusReport)
}

// Run executes a parsed document and returns the harness results.
func Run(doc *Document, opts RunOptions) harness.Results {
	h := harness.New(doc.Settings.harnessConfig(), opts.Logger)
	if opts.OnStart != nil {
		h.AddStartCallback(opts.OnStart)
	}
	if opts.OnResult != nil {
		h.AddResultCallback(opts.OnResult)
	}
	if opts.OnComplete != nil {
		h.AddCompletionCallback(opts.OnComplete)
	}
	for _, s := range opts.Sinks {
		h.AddSink(s)
	}
	return h.Run(func(h *harness.Harness) {
		for _, test := range doc.Tests {
			if opts.Filter != nil && !opts.Filter(test.Name) {
				continue
			}
			createTest(h, test)
		}
		if doc.Settings.ExplicitDone {
			// the end of the document is its explicit completion signal
			h.SignalDone()
		}
	})
}

func (s Settings) harnessConfig() harness.Config {
	var config harness.Config
	if s.TimeoutMS != nil {
		config.Timeout = ldvalue.NewOptionalInt(*s.TimeoutMS)
	}
	if s.TestTimeoutMS != nil {
		config.TestTimeout = ldvalue.NewOptionalInt(*s.TestTimeoutMS)
	}
	config.ExplicitDone = s.ExplicitDone
	return config
}

func testConfig(test TestDef) harness.TestConfig {
	var config harness.TestConfig
	if test.TimeoutMS != nil {
		config.Timeout = ldvalue.NewOptionalInt(*test.TimeoutMS)
	}
	return config
}

func createTest(h *harness.Harness, test TestDef) {
	if !test.Async {
		h.Test(test.Name, testConfig(test), func(*harness.Test) {
			for _, step := range test.Steps {
				applyStep(step)
			}
		})
		return
	}

	t := h.AsyncTest(test.Name, testConfig(test))
	// Each contiguous run of steps executes as one harness step; a delay
	// schedules the remainder as a later callback-driven step. Exhausting the
	// steps completes the test.
	var advance func(from int)
	advance = func(from int) {
		t.Step(func() {
			for i := from; i < len(test.Steps); i++ {
				step := test.Steps[i]
				switch {
				case step.DelayMS != nil:
					rest := i + 1
					h.Schedule(time.Duration(*step.DelayMS)*time.Millisecond, func() {
						advance(rest)
					})
					return
				case step.Done:
					t.Done()
					return
				default:
					applyStep(step)
				}
			}
			t.Done()
		})
	}
	advance(0)
}

func applyStep(step StepDef) {
	switch {
	case step.Fault:
		message := step.Description
		if message == "" {
			message = "injected fault"
		}
		panic(fmt.Sprintf("document fault: %s", message))
	case step.Assert == "equals":
		harness.AssertEquals(
			ldvalue.CopyArbitraryValue(step.Actual),
			ldvalue.CopyArbitraryValue(step.Expected),
			step.Description)
	case step.Assert == "is_true":
		harness.Assert(ldvalue.CopyArbitraryValue(step.Actual).BoolValue(), step.Description)
	case step.Assert == "fail":
		harness.Fail(step.Description)
	}
}
