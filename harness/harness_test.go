package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func TestCompletionRequiresLoadAndNothingPending(t *testing.T) {
	// pending reaches zero before load fires
	h := New(shortConfig(), nil)
	completions := 0
	h.AddCompletionCallback(func([]TestResult, StatusReport) { completions++ })
	test := h.AsyncTest("subject", TestConfig{})
	test.Done()
	assert.Equal(t, 0, completions)
	h.SignalLoad()
	assert.Equal(t, 1, completions)

	// load fires before pending reaches zero
	h2 := New(shortConfig(), nil)
	completions2 := 0
	h2.AddCompletionCallback(func([]TestResult, StatusReport) { completions2++ })
	test2 := h2.AsyncTest("subject", TestConfig{})
	h2.SignalLoad()
	assert.Equal(t, 0, completions2)
	test2.Done()
	assert.Equal(t, 1, completions2)
}

func TestExplicitDoneGatesCompletion(t *testing.T) {
	h := New(Config{
		Timeout:      ldvalue.NewOptionalInt(2000),
		ExplicitDone: true,
	}, nil)
	completions := 0
	h.AddCompletionCallback(func([]TestResult, StatusReport) { completions++ })

	test := h.AsyncTest("subject", TestConfig{})
	test.Done()
	h.SignalLoad()
	assert.Equal(t, 0, completions, "must not complete without the explicit done signal")

	h.SignalDone()
	assert.Equal(t, 1, completions)
}

func TestCompleteFiresAtMostOnceWithAllTestsComplete(t *testing.T) {
	h := New(shortConfig(), nil)
	completions := 0
	var finalResults []TestResult
	h.AddCompletionCallback(func(results []TestResult, status StatusReport) {
		completions++
		finalResults = results
	})
	results := h.Run(func(h *Harness) {
		h.Test("one", TestConfig{}, func(*Test) {})
		h.Test("two", TestConfig{}, func(*Test) { Fail("nope") })
	})
	assert.Equal(t, 1, completions)
	require.Len(t, finalResults, 2)
	assert.Equal(t, []string{"one", "two"}, []string{finalResults[0].Name, finalResults[1].Name})

	// signals arriving after completion must not re-fire it
	h.SignalLoad()
	h.SignalDone()
	assert.Equal(t, 1, completions)
	assert.Equal(t, HarnessOK, results.Status.Status)
}

func TestHarnessStatusOKDespiteFailingTest(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		h.Test("mismatch", TestConfig{}, func(*Test) {
			AssertEquals(ldvalue.Int(1), ldvalue.Int(2), "")
		})
	})
	assert.Equal(t, StatusFail, results.Tests[0].Status)
	assert.Equal(t, HarnessOK, results.Status.Status)
	assert.False(t, results.OK())
}

func TestStartEventFiresOnFirstRegistrationOnly(t *testing.T) {
	h := New(shortConfig(), nil)
	starts := 0
	h.AddStartCallback(func() { starts++ })
	h.Run(func(h *Harness) {
		h.Test("one", TestConfig{}, func(*Test) {})
		h.Test("two", TestConfig{}, func(*Test) {})
	})
	assert.Equal(t, 1, starts)
}

func TestResultsPreserveCreationOrder(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		// "late" completes after "early" even though it was created first
		late := h.AsyncTest("late", TestConfig{})
		h.Test("early", TestConfig{}, func(*Test) {})
		h.Schedule(time.Millisecond*10, func() { late.Done() })
	})
	require.Len(t, results.Tests, 2)
	assert.Equal(t, "late", results.Tests[0].Name)
	assert.Equal(t, "early", results.Tests[1].Name)
}

func TestDuplicateTestNamesAreReportedSeparately(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		h.Test("same", TestConfig{}, func(*Test) {})
		h.Test("same", TestConfig{}, func(*Test) { Fail("second one") })
	})
	require.Len(t, results.Tests, 2)
	assert.Equal(t, StatusPass, results.Tests[0].Status)
	assert.Equal(t, StatusFail, results.Tests[1].Status)
}

func TestSetupLockedAfterFirstResult(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		h.Test("first", TestConfig{}, func(*Test) {})
		// the first result locked configuration, so this must be a no-op
		h.Setup(Config{ExplicitDone: true})
	})
	assert.Equal(t, HarnessOK, results.Status.Status)
	assert.True(t, h.Completed(), "run should have completed naturally despite the late Setup call")
}

func TestSetupFuncPanicBecomesSetupError(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		h.Test("unaffected", TestConfig{}, func(*Test) {})
		h.SetupFunc(Config{}, func() { panic(errors.New("setup exploded")) })
	})
	assert.Equal(t, HarnessError, results.Status.Status)
	assert.Contains(t, results.Status.Message.StringValue(), "setup exploded")
	assert.Equal(t, StatusPass, results.Tests[0].Status, "setup faults do not fail individual tests")
}

func TestScriptPanicBecomesSetupError(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		h.Test("created before the fault", TestConfig{}, func(*Test) {})
		panic("document script blew up")
	})
	assert.Equal(t, HarnessError, results.Status.Status)
	assert.Contains(t, results.Status.Message.StringValue(), "document script blew up")
	require.Len(t, results.Tests, 1)
	assert.Equal(t, StatusPass, results.Tests[0].Status)
}

func TestHarnessTimeoutAbandonsPendingTests(t *testing.T) {
	h := New(Config{Timeout: ldvalue.NewOptionalInt(40)}, nil)
	resultEvents := 0
	h.AddResultCallback(func(TestResult) { resultEvents++ })
	results := h.Run(func(h *Harness) {
		h.Test("finished", TestConfig{}, func(*Test) {})
		h.AsyncTest("stuck", TestConfig{Timeout: ldvalue.NewOptionalInt(10000)})
	})
	require.Len(t, results.Tests, 2)
	assert.Equal(t, StatusPass, results.Tests[0].Status)
	assert.Equal(t, StatusNotRun, results.Tests[1].Status)
	assert.Equal(t, HarnessTimeout, results.Status.Status)
	assert.True(t, results.Status.Message.IsDefined())
	assert.Equal(t, 1, resultEvents, "abandoned tests do not fire result events")
}

func TestExplicitDoneSignaledFromScheduledCallback(t *testing.T) {
	h := New(Config{
		Timeout:      ldvalue.NewOptionalInt(2000),
		ExplicitDone: true,
	}, nil)
	results := h.Run(func(h *Harness) {
		h.Schedule(time.Millisecond*10, func() {
			// a test created by asynchronous setup code, after load
			test := h.AsyncTest("late arrival", TestConfig{})
			test.Done()
			h.SignalDone()
		})
	})
	require.Len(t, results.Tests, 1)
	assert.Equal(t, StatusPass, results.Tests[0].Status)
	assert.Equal(t, HarnessOK, results.Status.Status)
}

func TestPostDeliversExternalCallbacksToTheRun(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(func(h *Harness) {
		test := h.AsyncTest("external event", TestConfig{})
		step := test.StepFunc(func() { test.Done() })
		go func() {
			time.Sleep(time.Millisecond * 5)
			h.Post(step)
		}()
	})
	require.Len(t, results.Tests, 1)
	assert.Equal(t, StatusPass, results.Tests[0].Status)
}

func TestCompletionEvaluatedAfterLoadWithNoTests(t *testing.T) {
	h := New(shortConfig(), nil)
	results := h.Run(nil)
	assert.Empty(t, results.Tests)
	assert.Equal(t, HarnessOK, results.Status.Status)
	assert.True(t, results.OK())
}
