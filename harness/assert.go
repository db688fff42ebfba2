package harness

import (
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// AssertionError is the failure raised by the assertion helpers. The step
// executor recognizes it and converts it into the owning test's FAIL status,
// using Message verbatim. Raised as a panic so that the rest of the enclosing
// step's body does not execute after a failed check.
//
// The helpers must be called from inside a test body or step. Outside any
// step there is no executor boundary to catch the failure, so the panic
// propagates to the caller; in a Run script that surfaces as a harness setup
// error rather than running degraded.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

func raiseAssertion(format string, args ...interface{}) {
	panic(&AssertionError{Message: fmt.Sprintf(format, args...)})
}

func describePrefix(description string) string {
	if description == "" {
		return ""
	}
	return description + ": "
}

// Assert fails the enclosing step unless cond is true.
func Assert(cond bool, description string) {
	if !cond {
		raiseAssertion("%sexpected true, got false", describePrefix(description))
	}
}

// AssertEquals fails the enclosing step unless actual equals expected. The
// failure message includes both values.
func AssertEquals(actual, expected ldvalue.Value, description string) {
	if actual.Equal(expected) {
		return
	}
	raiseAssertion("%sexpected %s but got %s",
		describePrefix(description), expected.JSONString(), actual.JSONString())
}

// Fail unconditionally fails the enclosing step.
func Fail(description string) {
	raiseAssertion("%sexplicit failure", describePrefix(description))
}
