package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pagetest/harness/harness"
)

var statusColors = map[harness.TestStatus]*color.Color{
	harness.StatusPass:    color.New(color.FgGreen),
	harness.StatusFail:    color.New(color.FgRed),
	harness.StatusTimeout: color.New(color.FgYellow),
	harness.StatusNotRun:  color.New(color.FgMagenta),
}

// consoleReporter prints live progress as a document runs: one line per
// completed test, colored by status.
type consoleReporter struct {
	out io.Writer
}

func (r *consoleReporter) runStarted() {
	fmt.Fprintln(r.out, "  started")
}

func (r *consoleReporter) testResult(result harness.TestResult) {
	label := fmt.Sprintf("[%s]", result.Status)
	if c, ok := statusColors[result.Status]; ok {
		label = c.Sprint(label)
	}
	if result.Message.IsDefined() {
		fmt.Fprintf(r.out, "  %s %s: %s\n", label, result.Name, result.Message.StringValue())
	} else {
		fmt.Fprintf(r.out, "  %s %s\n", label, result.Name)
	}
}

// formatResults renders the final plain-text summary of one document run.
func formatResults(title string, results harness.Results) string {
	var b strings.Builder
	fmt.Fprintf(&b, "document: %s\n", title)
	for _, tr := range results.Tests {
		fmt.Fprintf(&b, "  %s\n", tr)
	}
	if results.Status.Message.IsDefined() {
		fmt.Fprintf(&b, "status: %s (%s)\n", results.Status.Status, results.Status.Message.StringValue())
	} else {
		fmt.Fprintf(&b, "status: %s\n", results.Status.Status)
	}

	var passed, failed, timedOut, notRun int
	for _, tr := range results.Tests {
		switch tr.Status {
		case harness.StatusPass:
			passed++
		case harness.StatusFail:
			failed++
		case harness.StatusTimeout:
			timedOut++
		case harness.StatusNotRun:
			notRun++
		}
	}
	fmt.Fprintf(&b, "%d tests: %d passed, %d failed, %d timed out, %d not run\n",
		len(results.Tests), passed, failed, timedOut, notRun)
	return b.String()
}
