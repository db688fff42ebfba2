package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pagetest/harness/bridge"
	"github.com/pagetest/harness/docfile"
	"github.com/pagetest/harness/logging"
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}
	os.Exit(runDocuments(params, os.Stdout))
}

func runDocuments(params commandParams, out io.Writer) int {
	var failedFiles []string

	for _, path := range params.files {
		doc, err := docfile.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot load test document: %s\n", err)
			return 1
		}

		title := doc.Title
		if title == "" {
			title = path
		}
		fmt.Fprintf(out, "Running %s\n", title)

		debugLog := &logging.CapturingLogger{}
		reporter := &consoleReporter{out: out}
		opts := docfile.RunOptions{
			Logger:   debugLog,
			OnStart:  reporter.runStarted,
			OnResult: reporter.testResult,
		}
		if params.filters.IsDefined() {
			opts.Filter = params.filters.Matches
		}
		if params.bridgeURL != "" {
			opts.Sinks = append(opts.Sinks, bridge.NewHTTPSink(params.bridgeURL, nil, debugLog))
		}

		results := docfile.Run(doc, opts)
		fmt.Fprint(out, formatResults(title, results))
		fmt.Fprintln(out)

		failed := !results.OK()
		if failed {
			failedFiles = append(failedFiles, path)
		}
		if (failed && params.debug) || params.debugAll {
			debugLog.Output().Dump(out, "  DEBUG ")
		}
	}

	if len(failedFiles) > 0 {
		fmt.Fprintf(out, "To re-run the failed documents with debug logging:\n  %s\n",
			params.rerunCommand(failedFiles))
		return 1
	}
	return 0
}
