package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"
)

type commandParams struct {
	files     []string
	filters   RegexFilters
	bridgeURL string
	debug     bool
	debugAll  bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.bridgeURL, "bridge", "", "base URL of an ancestor context to forward events to")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed documents")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all documents")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	c.files = fs.Args()
	if len(c.files) == 0 {
		fmt.Fprintln(os.Stderr, "at least one test document file is required")
		fs.Usage()
		return false
	}
	return true
}

// rerunCommand builds a shell-safe command line for re-running the failed
// documents with debug logging enabled.
func (c commandParams) rerunCommand(failedFiles []string) string {
	var b commandBuilder
	b.add(os.Args[0], "-debug")
	if c.bridgeURL != "" {
		b.add("-bridge", c.bridgeURL)
	}
	b.add(failedFiles...)
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
