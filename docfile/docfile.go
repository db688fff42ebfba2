// Package docfile defines the YAML format for single-document test files and
// runs them through the harness. A document declares harness settings plus an
// ordered list of tests; each test is a list of steps (assertions, delays,
// injected faults, an explicit done marker).
package docfile

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is one parsed test file.
type Document struct {
	Title    string    `yaml:"title"`
	Settings Settings  `yaml:"settings"`
	Tests    []TestDef `yaml:"tests"`
}

// Settings maps onto the harness's document-level configuration. Timeouts
// are in milliseconds; nil means the harness default.
type Settings struct {
	TimeoutMS     *int `yaml:"timeout_ms"`
	TestTimeoutMS *int `yaml:"test_timeout_ms"`
	ExplicitDone  bool `yaml:"explicit_done"`
}

// TestDef declares one test. Synchronous tests run all their steps
// immediately; async tests may interleave delays, after which the remaining
// steps run as later callback-driven steps.
type TestDef struct {
	Name      string    `yaml:"name"`
	Async     bool      `yaml:"async"`
	TimeoutMS *int      `yaml:"timeout_ms"`
	Steps     []StepDef `yaml:"steps"`
}

// StepDef is one step. Exactly one of the step kinds must be set:
// Assert ("equals", "is_true", "fail"), DelayMS, Fault, or Done.
type StepDef struct {
	Assert      string      `yaml:"assert"`
	Actual      interface{} `yaml:"actual"`
	Expected    interface{} `yaml:"expected"`
	Description string      `yaml:"description"`
	DelayMS     *int        `yaml:"delay_ms"`
	Fault       bool        `yaml:"fault"`
	Done        bool        `yaml:"done"`
}

// Parse decodes and validates a document. Unknown fields are rejected so a
// typo in a test file fails loudly instead of silently skipping a step.
func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed test document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses the test document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (doc *Document) validate() error {
	for i, test := range doc.Tests {
		if test.Name == "" {
			return fmt.Errorf("test %d has no name", i)
		}
		for j, step := range test.Steps {
			if err := step.validate(test.Async); err != nil {
				return fmt.Errorf("test %q step %d: %w", test.Name, j, err)
			}
		}
	}
	return nil
}

func (s StepDef) validate(async bool) error {
	kinds := 0
	if s.Assert != "" {
		kinds++
		switch s.Assert {
		case "equals", "is_true", "fail":
		default:
			return fmt.Errorf("unknown assert kind %q", s.Assert)
		}
	}
	if s.DelayMS != nil {
		kinds++
		if !async {
			return fmt.Errorf("delay_ms is only valid in async tests")
		}
		if *s.DelayMS < 0 {
			return fmt.Errorf("delay_ms must not be negative")
		}
	}
	if s.Fault {
		kinds++
	}
	if s.Done {
		kinds++
		if !async {
			return fmt.Errorf("done is only valid in async tests")
		}
	}
	if kinds != 1 {
		return fmt.Errorf("step must set exactly one of assert, delay_ms, fault, done")
	}
	return nil
}
