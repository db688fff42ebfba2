// Package bridge forwards harness lifecycle events to an ancestor execution
// context over HTTP. The harness treats the bridge as an optional sink:
// having no bridge is normal, and a bridge that fails never affects the local
// run.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pagetest/harness/harness"
	"github.com/pagetest/harness/logging"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const defaultRequestTimeout = time.Second * 5

// HTTPSink implements harness.Sink by POSTing each event as JSON to a fixed
// base URL: /start, /result, and /complete.
type HTTPSink struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewHTTPSink creates a sink that posts to the given base URL. A nil client
// gets a default one with a request timeout, so a slow ancestor cannot stall
// event dispatch indefinitely.
func NewHTTPSink(baseURL string, client *http.Client, logger logging.Logger) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &HTTPSink{baseURL: baseURL, client: client, logger: logger}
}

type testPayload struct {
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}

type statusPayload struct {
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}

type completePayload struct {
	Tests  []testPayload `json:"tests"`
	Status statusPayload `json:"status"`
}

func (s *HTTPSink) Start() error {
	return s.post("/start", struct{}{})
}

func (s *HTTPSink) Result(result harness.TestResult) error {
	return s.post("/result", makeTestPayload(result))
}

func (s *HTTPSink) Complete(results []harness.TestResult, status harness.StatusReport) error {
	payload := completePayload{
		Tests: make([]testPayload, 0, len(results)),
		Status: statusPayload{
			Status:  status.Status.String(),
			Message: optionalStringPointer(status.Message),
		},
	}
	for _, r := range results {
		payload.Tests = append(payload.Tests, makeTestPayload(r))
	}
	return s.post("/complete", payload)
}

func makeTestPayload(result harness.TestResult) testPayload {
	return testPayload{
		Name:    result.Name,
		Status:  result.Status.String(),
		Message: optionalStringPointer(result.Message),
	}
}

func optionalStringPointer(s ldvalue.OptionalString) *string {
	if !s.IsDefined() {
		return nil
	}
	value := s.StringValue()
	return &value
}

func (s *HTTPSink) post(path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.logger.Printf("forwarding %s event to %s", path, s.baseURL)
	resp, err := s.client.Post(s.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ancestor context returned HTTP %d for %s", resp.StatusCode, path)
	}
	return nil
}
