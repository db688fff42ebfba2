package harness

import "gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

// GenerateTests unrolls one body over a list of cases, creating one
// synchronous test per case. Each case is an ordered tuple whose first
// element is the test name and whose remaining elements are passed to body as
// positional arguments. Expansion order is the input order, and each produced
// test is independent: one case failing does not affect the others.
func (h *Harness) GenerateTests(body func(t *Test, args []ldvalue.Value), cases [][]ldvalue.Value) {
	for _, c := range cases {
		if len(c) == 0 {
			continue
		}
		name := c[0].StringValue()
		args := c[1:]
		h.Test(name, TestConfig{}, func(t *Test) {
			body(t, args)
		})
	}
}
