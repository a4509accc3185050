package harness

// TraceEvent records one operation or its outcome.
type TraceEvent struct {
	Type   string `json:"type"` // "invocation" or "completion"
	Op     string `json:"op,omitempty"`
	As     string `json:"as,omitempty"`
	Args   any    `json:"args,omitempty"`
	Case   string `json:"case,omitempty"`
	Result any    `json:"result,omitempty"`
	Seq    int64  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(op, as string, args any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: "invocation",
		Op:   op,
		As:   as,
		Args: args,
		Seq:  seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(outcome string, result any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   "completion",
		Case:   outcome,
		Result: result,
		Seq:    seq,
	})
}
