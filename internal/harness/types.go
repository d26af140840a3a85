package harness

// Step outcomes that are not processor error codes.
const (
	OutcomeCommitted = "COMMITTED"
	OutcomeInvalid   = "INVALID"
	OutcomeFound     = "FOUND"
	OutcomeAbsent    = "ABSENT"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int            `json:"step"`
	Op      string         `json:"op"`
	VIN     string         `json:"vin"`
	Address string         `json:"address"`
	Outcome string         `json:"outcome"`
	Seq     int64          `json:"seq"`
	Entry   map[string]any `json:"entry,omitempty"` // history steps that found an entry
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
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

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
