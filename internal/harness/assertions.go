package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", ev.Step, ev.Op, ev.VIN, ev.Outcome)
		}
	}
	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx       context.Context
	Store     *store.Store
	Namespace ir.Namespace
	KeyNames  map[string]string // public key -> key name
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertEntry, AssertAbsent:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, a.Type)
			} else if a.Type == AssertEntry {
				err = assertEntry(actx, result.Trace, a)
			} else {
				err = assertAbsent(actx, result.Trace, a)
			}
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Trace, a)
		case AssertOutcomes:
			err = assertOutcomes(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertEntry checks the final entry of a VIN (subset match).
func assertEntry(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	addr := actx.Namespace.Address(a.VIN)
	e, found, err := actx.Store.ReadState(actx.Ctx, addr)
	if err != nil {
		return fmt.Errorf("entry %s: %w", a.VIN, err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertEntry,
			Expected: fmt.Sprintf("entry for %s", a.VIN),
			Actual:   "no entry",
			Trace:    trace,
		}
	}
	le, err := codec.DecodeEntry(e.Data)
	if err != nil {
		return fmt.Errorf("entry %s: %w", a.VIN, err)
	}

	actual := entryFields(le, actx.KeyNames)
	var mismatches []string
	for _, key := range sortedKeys(a.Expect) {
		want := a.Expect[key]
		got, ok := actual[key]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: unknown field", key))
			continue
		}
		if !fieldEqual(want, got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: want %v, got %v", key, want, got))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertEntry,
			Expected: fmt.Sprintf("entry %s with %v", a.VIN, a.Expect),
			Actual:   strings.Join(mismatches, "; "),
			Trace:    trace,
		}
	}
	return nil
}

// assertAbsent checks that a VIN has no entry.
func assertAbsent(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	_, found, err := actx.Store.ReadState(actx.Ctx, actx.Namespace.Address(a.VIN))
	if err != nil {
		return fmt.Errorf("absent %s: %w", a.VIN, err)
	}
	if found {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("no entry for %s", a.VIN),
			Actual:   "entry present",
			Trace:    trace,
		}
	}
	return nil
}

// assertOutcomeCount checks that an outcome occurs exactly Count times.
func assertOutcomeCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Outcome == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%s exactly %d time(s)", a.Outcome, a.Count),
			Actual:   fmt.Sprintf("found %d time(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertOutcomes checks the full outcome sequence.
func assertOutcomes(trace []TraceEvent, a Assertion) error {
	got := make([]string, len(trace))
	for i, ev := range trace {
		got[i] = ev.Outcome
	}
	if !reflect.DeepEqual(got, a.Outcomes) {
		return &AssertionError{
			Type:     AssertOutcomes,
			Expected: strings.Join(a.Outcomes, ", "),
			Actual:   strings.Join(got, ", "),
			Trace:    trace,
		}
	}
	return nil
}

// fieldEqual compares a YAML-parsed expectation with an entry field.
// YAML integers decode as int; entry integers are int64.
func fieldEqual(want, got any) bool {
	switch w := want.(type) {
	case int:
		g, ok := got.(int64)
		return ok && int64(w) == g
	case int64:
		g, ok := got.(int64)
		return ok && w == g
	case string:
		g, ok := got.(string)
		return ok && w == g
	}
	return reflect.DeepEqual(want, got)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
