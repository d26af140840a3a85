package harness

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Keys maps additional key names to private keys in hex. The names
	// "alice" and "bob" are always available.
	Keys map[string]string `yaml:"keys,omitempty"`

	// LenientCreate runs the processor with create-on-existing as a no-op.
	LenientCreate bool `yaml:"lenient_create,omitempty"`

	// Steps run in order, each write step in a batch of its own.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation.
type Step struct {
	// Op is create, add, delete or history.
	Op string `yaml:"op"`

	VIN string `yaml:"vin"`

	// Key names the signer. Default: alice.
	Key string `yaml:"key,omitempty"`

	// ProofKey names the key that produces the identity proof.
	// Default: Key. Setting it to another key exercises identity mismatch.
	ProofKey string `yaml:"proof_key,omitempty"`

	Date        string `yaml:"date,omitempty"`
	Brand       string `yaml:"brand,omitempty"`
	Model       string `yaml:"model,omitempty"`
	Description string `yaml:"description,omitempty"`

	// Work is a "|"-separated list of work codes, as typed on the command
	// line.
	Work string `yaml:"work,omitempty"`
	Km   int64  `yaml:"km,omitempty"`

	// Payload replaces the encoded payload with raw text. "{proof}" is
	// replaced by the identity proof. Used for legacy or malformed payloads.
	Payload string `yaml:"payload,omitempty"`

	// Tamper flips one payload byte after signing.
	Tamper bool `yaml:"tamper,omitempty"`

	// Expect is the expected outcome. Empty means any.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "entry": the entry of VIN has the Expect field values
	// - "absent": VIN has no entry
	// - "outcome_count": Outcome occurs exactly Count times in the trace
	// - "outcomes": the trace outcomes equal Outcomes, in order
	Type string `yaml:"type"`

	VIN string `yaml:"vin,omitempty"`

	// Expect holds entry fields (subset match). work is compared in
	// "x|y" notation and identity by key name.
	Expect map[string]any `yaml:"expect,omitempty"`

	Outcome  string   `yaml:"outcome,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Outcomes []string `yaml:"outcomes,omitempty"`
}

// Assertion type constants.
const (
	AssertEntry        = "entry"
	AssertAbsent       = "absent"
	AssertOutcomeCount = "outcome_count"
	AssertOutcomes     = "outcomes"
)

// Built-in key names.
const (
	KeyAlice = "alice"
	KeyBob   = "bob"
)

var scenarioName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !scenarioName.MatchString(s.Name) {
		return fmt.Errorf("name %q must be lowercase letters, digits, '_' or '-'", s.Name)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for name := range s.Keys {
		if name == KeyAlice || name == KeyBob {
			return fmt.Errorf("keys: %q is built in and cannot be redefined", name)
		}
	}

	for i := range s.Steps {
		if err := validateStep(s, i); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(s *Scenario, index int) error {
	step := s.Steps[index]
	kind, ok := ir.ParseOpKind(step.Op)
	if !ok {
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	if step.VIN == "" {
		return fmt.Errorf("steps[%d]: vin is required", index)
	}
	for _, k := range []string{step.Key, step.ProofKey} {
		if k != "" && !s.hasKey(k) {
			return fmt.Errorf("steps[%d]: unknown key %q", index, k)
		}
	}
	if kind == ir.OpHistory {
		if step.Payload != "" || step.Tamper || step.Work != "" {
			return fmt.Errorf("steps[%d]: history takes only vin and expect", index)
		}
		return nil
	}
	if step.Payload != "" {
		return nil
	}
	if step.Date == "" {
		return fmt.Errorf("steps[%d]: date is required for %s", index, step.Op)
	}
	if kind != ir.OpCreate {
		if _, err := codec.ParseWorkCodes(step.Work); err != nil {
			return fmt.Errorf("steps[%d]: work: %w", index, err)
		}
	}
	return nil
}

func (s *Scenario) hasKey(name string) bool {
	if name == KeyAlice || name == KeyBob {
		return true
	}
	_, ok := s.Keys[name]
	return ok
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEntry:
		if a.VIN == "" {
			return fmt.Errorf("assertions[%d]: vin is required for entry", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for entry", index)
		}
	case AssertAbsent:
		if a.VIN == "" {
			return fmt.Errorf("assertions[%d]: vin is required for absent", index)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertOutcomes:
		if len(a.Outcomes) == 0 {
			return fmt.Errorf("assertions[%d]: outcomes list is required", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
