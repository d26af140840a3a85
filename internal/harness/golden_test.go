package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carolKeyHex is private key 3; its public key is 3G.
const carolKeyHex = "0000000000000000000000000000000000000000000000000000000000000003"

func TestRunWithGolden_CustomKeyTakesOver(t *testing.T) {
	scenario := &Scenario{
		Name:        "custom_key_takes_over",
		Description: "An add by another key replaces the entry and its owner",
		Keys:        map[string]string{"carol": carolKeyHex},
		Steps: []Step{
			{Op: "create", VIN: testVIN, Date: "2024-01-01", Brand: "Toyota", Model: "Corolla"},
			{Op: "add", VIN: testVIN, Key: "carol", Date: "2024-02-02", Work: "12", Km: 500, Description: "tires"},
			{Op: "history", VIN: testVIN, Expect: OutcomeFound},
		},
		Assertions: []Assertion{
			{Type: AssertEntry, VIN: testVIN, Expect: map[string]any{"identity": "carol", "work": "12"}},
		},
	}

	// First run with -update to create the golden file:
	//   go test ./internal/harness -run TestRunWithGolden_CustomKeyTakesOver -update
	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name: "snapshot_twice",
		Steps: []Step{
			{Op: "create", VIN: testVIN, Date: "2024-01-01", Brand: "Toyota", Model: "Corolla"},
			{Op: "history", VIN: testVIN},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_OmitsEmptyEntry(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Step: 0, Op: "history", VIN: "X", Address: "eba1d0", Outcome: OutcomeAbsent})

	got, err := Snapshot("absent_only", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"absent_only","trace":[{"address":"eba1d0","op":"history","outcome":"ABSENT","seq":0,"step":0,"vin":"X"}]}`,
		string(got))
}
