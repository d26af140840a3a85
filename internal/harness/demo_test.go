package harness

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs the scenarios shipped under testdata/scenarios at
// the project root and compares their traces with the goldens that
// `carlog test` uses.
func TestDemoScenarios(t *testing.T) {
	tests := []struct {
		name     string
		outcomes int
	}{
		{name: "create_then_history", outcomes: 2},
		{name: "add_replaces_wholesale", outcomes: 4},
		{name: "rejections", outcomes: 8},
		{name: "legacy_payloads", outcomes: 3},
		{name: "lenient_create", outcomes: 3},
	}

	scenariosDir, err := filepath.Abs("../../testdata/scenarios")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join(scenariosDir, tt.name+".yaml"))
			require.NoError(t, err, "failed to load scenario %s", tt.name)

			assert.Equal(t, tt.name, scenario.Name, "scenario name mismatch")
			assert.NotEmpty(t, scenario.Description, "scenario should have description")

			result, err := Run(scenario)
			require.NoError(t, err, "scenario execution failed")
			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.Len(t, result.Trace, tt.outcomes)

			snap, err := Snapshot(scenario.Name, result)
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir(filepath.Join(scenariosDir, "golden")),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, scenario.Name, snap)
		})
	}
}
