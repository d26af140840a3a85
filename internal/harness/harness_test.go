package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/testutil"
)

const testVIN = "1HGCM82633A004352"

func TestRun_CreateThenHistory(t *testing.T) {
	scenario := &Scenario{
		Name: "create_history",
		Steps: []Step{
			{Op: "create", VIN: testVIN, Date: "2024-01-01", Brand: "Toyota", Model: "Corolla", Expect: OutcomeCommitted},
			{Op: "history", VIN: testVIN, Expect: OutcomeFound},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)

	create := result.Trace[0]
	assert.Equal(t, ir.DeriveAddress(ir.FamilyName, testVIN), create.Address)
	assert.Equal(t, int64(2), create.Seq)
	assert.Nil(t, create.Entry)

	history := result.Trace[1]
	assert.Equal(t, int64(2), history.Seq, "history reports the seq of the write")
	assert.Equal(t, "alice", history.Entry["identity"])
	assert.Equal(t, "0", history.Entry["work"])
	assert.Equal(t, int64(0), history.Entry["mileage"])
	assert.Equal(t, testutil.DefaultEpoch.Unix(), history.Entry["timestamp"])
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name: "mismatch",
		Steps: []Step{
			{Op: "add", VIN: testVIN, Date: "2024-01-01", Work: "1", Expect: OutcomeCommitted},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected COMMITTED, got NOT_FOUND")
}

func TestRun_IdentityMismatch(t *testing.T) {
	scenario := &Scenario{
		Name: "wrong_proof",
		Steps: []Step{
			{Op: "create", VIN: testVIN, Key: KeyBob, ProofKey: KeyAlice, Date: "2024-01-01", Expect: "IDENTITY_MISMATCH"},
			{Op: "history", VIN: testVIN, Expect: OutcomeAbsent},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_TamperedPayloadIsInvalid(t *testing.T) {
	scenario := &Scenario{
		Name: "tamper",
		Steps: []Step{
			{Op: "create", VIN: testVIN, Date: "2024-01-01", Tamper: true, Expect: OutcomeInvalid},
			{Op: "create", VIN: testVIN, Date: "2024-01-01", Expect: OutcomeCommitted},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(1), result.Trace[0].Seq, "invalid batch takes one seq")
	assert.Equal(t, int64(3), result.Trace[1].Seq)
}

func TestRun_RawPayloadProofPlaceholder(t *testing.T) {
	scenario := &Scenario{
		Name: "raw",
		Steps: []Step{
			{Op: "create", VIN: testVIN, Payload: "create," + testVIN + ",{proof},2024-01-01,Honda,Accord,", Expect: OutcomeCommitted},
			{Op: "history", VIN: testVIN},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "Honda", result.Trace[1].Entry["brand"])
	assert.Equal(t, "alice", result.Trace[1].Entry["identity"])
}

func TestRun_BadCustomKey(t *testing.T) {
	scenario := &Scenario{
		Name:  "bad_key",
		Keys:  map[string]string{"carol": "zz"},
		Steps: []Step{{Op: "history", VIN: testVIN}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `key "carol"`)
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name: "deterministic",
		Steps: []Step{
			{Op: "create", VIN: testVIN, Date: "2024-01-01"},
			{Op: "delete", VIN: testVIN, Date: "2024-01-02", Work: "4|5", Km: 10},
			{Op: "history", VIN: testVIN},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, "-4|-5", first.Trace[2].Entry["work"])
}
