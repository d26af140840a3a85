package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaNegatesDeleteCodes(t *testing.T) {
	op := NewDelete("VIN", "proof", "2024-02-01", []int64{3, 7}, 1000, "")
	assert.Equal(t, []int64{-3, -7}, op.Delta())
	assert.Equal(t, []int64{3, 7}, op.WorkCodes, "Delta must not mutate the operation")
}

func TestDeltaSignedDeleteCodes(t *testing.T) {
	op := NewDelete("VIN", "proof", "2024-02-01", []int64{-4, 5}, 0, "")
	assert.Equal(t, []int64{4, -5}, op.Delta())
}

func TestDeltaAdd(t *testing.T) {
	op := NewAdd("VIN", "proof", "2024-02-01", []int64{12, 40}, 5000, "oil")
	delta := op.Delta()
	assert.Equal(t, []int64{12, 40}, delta)

	delta[0] = 99
	assert.Equal(t, int64(12), op.WorkCodes[0], "Delta must return a copy")
}

func TestDeltaCreateAndHistory(t *testing.T) {
	assert.Nil(t, NewCreate("VIN", "p", "d", "b", "m", "").Delta())
	assert.Nil(t, NewHistory("VIN").Delta())
}

func TestParseOpKind(t *testing.T) {
	for _, k := range ValidOpKinds {
		got, ok := ParseOpKind(string(k))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}

	_, ok := ParseOpKind("balance")
	assert.False(t, ok)

	assert.True(t, OpCreate.IsWrite())
	assert.True(t, OpDelete.IsWrite())
	assert.False(t, OpHistory.IsWrite())
}

func TestFormatWorkCodes(t *testing.T) {
	assert.Equal(t, "0", FormatWorkCodes(nil))
	assert.Equal(t, "3|-7", FormatWorkCodes([]int64{3, -7}))
	assert.Equal(t, "0", LedgerEntry{}.WorkString())
}
