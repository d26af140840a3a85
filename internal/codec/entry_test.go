package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/carlog/internal/ir"
)

func TestEntry_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry ir.LedgerEntry
	}{
		{
			name: "fresh",
			entry: ir.LedgerEntry{
				VIN: testVIN, Identity: "02ab", WorkDate: "2024-01-01",
				Brand: "Toyota", Model: "Corolla", Timestamp: 1704067200,
			},
		},
		{
			name: "after delete",
			entry: ir.LedgerEntry{
				VIN: testVIN, Identity: "03cd", WorkDate: "2024-03-06",
				Work: []int64{-3, -7}, Mileage: 15010, Description: "undo, oil", Timestamp: 1709683200,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEntry(tt.entry)
			require.NoError(t, err)

			got, err := DecodeEntry(data)
			require.NoError(t, err)
			assert.Equal(t, tt.entry, got)
		})
	}
}

func TestEncodeEntry_Canonical(t *testing.T) {
	data, err := EncodeEntry(ir.LedgerEntry{VIN: "V", Identity: "02ab", WorkDate: "d", Work: []int64{-3}, Mileage: 5, Timestamp: 9})
	require.NoError(t, err)
	assert.Equal(t,
		`{"brand":"","description":"","identity":"02ab","mileage":5,"model":"","timestamp":9,"vin":"V","work":[-3],"work_date":"d"}`,
		string(data))
}

func TestDecodeEntry_Legacy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ir.LedgerEntry
	}{
		{
			name: "created",
			raw:  testVIN + ";02ab;2024-01-01;0;0",
			want: ir.LedgerEntry{VIN: testVIN, Identity: "02ab", WorkDate: "2024-01-01"},
		},
		{
			name: "added",
			raw:  testVIN + ";02ab;2024-03-05;3|7;15000",
			want: ir.LedgerEntry{VIN: testVIN, Identity: "02ab", WorkDate: "2024-03-05", Work: []int64{3, 7}, Mileage: 15000},
		},
		{
			name: "deleted run",
			raw:  testVIN + ";02ab;2024-03-06;-3-7;15010",
			want: ir.LedgerEntry{VIN: testVIN, Identity: "02ab", WorkDate: "2024-03-06", Work: []int64{-3, -7}, Mileage: 15010},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEntry([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEntry_Errors(t *testing.T) {
	for _, raw := range []string{
		"",
		"only;three;fields",
		testVIN + ";02ab;d;x;0",
		testVIN + ";02ab;d;0;far",
		`{"vin":"V","colour":"red"}`,
		`{"vin":`,
	} {
		_, err := DecodeEntry([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}
