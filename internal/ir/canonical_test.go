package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", Str("hello"), `"hello"`},
		{"empty string", Str(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty list", List{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"int list", IntList([]int64{3, -7}), "[3,-7]"},
		{"nil int list", IntList(nil), "[]"},
		{"plain slice", []int64{1, 2}, "[1,2]"},
		{"plain strings", []string{"a", "b"}, `["a","b"]`},
		{"simple object", Object{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00 and sorts before U+FB01
	// in UTF-16 even though its UTF-8 form sorts after.
	obj := Object{
		"\ufb01":     Int(1),
		"\U0001F600": Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\ufb01\":1}", string(result))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"html not escaped", "<a & b>", `"<a & b>"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"comma and pipe literal", "oil, filters | brakes", `"oil, filters | brakes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	result, err := MarshalCanonical(Str("Citro\u00e9n"))
	require.NoError(t, err)
	assert.Equal(t, "\"Citro\u00e9n\"", string(result))

	// "e" + combining acute accent is the decomposed form of U+00E9. It is
	// refused rather than rewritten.
	_, err = MarshalCanonical(Str("Citroe\u0301n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not NFC")
	_, err = MarshalCanonical(map[string]any{"cafe\u0301": "x"})
	assert.Error(t, err)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"float64", 1.5},
		{"float in map", map[string]any{"x": 2.5}},
		{"nil in slice", []any{nil}},
		{"invalid utf8", "\xff"},
		{"unsupported", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestMarshalCanonicalMapOfAny(t *testing.T) {
	result, err := MarshalCanonical(map[string]any{
		"step":  2,
		"codes": []int64{-3, -7},
		"entry": map[string]any{"vin": "X", "ok": true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"codes":[-3,-7],"entry":{"ok":true,"vin":"X"},"step":2}`, string(result))
}

func TestLedgerEntryToObject(t *testing.T) {
	entry := LedgerEntry{
		VIN:       "1HGCM82633A004352",
		Identity:  "02ab",
		WorkDate:  "2024-01-01",
		Brand:     "Toyota",
		Model:     "Corolla",
		Timestamp: 1704067200,
	}

	result, err := MarshalCanonical(entry.ToObject())
	require.NoError(t, err)
	assert.Equal(t,
		`{"brand":"Toyota","description":"","identity":"02ab","mileage":0,"model":"Corolla",`+
			`"timestamp":1704067200,"vin":"1HGCM82633A004352","work":[],"work_date":"2024-01-01"}`,
		string(result))
}
