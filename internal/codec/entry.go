package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/carlog/internal/ir"
)

// EncodeEntry serializes a ledger entry as canonical JSON. These are the
// bytes stored at an entry address.
func EncodeEntry(e ir.LedgerEntry) ([]byte, error) {
	data, err := ir.MarshalCanonical(e.ToObject())
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return data, nil
}

// DecodeEntry parses stored entry bytes. Values written in the legacy
// "VIN;identity;date;work;km" form are accepted as well.
func DecodeEntry(data []byte) (ir.LedgerEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ir.LedgerEntry{}, fmt.Errorf("decode entry: empty value")
	}
	if trimmed[0] != '{' {
		return DecodeLegacyEntry(trimmed)
	}

	var e ir.LedgerEntry
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("decode entry: %w", err)
	}
	if len(e.Work) == 0 {
		e.Work = nil
	}
	return e, nil
}

// DecodeLegacyEntry parses "VIN;identity;date;work;km". The work field is
// "0", a "|"-separated list, or the run of negated codes such as "-3-7"
// that older deletes produced.
func DecodeLegacyEntry(data []byte) (ir.LedgerEntry, error) {
	fields := strings.Split(string(data), ";")
	if len(fields) != 5 {
		return ir.LedgerEntry{}, fmt.Errorf("decode legacy entry: expected 5 fields, got %d", len(fields))
	}

	e := ir.LedgerEntry{
		VIN:      fields[0],
		Identity: fields[1],
		WorkDate: fields[2],
	}

	if work := strings.TrimSpace(fields[3]); work != "" && work != "0" {
		codes, err := ParseWorkCodes(work)
		if err != nil && strings.HasPrefix(work, "-") {
			codes, err = parseNegatedRun(work)
		}
		if err != nil {
			return ir.LedgerEntry{}, fmt.Errorf("decode legacy entry: %w", err)
		}
		e.Work = codes
	}

	km, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return ir.LedgerEntry{}, fmt.Errorf("decode legacy entry: mileage: %w", err)
	}
	e.Mileage = km
	return e, nil
}

func parseNegatedRun(s string) ([]int64, error) {
	parts := strings.Split(strings.TrimPrefix(s, "-"), "-")
	codes := make([]int64, len(parts))
	for i, p := range parts {
		c, err := strconv.ParseInt(p, 10, 64)
		if err != nil || c < 0 {
			return nil, fmt.Errorf("work %q is not a run of negated codes", s)
		}
		codes[i] = -c
	}
	return codes, nil
}
