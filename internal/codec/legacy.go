package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/carlog/internal/ir"
)

// Legacy format separators.
const (
	legacySep     = ","
	legacyWorkSep = "|"
)

// legacyArity is the number of comma-separated fields per tag, tag included.
var legacyArity = map[ir.OpKind]int{
	ir.OpCreate:  7, // create,VIN,proof,work_date,brand,model,description
	ir.OpAdd:     7, // add,VIN,proof,work_date,work,km,description
	ir.OpDelete:  7,
	ir.OpHistory: 2, // history,VIN
}

// EncodeLegacy serializes op in the comma-delimited format. Values that
// contain a separator cannot be represented and yield ErrDelimiterInValue.
func EncodeLegacy(op ir.Operation) ([]byte, error) {
	if err := Validate(op); err != nil {
		return nil, fmt.Errorf("encode legacy: %w", err)
	}

	var text []string
	switch op.Kind {
	case ir.OpHistory:
		text = []string{op.VIN}
	case ir.OpCreate:
		text = []string{op.VIN, op.IdentityProof, op.WorkDate, op.Brand, op.Model, op.Description}
	case ir.OpAdd, ir.OpDelete:
		text = []string{op.VIN, op.IdentityProof, op.WorkDate, op.Description}
	}
	// Only caller text is checked; the work list is joined with legacyWorkSep below.
	for _, f := range text {
		if strings.Contains(f, legacySep) || strings.Contains(f, legacyWorkSep) {
			return nil, fmt.Errorf("encode legacy: %q: %w", f, ErrDelimiterInValue)
		}
	}

	fields := []string{string(op.Kind), op.VIN}
	switch op.Kind {
	case ir.OpCreate:
		fields = append(fields, op.IdentityProof, op.WorkDate, op.Brand, op.Model, op.Description)
	case ir.OpAdd, ir.OpDelete:
		parts := make([]string, len(op.WorkCodes))
		for i, c := range op.WorkCodes {
			parts[i] = strconv.FormatInt(c, 10)
		}
		fields = append(fields, op.IdentityProof, op.WorkDate,
			strings.Join(parts, legacyWorkSep), strconv.FormatInt(op.Odometer, 10), op.Description)
	}
	return []byte(strings.Join(fields, legacySep)), nil
}

// DecodeLegacy parses a comma-delimited payload. Decoding is positional and
// strict on field count.
func DecodeLegacy(data []byte) (ir.Operation, error) {
	text := string(data)
	if text == "" {
		return ir.Operation{}, &DecodeError{Reason: ReasonMalformed, Message: "empty payload"}
	}
	fields := strings.Split(text, legacySep)

	kind, ok := ir.ParseOpKind(fields[0])
	if !ok {
		return ir.Operation{}, &DecodeError{Reason: ReasonUnknownOperation, Message: fmt.Sprintf("unknown op %q", fields[0])}
	}
	if want := legacyArity[kind]; len(fields) != want {
		return ir.Operation{}, arityError(kind, "%s expects %d fields, got %d", kind, want, len(fields))
	}

	op := ir.Operation{Kind: kind, VIN: fields[1]}
	switch kind {
	case ir.OpCreate:
		op.IdentityProof = fields[2]
		op.WorkDate = fields[3]
		op.Brand = fields[4]
		op.Model = fields[5]
		op.Description = fields[6]

	case ir.OpAdd, ir.OpDelete:
		op.IdentityProof = fields[2]
		op.WorkDate = fields[3]

		codes, err := ParseWorkCodes(fields[4])
		if err != nil {
			return ir.Operation{}, fieldError(ReasonBadWorkCode, kind, fieldWorkCodes, err)
		}
		op.WorkCodes = codes

		km, err := strconv.ParseInt(strings.TrimSpace(fields[5]), 10, 64)
		if err != nil {
			return ir.Operation{}, fieldError(ReasonInvalidField, kind, fieldOdometer, err)
		}
		op.Odometer = km
		op.Description = fields[6]
	}

	if err := Validate(op); err != nil {
		return ir.Operation{}, &DecodeError{Reason: ReasonInvalidField, Op: kind, Message: "operation rejected", Err: err}
	}
	return op, nil
}

// ParseWorkCodes parses a "|"-separated list of signed integers, the
// notation used on the command line and in the legacy format.
func ParseWorkCodes(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty work code list")
	}
	parts := strings.Split(s, legacyWorkSep)
	codes := make([]int64, len(parts))
	for i, p := range parts {
		c, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("work code %q is not an integer", p)
		}
		codes[i] = c
	}
	return codes, nil
}
