package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/carlog/internal/ir"
)

// Tagged-record field names.
const (
	fieldVersion     = "v"
	fieldOp          = "op"
	fieldVIN         = "vin"
	fieldProof       = "identity_proof"
	fieldWorkDate    = "work_date"
	fieldWorkCodes   = "work_codes"
	fieldOdometer    = "odometer"
	fieldDescription = "description"
	fieldBrand       = "brand"
	fieldModel       = "model"
)

// recordFields lists the exact field set of each tag, in no particular order.
var recordFields = map[ir.OpKind][]string{
	ir.OpCreate:  {fieldVersion, fieldOp, fieldVIN, fieldProof, fieldWorkDate, fieldBrand, fieldModel, fieldDescription},
	ir.OpAdd:     {fieldVersion, fieldOp, fieldVIN, fieldProof, fieldWorkDate, fieldWorkCodes, fieldOdometer, fieldDescription},
	ir.OpDelete:  {fieldVersion, fieldOp, fieldVIN, fieldProof, fieldWorkDate, fieldWorkCodes, fieldOdometer, fieldDescription},
	ir.OpHistory: {fieldVersion, fieldOp, fieldVIN},
}

// Encode serializes op as a tagged record.
func Encode(op ir.Operation) ([]byte, error) {
	if err := Validate(op); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	obj := ir.Object{
		fieldVersion: ir.Int(ir.PayloadVersion),
		fieldOp:      ir.Str(op.Kind),
		fieldVIN:     ir.Str(op.VIN),
	}

	switch op.Kind {
	case ir.OpCreate:
		obj[fieldProof] = ir.Str(op.IdentityProof)
		obj[fieldWorkDate] = ir.Str(op.WorkDate)
		obj[fieldBrand] = ir.Str(op.Brand)
		obj[fieldModel] = ir.Str(op.Model)
		obj[fieldDescription] = ir.Str(op.Description)
	case ir.OpAdd, ir.OpDelete:
		obj[fieldProof] = ir.Str(op.IdentityProof)
		obj[fieldWorkDate] = ir.Str(op.WorkDate)
		obj[fieldWorkCodes] = ir.IntList(op.WorkCodes)
		obj[fieldOdometer] = ir.Int(op.Odometer)
		obj[fieldDescription] = ir.Str(op.Description)
	}

	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// Decode parses a payload in either format. The returned error is always a
// *DecodeError.
func Decode(data []byte) (ir.Operation, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return ir.Operation{}, &DecodeError{Reason: ReasonMalformed, Message: "empty payload"}
	}
	if trimmed[0] == '{' {
		return decodeRecord(trimmed)
	}
	return DecodeLegacy(data)
}

func decodeRecord(data []byte) (ir.Operation, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return ir.Operation{}, &DecodeError{Reason: ReasonMalformed, Message: "invalid JSON record", Err: err}
	}
	if dec.More() {
		return ir.Operation{}, &DecodeError{Reason: ReasonMalformed, Message: "trailing data after record"}
	}

	version, err := intField(raw, fieldVersion)
	if err != nil {
		return ir.Operation{}, &DecodeError{Reason: ReasonMalformed, Message: "missing or invalid version", Err: err}
	}
	if version != ir.PayloadVersion {
		return ir.Operation{}, &DecodeError{
			Reason:  ReasonMalformed,
			Message: fmt.Sprintf("unsupported payload version %d", version),
		}
	}

	var tag string
	if err := unmarshalField(raw, fieldOp, &tag); err != nil {
		return ir.Operation{}, &DecodeError{Reason: ReasonMalformed, Message: "missing or invalid op tag", Err: err}
	}
	kind, ok := ir.ParseOpKind(tag)
	if !ok {
		return ir.Operation{}, &DecodeError{Reason: ReasonUnknownOperation, Message: fmt.Sprintf("unknown op %q", tag)}
	}

	if err := checkFieldSet(kind, raw); err != nil {
		return ir.Operation{}, err
	}

	op := ir.Operation{Kind: kind}
	strFields := map[string]*string{fieldVIN: &op.VIN}
	switch kind {
	case ir.OpCreate:
		strFields[fieldProof] = &op.IdentityProof
		strFields[fieldWorkDate] = &op.WorkDate
		strFields[fieldBrand] = &op.Brand
		strFields[fieldModel] = &op.Model
		strFields[fieldDescription] = &op.Description
	case ir.OpAdd, ir.OpDelete:
		strFields[fieldProof] = &op.IdentityProof
		strFields[fieldWorkDate] = &op.WorkDate
		strFields[fieldDescription] = &op.Description
	}
	for name, dst := range strFields {
		if err := unmarshalField(raw, name, dst); err != nil {
			return ir.Operation{}, fieldError(ReasonInvalidField, kind, name, err)
		}
	}

	if kind == ir.OpAdd || kind == ir.OpDelete {
		codes, err := decodeWorkCodes(raw[fieldWorkCodes])
		if err != nil {
			return ir.Operation{}, fieldError(ReasonBadWorkCode, kind, fieldWorkCodes, err)
		}
		op.WorkCodes = codes

		if op.Odometer, err = intField(raw, fieldOdometer); err != nil {
			return ir.Operation{}, fieldError(ReasonInvalidField, kind, fieldOdometer, err)
		}
	}

	if err := Validate(op); err != nil {
		return ir.Operation{}, &DecodeError{Reason: ReasonInvalidField, Op: kind, Message: "operation rejected", Err: err}
	}
	return op, nil
}

// checkFieldSet requires raw to hold exactly the fields of kind.
func checkFieldSet(kind ir.OpKind, raw map[string]json.RawMessage) error {
	want := recordFields[kind]

	var missing, extra []string
	for _, f := range want {
		if _, ok := raw[f]; !ok {
			missing = append(missing, f)
		}
	}
	for f := range raw {
		if !slices.Contains(want, f) {
			extra = append(extra, f)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}

	sort.Strings(missing)
	sort.Strings(extra)
	return arityError(kind, "%s expects %d fields, got %d (missing %v, unexpected %v)",
		kind, len(want), len(raw), missing, extra)
}

func unmarshalField(raw map[string]json.RawMessage, name string, dst any) error {
	msg, ok := raw[name]
	if !ok {
		return fmt.Errorf("field %q missing", name)
	}
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return fmt.Errorf("field %q is null", name)
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	return dec.Decode(dst)
}

// intField reads an integer field. Quoted numbers are rejected.
func intField(raw map[string]json.RawMessage, name string) (int64, error) {
	var v any
	if err := unmarshalField(raw, name, &v); err != nil {
		return 0, err
	}
	return asInt(v)
}

func asInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%v is not a number", v)
	}
	return n.Int64()
}

func decodeWorkCodes(msg json.RawMessage) ([]int64, error) {
	var elems []any
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	if err := dec.Decode(&elems); err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, errors.New("empty work code list")
	}

	codes := make([]int64, len(elems))
	for i, e := range elems {
		c, err := asInt(e)
		if err != nil {
			return nil, fmt.Errorf("work code %d: %w", i, err)
		}
		codes[i] = c
	}
	return codes, nil
}
