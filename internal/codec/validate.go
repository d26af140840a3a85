package codec

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/carlog/internal/ir"
)

// ErrInvalidOperation is wrapped by every Validate failure.
var ErrInvalidOperation = errors.New("invalid operation")

// Validate checks that op carries what its kind requires. Encoders refuse
// invalid operations and decoders report them as INVALID_FIELD, so no
// invalid operation ever reaches the processor.
func Validate(op ir.Operation) error {
	if _, ok := ir.ParseOpKind(string(op.Kind)); !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, op.Kind)
	}
	if strings.TrimSpace(op.VIN) == "" {
		return invalid("vin", "must not be empty")
	}
	if err := checkNFC(op); err != nil {
		return err
	}

	switch op.Kind {
	case ir.OpHistory:
		if op.IdentityProof != "" || op.WorkDate != "" || len(op.WorkCodes) > 0 ||
			op.Odometer != 0 || op.Description != "" || op.Brand != "" || op.Model != "" {
			return invalid("vin", "history carries only a VIN")
		}
		return nil

	case ir.OpCreate:
		if len(op.WorkCodes) > 0 || op.Odometer != 0 {
			return invalid("work_codes", "create does not carry work")
		}

	case ir.OpAdd, ir.OpDelete:
		if len(op.WorkCodes) == 0 {
			return invalid("work_codes", "at least one work code is required")
		}
		if op.Odometer < 0 {
			return invalid("odometer", "must not be negative")
		}
		if op.Brand != "" || op.Model != "" {
			return invalid("brand", "only create carries brand and model")
		}
	}

	if op.IdentityProof == "" {
		return invalid("identity_proof", "must not be empty")
	}
	if strings.TrimSpace(op.WorkDate) == "" {
		return invalid("work_date", "must not be empty")
	}
	return nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidOperation, field, msg)
}

// checkNFC refuses text fields that are not in Unicode NFC. The VIN is
// hashed into the address and signed in the identity proof, so it must reach
// the processor byte for byte as the client saw it.
func checkNFC(op ir.Operation) error {
	fields := []struct{ name, value string }{
		{"vin", op.VIN},
		{"identity_proof", op.IdentityProof},
		{"work_date", op.WorkDate},
		{"description", op.Description},
		{"brand", op.Brand},
		{"model", op.Model},
	}
	for _, f := range fields {
		if !norm.NFC.IsNormalString(f.value) {
			return invalid(f.name, "must be NFC normalized")
		}
	}
	return nil
}
