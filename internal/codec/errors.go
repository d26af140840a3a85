package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/carlog/internal/ir"
)

// DecodeReason classifies why a payload could not be decoded.
type DecodeReason string

const (
	// ReasonArityMismatch: wrong number of fields, or wrong field set, for the tag.
	ReasonArityMismatch DecodeReason = "ARITY_MISMATCH"

	// ReasonBadWorkCode: a work code is not a (signed) integer.
	ReasonBadWorkCode DecodeReason = "BAD_WORK_CODE"

	// ReasonUnknownOperation: the operation tag is not recognised.
	ReasonUnknownOperation DecodeReason = "UNKNOWN_OPERATION"

	// ReasonInvalidField: a field is present but its value is unusable.
	ReasonInvalidField DecodeReason = "INVALID_FIELD"

	// ReasonMalformed: the bytes are not a payload at all.
	ReasonMalformed DecodeReason = "MALFORMED"
)

// DecodeError reports a payload that cannot become an Operation.
type DecodeError struct {
	Reason  DecodeReason
	Op      ir.OpKind // empty if the tag itself could not be read
	Field   string    // offending field, if any
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Reason, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s (op=%s", msg, e.Op)
		if e.Field != "" {
			msg += ", field=" + e.Field
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is, or wraps, a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ReasonOf returns the DecodeReason carried by err, or "" if none.
func ReasonOf(err error) DecodeReason {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// ErrDelimiterInValue is returned by EncodeLegacy when a value contains a
// character the delimited format uses as a separator.
var ErrDelimiterInValue = errors.New("value contains a legacy delimiter")

func arityError(op ir.OpKind, format string, args ...any) *DecodeError {
	return &DecodeError{Reason: ReasonArityMismatch, Op: op, Message: fmt.Sprintf(format, args...)}
}

func fieldError(reason DecodeReason, op ir.OpKind, field string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Op: op, Field: field, Message: "cannot decode field", Err: err}
}
