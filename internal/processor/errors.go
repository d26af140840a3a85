package processor

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes transaction failures.
type ErrorCode string

const (
	// CodeDecode indicates the payload could not be decoded.
	CodeDecode ErrorCode = "DECODE_ERROR"

	// CodeIdentityMismatch indicates the identity proof does not verify or
	// does not belong to the transaction signer.
	CodeIdentityMismatch ErrorCode = "IDENTITY_MISMATCH"

	// CodeAlreadyExists indicates a create on a Present address.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeNotFound indicates an add or delete on an Absent address.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnsupported indicates an operation that is not a transaction.
	CodeUnsupported ErrorCode = "UNSUPPORTED_OPERATION"

	// CodeInternal indicates the state store failed. Nothing was applied.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error is a classified transaction failure.
//
// All codes except CodeInternal mark an invalid transaction: the failure is
// local to that transaction, is reported to the submitter, and never aborts
// its siblings. CodeInternal is not retried here.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Address is the entry address, when known.
	Address string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Address != "" {
		msg = fmt.Sprintf("%s (address=%s)", msg, e.Address)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsInvalidTransaction returns true if err rejects one transaction without
// implicating the store.
func IsInvalidTransaction(err error) bool {
	code := CodeOf(err)
	return code != "" && code != CodeInternal
}

// IsInternal returns true if err is a store failure.
func IsInternal(err error) bool {
	return CodeOf(err) == CodeInternal
}

func newError(code ErrorCode, addr, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Address: addr, Err: cause}
}
