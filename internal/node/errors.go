package node

import "errors"

// Receipt codes assigned by the node itself, before or around the handler.
// Handler rejections carry processor.ErrorCode values.
const (
	// CodeUnsupportedFamily: the header names a family or version the node
	// does not serve.
	CodeUnsupportedFamily = "UNSUPPORTED_FAMILY"

	// CodeDuplicate: a transaction with this id was already committed.
	CodeDuplicate = "DUPLICATE_TRANSACTION"

	// CodeUndeclaredAddress: the handler touched an address the header did
	// not declare as input or output.
	CodeUndeclaredAddress = "UNDECLARED_ADDRESS"
)

// ErrUndeclaredAddress is returned by a transaction's state view when an
// address outside the declared inputs or outputs is accessed.
var ErrUndeclaredAddress = errors.New("address not declared by transaction")

// ErrNoBatchID is returned for a batch without a header signature.
var ErrNoBatchID = errors.New("batch has no id")
