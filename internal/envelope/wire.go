package envelope

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// TransactionHeader field numbers.
const (
	txhBatcherPublicKey protowire.Number = 1
	txhDependencies     protowire.Number = 2
	txhFamilyName       protowire.Number = 3
	txhFamilyVersion    protowire.Number = 4
	txhInputs           protowire.Number = 5
	txhNonce            protowire.Number = 6
	txhOutputs          protowire.Number = 7
	txhPayloadSHA512    protowire.Number = 9
	txhSignerPublicKey  protowire.Number = 10
)

// Transaction field numbers.
const (
	txHeader          protowire.Number = 1
	txHeaderSignature protowire.Number = 2
	txPayload         protowire.Number = 3
)

// BatchHeader field numbers.
const (
	bhSignerPublicKey protowire.Number = 1
	bhTransactionIDs  protowire.Number = 2
)

// Batch field numbers.
const (
	batchHeader          protowire.Number = 1
	batchHeaderSignature protowire.Number = 2
	batchTransactions    protowire.Number = 3
	batchTrace           protowire.Number = 4
)

// BatchList field numbers.
const blBatches protowire.Number = 1

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed envelope")

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendStrings(b []byte, num protowire.Number, ss []string) []byte {
	for _, s := range ss {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	return b
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// field is one decoded top-level field.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

// walk decodes b into fields. Unknown fields are skipped by the callers;
// groups are rejected.
func walk(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			f.bytes = v
			n = m
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			f.varint = v
			n = m
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			n = m
		}
		b = b[n:]

		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) str() (string, error) {
	if f.typ != protowire.BytesType {
		return "", fmt.Errorf("%w: field %d: expected bytes, got wire type %d", ErrMalformed, f.num, f.typ)
	}
	return string(f.bytes), nil
}

func (f field) raw() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: field %d: expected bytes, got wire type %d", ErrMalformed, f.num, f.typ)
	}
	return append([]byte(nil), f.bytes...), nil
}
