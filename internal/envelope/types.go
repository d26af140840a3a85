package envelope

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// TransactionHeader is the signed description of one transaction.
type TransactionHeader struct {
	BatcherPublicKey string
	Dependencies     []string
	FamilyName       string
	FamilyVersion    string
	Inputs           []string
	Nonce            string
	Outputs          []string
	PayloadSHA512    string
	SignerPublicKey  string
}

// Marshal encodes the header. Fields are written in field-number order, so
// equal headers always produce equal bytes.
func (h *TransactionHeader) Marshal() []byte {
	var b []byte
	b = appendString(b, txhBatcherPublicKey, h.BatcherPublicKey)
	b = appendStrings(b, txhDependencies, h.Dependencies)
	b = appendString(b, txhFamilyName, h.FamilyName)
	b = appendString(b, txhFamilyVersion, h.FamilyVersion)
	b = appendStrings(b, txhInputs, h.Inputs)
	b = appendString(b, txhNonce, h.Nonce)
	b = appendStrings(b, txhOutputs, h.Outputs)
	b = appendString(b, txhPayloadSHA512, h.PayloadSHA512)
	b = appendString(b, txhSignerPublicKey, h.SignerPublicKey)
	return b
}

// UnmarshalTransactionHeader decodes header bytes.
func UnmarshalTransactionHeader(b []byte) (*TransactionHeader, error) {
	h := &TransactionHeader{}
	err := walk(b, func(f field) error {
		var dst *string
		var list *[]string
		switch f.num {
		case txhBatcherPublicKey:
			dst = &h.BatcherPublicKey
		case txhDependencies:
			list = &h.Dependencies
		case txhFamilyName:
			dst = &h.FamilyName
		case txhFamilyVersion:
			dst = &h.FamilyVersion
		case txhInputs:
			list = &h.Inputs
		case txhNonce:
			dst = &h.Nonce
		case txhOutputs:
			list = &h.Outputs
		case txhPayloadSHA512:
			dst = &h.PayloadSHA512
		case txhSignerPublicKey:
			dst = &h.SignerPublicKey
		default:
			return nil
		}

		s, err := f.str()
		if err != nil {
			return err
		}
		if dst != nil {
			*dst = s
		} else {
			*list = append(*list, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transaction header: %w", err)
	}
	return h, nil
}

// Transaction is a signed header plus payload.
type Transaction struct {
	Header          []byte
	HeaderSignature string
	Payload         []byte
}

// ID returns the transaction id, which is its header signature.
func (t *Transaction) ID() string {
	return t.HeaderSignature
}

// DecodeHeader decodes t.Header.
func (t *Transaction) DecodeHeader() (*TransactionHeader, error) {
	return UnmarshalTransactionHeader(t.Header)
}

// Marshal encodes the transaction.
func (t *Transaction) Marshal() []byte {
	var b []byte
	b = appendBytes(b, txHeader, t.Header)
	b = appendString(b, txHeaderSignature, t.HeaderSignature)
	b = appendBytes(b, txPayload, t.Payload)
	return b
}

// UnmarshalTransaction decodes transaction bytes.
func UnmarshalTransaction(b []byte) (*Transaction, error) {
	t := &Transaction{}
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case txHeader:
			t.Header, err = f.raw()
		case txHeaderSignature:
			t.HeaderSignature, err = f.str()
		case txPayload:
			t.Payload, err = f.raw()
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	return t, nil
}

// BatchHeader is the signed description of a batch.
type BatchHeader struct {
	SignerPublicKey string
	TransactionIDs  []string
}

// Marshal encodes the batch header.
func (h *BatchHeader) Marshal() []byte {
	var b []byte
	b = appendString(b, bhSignerPublicKey, h.SignerPublicKey)
	b = appendStrings(b, bhTransactionIDs, h.TransactionIDs)
	return b
}

// UnmarshalBatchHeader decodes batch header bytes.
func UnmarshalBatchHeader(b []byte) (*BatchHeader, error) {
	h := &BatchHeader{}
	err := walk(b, func(f field) error {
		switch f.num {
		case bhSignerPublicKey:
			s, err := f.str()
			h.SignerPublicKey = s
			return err
		case bhTransactionIDs:
			s, err := f.str()
			h.TransactionIDs = append(h.TransactionIDs, s)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch header: %w", err)
	}
	return h, nil
}

// Batch is an ordered, batcher-signed group of transactions. A batch is
// applied as one unit of submission.
type Batch struct {
	Header          []byte
	HeaderSignature string
	Transactions    []*Transaction
	Trace           bool
}

// ID returns the batch id, which is its header signature.
func (b *Batch) ID() string {
	return b.HeaderSignature
}

// DecodeHeader decodes b.Header.
func (b *Batch) DecodeHeader() (*BatchHeader, error) {
	return UnmarshalBatchHeader(b.Header)
}

// Marshal encodes the batch.
func (b *Batch) Marshal() []byte {
	var out []byte
	out = appendBytes(out, batchHeader, b.Header)
	out = appendString(out, batchHeaderSignature, b.HeaderSignature)
	for _, t := range b.Transactions {
		out = protowire.AppendTag(out, batchTransactions, protowire.BytesType)
		out = protowire.AppendBytes(out, t.Marshal())
	}
	out = appendBool(out, batchTrace, b.Trace)
	return out
}

// UnmarshalBatch decodes batch bytes.
func UnmarshalBatch(data []byte) (*Batch, error) {
	b := &Batch{}
	err := walk(data, func(f field) error {
		switch f.num {
		case batchHeader:
			raw, err := f.raw()
			b.Header = raw
			return err
		case batchHeaderSignature:
			s, err := f.str()
			b.HeaderSignature = s
			return err
		case batchTransactions:
			raw, err := f.raw()
			if err != nil {
				return err
			}
			t, err := UnmarshalTransaction(raw)
			if err != nil {
				return err
			}
			b.Transactions = append(b.Transactions, t)
		case batchTrace:
			if f.typ != protowire.VarintType {
				return fmt.Errorf("%w: trace: expected varint", ErrMalformed)
			}
			b.Trace = protowire.DecodeBool(f.varint)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	return b, nil
}

// BatchList is the unit of submission.
type BatchList struct {
	Batches []*Batch
}

// NewBatchList groups batches for submission.
func NewBatchList(batches ...*Batch) *BatchList {
	return &BatchList{Batches: batches}
}

// BatchIDs returns the ids of the batches in order.
func (l *BatchList) BatchIDs() []string {
	ids := make([]string, len(l.Batches))
	for i, b := range l.Batches {
		ids[i] = b.ID()
	}
	return ids
}

// Marshal encodes the batch list.
func (l *BatchList) Marshal() []byte {
	var out []byte
	for _, b := range l.Batches {
		out = protowire.AppendTag(out, blBatches, protowire.BytesType)
		out = protowire.AppendBytes(out, b.Marshal())
	}
	return out
}

// UnmarshalBatchList decodes batch list bytes.
func UnmarshalBatchList(data []byte) (*BatchList, error) {
	l := &BatchList{}
	err := walk(data, func(f field) error {
		if f.num != blBatches {
			return nil
		}
		raw, err := f.raw()
		if err != nil {
			return err
		}
		b, err := UnmarshalBatch(raw)
		if err != nil {
			return err
		}
		l.Batches = append(l.Batches, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch list: %w", err)
	}
	return l, nil
}
