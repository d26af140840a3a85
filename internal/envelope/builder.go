package envelope

import (
	"errors"
	"fmt"

	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/ir"
)

// Signer signs header bytes. *signing.Signer implements it.
type Signer interface {
	PublicKey() string
	Sign(msg []byte) string
}

// Encoder turns an operation into payload bytes.
type Encoder func(op ir.Operation) ([]byte, error)

// Builder produces transactions and batches for one signer and namespace.
//
// A Builder holds no mutable state apart from its nonce generator and is safe
// for concurrent use when that generator is.
type Builder struct {
	signer  Signer
	batcher Signer
	ns      ir.Namespace
	version string
	nonces  NonceGenerator
	encode  Encoder
}

// Option configures a Builder.
type Option func(*Builder)

// WithBatcher signs batches with a key other than the transaction signer.
func WithBatcher(s Signer) Option {
	return func(b *Builder) { b.batcher = s }
}

// WithNonces replaces the UUIDv7 nonce generator.
func WithNonces(g NonceGenerator) Option {
	return func(b *Builder) { b.nonces = g }
}

// WithEncoder replaces the payload encoder, e.g. with codec.EncodeLegacy.
func WithEncoder(e Encoder) Option {
	return func(b *Builder) { b.encode = e }
}

// WithFamilyVersion overrides the family version written into headers.
func WithFamilyVersion(v string) Option {
	return func(b *Builder) { b.version = v }
}

// NewBuilder creates a builder. ns must not be zero.
func NewBuilder(signer Signer, ns ir.Namespace, opts ...Option) (*Builder, error) {
	if signer == nil {
		return nil, errors.New("envelope: signer is required")
	}
	if ns.IsZero() {
		return nil, errors.New("envelope: namespace is required")
	}
	b := &Builder{
		signer:  signer,
		batcher: signer,
		ns:      ns,
		version: ir.FamilyVersion,
		nonces:  UUIDv7Nonce{},
		encode:  codec.Encode,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build encodes op and wraps it in a signed transaction whose inputs and
// outputs are exactly the entry address of op.VIN.
func (b *Builder) Build(op ir.Operation) (*Transaction, error) {
	payload, err := b.encode(op)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op.Kind, err)
	}
	return b.BuildPayload(b.ns.Address(op.VIN), payload), nil
}

// BuildPayload signs an already encoded payload addressed to address.
func (b *Builder) BuildPayload(address string, payload []byte) *Transaction {
	header := &TransactionHeader{
		BatcherPublicKey: b.batcher.PublicKey(),
		FamilyName:       b.ns.Family(),
		FamilyVersion:    b.version,
		Inputs:           []string{address},
		Nonce:            b.nonces.Generate(),
		Outputs:          []string{address},
		PayloadSHA512:    ir.PayloadHash(payload),
		SignerPublicKey:  b.signer.PublicKey(),
	}
	raw := header.Marshal()
	return &Transaction{
		Header:          raw,
		HeaderSignature: b.signer.Sign(raw),
		Payload:         payload,
	}
}

// Wrap groups txs into a batch signed by the batcher.
func (b *Builder) Wrap(txs ...*Transaction) (*Batch, error) {
	if len(txs) == 0 {
		return nil, errors.New("envelope: a batch needs at least one transaction")
	}
	ids := make([]string, len(txs))
	for i, t := range txs {
		ids[i] = t.ID()
	}
	header := &BatchHeader{
		SignerPublicKey: b.batcher.PublicKey(),
		TransactionIDs:  ids,
	}
	raw := header.Marshal()
	return &Batch{
		Header:          raw,
		HeaderSignature: b.batcher.Sign(raw),
		Transactions:    txs,
	}, nil
}
