package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/signing"
)

// CarLogger is the Handler of the carLogger family.
type CarLogger struct {
	ns            ir.Namespace
	logger        *slog.Logger
	lenientCreate bool
}

// Option configures a CarLogger.
type Option func(*CarLogger)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *CarLogger) { h.logger = l }
}

// WithLenientCreate makes a create on a Present address a logged no-op
// instead of ALREADY_EXISTS, as early deployments behaved.
func WithLenientCreate() Option {
	return func(h *CarLogger) { h.lenientCreate = true }
}

// New creates the handler for namespace ns.
func New(ns ir.Namespace, opts ...Option) *CarLogger {
	h := &CarLogger{ns: ns, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FamilyName implements Handler.
func (h *CarLogger) FamilyName() string { return h.ns.Family() }

// FamilyVersions implements Handler.
func (h *CarLogger) FamilyVersions() []string { return []string{ir.FamilyVersion} }

// Namespaces implements Handler.
func (h *CarLogger) Namespaces() []string { return []string{h.ns.Prefix()} }

// Apply implements Handler.
func (h *CarLogger) Apply(ctx context.Context, req Request, state State) (*ir.LedgerEntry, error) {
	op, err := codec.Decode(req.Payload)
	if err != nil {
		return nil, newError(CodeDecode, "", "payload rejected", err)
	}
	addr := h.ns.Address(op.VIN)
	log := h.logger.With("tx_id", req.TxID, "op", string(op.Kind), "address", addr)

	if op.Kind == ir.OpHistory {
		return nil, newError(CodeUnsupported, addr, "history is a read path, not a transaction", nil)
	}

	declared, err := signing.VerifyIdentityProof(op.IdentityProof, op.VIN)
	if err != nil {
		return nil, newError(CodeIdentityMismatch, addr, "identity proof does not verify", err)
	}
	if !signing.SamePublicKey(declared, req.Signer) {
		return nil, newError(CodeIdentityMismatch, addr,
			fmt.Sprintf("proof declares %.16s, transaction signed by %.16s", declared, req.Signer), nil)
	}

	current, err := state.GetState(ctx, []string{addr})
	if err != nil {
		return nil, newError(CodeInternal, addr, "state read failed", err)
	}
	_, present := current[addr]

	var next ir.LedgerEntry
	switch op.Kind {
	case ir.OpCreate:
		if present {
			if h.lenientCreate {
				log.Warn("vin already registered, create ignored", "vin", op.VIN)
				return nil, nil
			}
			return nil, newError(CodeAlreadyExists, addr, fmt.Sprintf("vin %s already registered", op.VIN), nil)
		}
		next = ir.LedgerEntry{
			VIN:         op.VIN,
			Identity:    req.Signer,
			WorkDate:    op.WorkDate,
			Description: op.Description,
			Brand:       op.Brand,
			Model:       op.Model,
			Timestamp:   req.Timestamp,
		}

	case ir.OpAdd, ir.OpDelete:
		if !present {
			return nil, newError(CodeNotFound, addr, fmt.Sprintf("vin %s is not registered", op.VIN), nil)
		}
		next = ir.LedgerEntry{
			VIN:         op.VIN,
			Identity:    req.Signer,
			WorkDate:    op.WorkDate,
			Work:        op.Delta(),
			Mileage:     op.Odometer,
			Description: op.Description,
			Timestamp:   req.Timestamp,
		}
	}

	data, err := codec.EncodeEntry(next)
	if err != nil {
		return nil, newError(CodeInternal, addr, "entry encoding failed", err)
	}

	written, err := state.SetState(ctx, map[string][]byte{addr: data})
	if err != nil {
		return nil, newError(CodeInternal, addr, "state write failed", err)
	}
	if len(written) < 1 {
		return nil, newError(CodeInternal, addr, "store rejected the write", nil)
	}

	log.Debug("entry written", "work", next.WorkString(), "mileage", next.Mileage)
	return &next, nil
}
