package processor

import (
	"context"

	"github.com/roach88/carlog/internal/ir"
)

// State is the key-value store a handler reads and writes.
//
// GetState returns the values present at the requested addresses; absent
// addresses are missing from the map. SetState returns the addresses it
// actually wrote; fewer than requested signals a store-level rejection.
type State interface {
	GetState(ctx context.Context, addresses []string) (map[string][]byte, error)
	SetState(ctx context.Context, entries map[string][]byte) ([]string, error)
}

// Request is one transaction as seen by a handler.
type Request struct {
	// TxID identifies the transaction in logs.
	TxID string

	// Signer is the hex public key that signed the transaction header.
	Signer string

	// Payload is the raw operation payload.
	Payload []byte

	// Timestamp is the unix time, in seconds, assigned by the execution
	// environment. Every replica applies the same value.
	Timestamp int64
}

// Handler applies transactions of one family.
type Handler interface {
	FamilyName() string
	FamilyVersions() []string
	Namespaces() []string

	// Apply evaluates one transaction against state. It returns the entry
	// written, or nil if nothing was written.
	Apply(ctx context.Context, req Request, state State) (*ir.LedgerEntry, error)
}
