package testutil

import (
	"fmt"
	"sync"
)

// SequentialNonces yields "<prefix>-0001", "<prefix>-0002", ...
//
// Implements envelope.NonceGenerator.
//
// Thread-safety: SequentialNonces is safe for concurrent use via internal mutex.
type SequentialNonces struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialNonces creates a generator. An empty prefix means "nonce".
func NewSequentialNonces(prefix string) *SequentialNonces {
	if prefix == "" {
		prefix = "nonce"
	}
	return &SequentialNonces{prefix: prefix}
}

// Generate returns the next nonce.
func (g *SequentialNonces) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// FixedNonce returns the same nonce every time. Two transactions built from
// the same operation with a FixedNonce are identical, which is how tests
// provoke duplicate ids.
type FixedNonce string

// Generate returns the nonce.
func (n FixedNonce) Generate() string {
	return string(n)
}
