package envelope

import (
	"github.com/google/uuid"
)

// NonceGenerator produces transaction header nonces. A nonce makes two
// otherwise identical transactions distinct.
type NonceGenerator interface {
	Generate() string
}

// UUIDv7Nonce generates time-sortable UUIDv7 nonces.
//
// Thread-safety: UUIDv7Nonce is stateless and safe for concurrent use.
type UUIDv7Nonce struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Nonce) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
