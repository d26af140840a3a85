package signing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/carlog/internal/ir"
)

// ErrInvalidProof is wrapped by every identity proof failure.
var ErrInvalidProof = errors.New("invalid identity proof")

const proofSep = ":"

// IdentityChallenge is the message an identity proof signs for vin.
func IdentityChallenge(vin string) []byte {
	return ir.DigestWithDomain(ir.DomainIdentity, []byte(vin))
}

// NewIdentityProof returns "<pubkey>:<signature>" binding signer to vin.
// The proof reveals nothing about the private key.
func NewIdentityProof(s *Signer, vin string) string {
	return s.PublicKey() + proofSep + s.Sign(IdentityChallenge(vin))
}

// VerifyIdentityProof checks proof against vin and returns the public key it
// declares.
func VerifyIdentityProof(proof, vin string) (string, error) {
	pub, sig, ok := strings.Cut(proof, proofSep)
	if !ok || pub == "" || sig == "" {
		return "", fmt.Errorf("%w: expected <pubkey>%s<signature>", ErrInvalidProof, proofSep)
	}
	if err := Verify(pub, IdentityChallenge(vin), sig); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return pub, nil
}
