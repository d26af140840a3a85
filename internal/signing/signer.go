package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Sentinel errors.
var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// PrivateKeyHexLength is the length of a hex-encoded private key.
const PrivateKeyHexLength = 2 * secp256k1.PrivKeyBytesLen

// Signer signs messages with one private key. It is read-only after
// construction and safe for concurrent use.
type Signer struct {
	priv   *secp256k1.PrivateKey
	pubHex string
}

// NewSigner wraps a private key.
func NewSigner(priv *secp256k1.PrivateKey) *Signer {
	return &Signer{
		priv:   priv,
		pubHex: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}
}

// GenerateKey creates a signer with a fresh random key.
func GenerateKey() (*Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewSigner(priv), nil
}

// ParsePrivateKeyHex builds a signer from a 64-character hex private key.
func ParsePrivateKeyHex(s string) (*Signer, error) {
	s = strings.TrimSpace(s)
	if len(s) != PrivateKeyHexLength {
		return nil, fmt.Errorf("%w: expected %d hex chars, got %d", ErrInvalidKey, PrivateKeyHexLength, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidKey)
	}
	return NewSigner(secp256k1.NewPrivateKey(&scalar)), nil
}

// PublicKey returns the compressed public key as hex.
func (s *Signer) PublicKey() string {
	return s.pubHex
}

// PrivateKeyHex returns the private key as hex.
func (s *Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.priv.Serialize())
}

// Sign returns the hex DER signature of SHA-256(msg).
func (s *Signer) Sign(msg []byte) string {
	hash := sha256.Sum256(msg)
	return hex.EncodeToString(ecdsa.Sign(s.priv, hash[:]).Serialize())
}

// ParsePublicKeyHex parses a hex compressed or uncompressed public key.
func ParsePublicKeyHex(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// SamePublicKey reports whether a and b encode the same point. Compressed and
// uncompressed forms match, and hex case is ignored. Unparsable keys never
// match.
func SamePublicKey(a, b string) bool {
	pa, err := ParsePublicKeyHex(a)
	if err != nil {
		return false
	}
	pb, err := ParsePublicKeyHex(b)
	if err != nil {
		return false
	}
	return pa.IsEqual(pb)
}

// Verify checks sigHex against msg for the hex public key pubHex.
func Verify(pubHex string, msg []byte, sigHex string) error {
	pub, err := ParsePublicKeyHex(pubHex)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sig, err := ecdsa.ParseDERSignature(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	hash := sha256.Sum256(msg)
	if !sig.Verify(hash[:], pub) {
		return fmt.Errorf("%w: verification failed", ErrInvalidSignature)
	}
	return nil
}
