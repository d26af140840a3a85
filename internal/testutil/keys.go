package testutil

import (
	"github.com/roach88/carlog/internal/signing"
)

// Well-known keys. Private keys 1 and 2 map to the generator point G and 2G,
// which makes their public keys easy to check against published vectors.
const (
	AliceKeyHex    = "0000000000000000000000000000000000000000000000000000000000000001"
	AlicePublicKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	BobKeyHex      = "0000000000000000000000000000000000000000000000000000000000000002"
	BobPublicKey   = "02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
)

// MustSigner parses a hex private key or panics.
func MustSigner(hexKey string) *signing.Signer {
	s, err := signing.ParsePrivateKeyHex(hexKey)
	if err != nil {
		panic(err)
	}
	return s
}

// Alice returns the signer for AliceKeyHex.
func Alice() *signing.Signer { return MustSigner(AliceKeyHex) }

// Bob returns the signer for BobKeyHex.
func Bob() *signing.Signer { return MustSigner(BobKeyHex) }
