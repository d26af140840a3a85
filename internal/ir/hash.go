package ir

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
)

// Address layout: 6 hex chars of namespace prefix followed by 64 hex chars
// of key hash. Both halves are taken from hex-encoded SHA-512 digests.
const (
	PrefixLength  = 6
	KeyHashLength = 64
	AddressLength = PrefixLength + KeyHashLength
)

// Domain prefixes for domain-separated SHA-256 digests.
// Version suffix enables future algorithm migration.
const (
	DomainIdentity = "carlog/identity/v1"
	DomainTrace    = "carlog/trace/v1"
)

// Sha512Hex returns the hex-encoded SHA-512 digest of data.
func Sha512Hex(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// PayloadHash is the digest carried in a transaction header. Any change to
// the payload bytes changes it, which in turn invalidates the header
// signature.
func PayloadHash(payload []byte) string {
	return Sha512Hex(payload)
}

// NamespacePrefix returns the first six hex chars of SHA-512(family).
func NamespacePrefix(family string) string {
	return Sha512Hex([]byte(family))[:PrefixLength]
}

// DeriveAddress maps a key (a VIN) to its state address within family.
// Pure function: the client computes it to declare inputs/outputs and the
// processor recomputes it independently; both MUST agree bit for bit.
func DeriveAddress(family, key string) string {
	return NamespacePrefix(family) + Sha512Hex([]byte(key))[:KeyHashLength]
}

// HashWithDomain computes SHA-256(domain + 0x00 + data) as hex.
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DigestWithDomain is HashWithDomain returning raw bytes, for signing.
func DigestWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// IsAddress reports whether s has the shape of a state address:
// exactly AddressLength lowercase hex characters.
func IsAddress(s string) bool {
	if len(s) != AddressLength {
		return false
	}
	return isLowerHex(s)
}

// IsAddressPrefix reports whether s is a non-empty lowercase hex prefix no
// longer than a full address.
func IsAddressPrefix(s string) bool {
	if s == "" || len(s) > AddressLength {
		return false
	}
	return isLowerHex(s)
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Namespace is the address namespace of one transaction family.
// It is computed once at startup and passed to the components that need it;
// nothing recomputes the prefix ad hoc.
type Namespace struct {
	family string
	prefix string
}

// NewNamespace computes the namespace for a family name.
func NewNamespace(family string) (Namespace, error) {
	if strings.TrimSpace(family) == "" {
		return Namespace{}, fmt.Errorf("namespace: family name is required")
	}
	return Namespace{family: family, prefix: NamespacePrefix(family)}, nil
}

// MustNamespace is like NewNamespace but panics on error.
// Use only for constant family names.
func MustNamespace(family string) Namespace {
	ns, err := NewNamespace(family)
	if err != nil {
		panic(err)
	}
	return ns
}

// Family returns the family name the namespace was built from.
func (n Namespace) Family() string { return n.family }

// Prefix returns the six-character namespace prefix.
func (n Namespace) Prefix() string { return n.prefix }

// Address derives the state address of key within this namespace.
func (n Namespace) Address(key string) string {
	return n.prefix + Sha512Hex([]byte(key))[:KeyHashLength]
}

// Contains reports whether addr is a well-formed address in this namespace.
func (n Namespace) Contains(addr string) bool {
	return IsAddress(addr) && strings.HasPrefix(addr, n.prefix)
}

// IsZero reports whether the namespace was never initialised.
func (n Namespace) IsZero() bool { return n.prefix == "" }
