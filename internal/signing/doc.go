// Package signing holds secp256k1 keys, transaction signatures and VIN
// identity proofs.
//
// Signatures are ECDSA over SHA-256 of the message with RFC 6979 nonces, so
// the same key and message always yield the same signature. Keys and
// signatures travel as lowercase hex; public keys are compressed (33 bytes).
package signing
