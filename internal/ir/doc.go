// Package ir provides the canonical types shared by every carlog component.
//
// This package contains the ledger data model (LedgerEntry, Operation), the
// deterministic address derivation used by both the envelope builder and the
// entry processor, and the RFC 8785 canonical JSON encoder used for payloads,
// stored entries and golden traces. ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64
//   - Address derivation is a pure function of (family name, key)
//   - All JSON keys use snake_case
//   - Canonical encoding is the only encoding used for hashed or stored bytes
package ir
