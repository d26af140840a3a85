// Package testutil provides deterministic stand-ins for the sources of
// nondeterminism in carlog: wall-clock time, header nonces and keys.
//
// With a StepClock, SequentialNonces and the fixed keys below, building and
// applying the same operations always yields byte-identical transactions,
// receipts and traces. Signatures are deterministic (RFC 6979), so the
// transaction ids are stable too.
package testutil
