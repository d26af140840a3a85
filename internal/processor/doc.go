// Package processor is the entry state machine of the carLogger family.
//
// Each address is either Absent or Present(LedgerEntry). A transaction is
// evaluated in a fixed order:
//
//  1. decode the payload;
//  2. reject history, which is a read path and never a transaction;
//  3. check that the identity proof verifies and declares the signer's key;
//  4. create: Absent -> Present, Present -> ALREADY_EXISTS;
//  5. add and delete: Present -> replace the entry wholesale,
//     Absent -> NOT_FOUND. Delete contributes negated work codes.
//
// Apply performs exactly one state read and at most one state write. It
// never retries, never spawns goroutines and keeps no state between calls,
// so it may run concurrently for transactions on disjoint addresses.
package processor
