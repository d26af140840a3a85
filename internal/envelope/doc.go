// Package envelope builds and verifies signed transactions and batches.
//
// A Transaction carries serialized header bytes, the header signature and the
// payload. The header commits to the payload through its SHA-512 digest, so
// the signature covers both. A Batch groups transactions under a batcher
// signature over the ordered list of transaction ids. Header signatures are
// the ids.
//
// Headers, transactions and batches use the protobuf wire layout of the
// ledger they are submitted to. They are encoded directly with protowire; the
// field numbers below are the wire contract.
package envelope
