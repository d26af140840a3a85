// Package store provides SQLite-backed durable storage for the node:
// current entry state, batch statuses and per-transaction receipts.
//
// # Tables
//
//   - state: one row per entry address; the value replaced by each write
//   - batches: one row per submitted batch with its status
//   - transactions: one receipt per transaction of a processed batch
//
// # Critical Patterns
//
// Logical time: every state row, batch and receipt carries the seq of the
// logical clock tick that produced it. Ordering uses seq, never timestamps.
//
// Atomic batches: a batch is processed inside one SQL transaction
// (BatchTx). Its state writes, receipts and final status become visible
// together or not at all.
//
// Deterministic reads: listing queries order by address or by
// (seq, idx), so identical histories read back identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
