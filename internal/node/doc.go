// Package node is a single-node execution environment for the carLogger
// family: it verifies submitted batches, applies their transactions through
// a processor.Handler, and records state, receipts and batch statuses in a
// store.Store.
//
// Batches are applied one at a time by a single writer (Run), which gives a
// total order without any consensus. Each batch runs in one SQL transaction:
// its writes, receipts and final status become visible together.
//
// Batch status lifecycle:
//
//	PENDING -> COMMITTED  every transaction applied
//	        -> PARTIAL    some applied, some rejected
//	        -> REJECTED   every transaction rejected
//	        -> INVALID    verification failed, nothing applied
//
// A rejected transaction never aborts its siblings.
package node
