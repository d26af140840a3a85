// Package api serves a node over a Sawtooth-style REST interface.
//
// Routes:
//
//	POST /batches                 submit a protobuf BatchList
//	GET  /batch_statuses?id=a,b   batch status and rejected transactions
//	GET  /state/{address}         raw entry bytes at one address
//	GET  /state?address=prefix    entries under an address prefix
//	GET  /receipts?id=t1,t2       transaction receipts
//	GET  /healthz                 store liveness
//
// Successful bodies carry "data" and, where useful, "link" and "head".
// Failures carry {"error": {"code": ..., "message": ...}}.
package api
