// Package harness runs carlog conformance scenarios.
//
// A scenario is a YAML file listing write and history steps signed by named
// keys. Each scenario runs against a fresh in-memory node: every write step
// is built, signed and wrapped into its own batch, then applied through
// node.ProcessBatch, so the full envelope, verification and processor path
// is exercised. Clock, nonces and keys are deterministic, which makes the
// resulting trace byte-stable and suitable for golden comparison.
//
// Step outcomes:
//
//	COMMITTED              the write was applied
//	<error code>           the write was rejected (ALREADY_EXISTS, NOT_FOUND, ...)
//	INVALID                the batch failed verification
//	FOUND / ABSENT         result of a history step
//
// Assertions run after the last step and check final entries and outcome
// counts. Golden traces live in testdata/golden/<scenario>.golden.
package harness
