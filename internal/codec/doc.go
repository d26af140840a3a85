// Package codec converts operations and ledger entries to and from bytes.
//
// Two payload formats are understood:
//
//   - Tagged records (written by default): an RFC 8785 canonical JSON object
//     carrying a version field "v", the operation tag "op" and exactly the
//     fields that tag defines. Free text may contain any character.
//
//   - Legacy delimited text: "op,VIN,identity_proof,..." with work codes
//     joined by "|". Kept so payloads produced by older clients still decode.
//     It has no version field, and values containing a delimiter cannot be
//     represented; EncodeLegacy refuses them.
//
// Decode detects the format from the first byte. Decoding is strict: a field
// set or field count that does not match the tag is an ARITY_MISMATCH, a
// work code that is not an integer is a BAD_WORK_CODE.
//
// Round-trip law: Decode(Encode(op)) == op for every valid operation.
// Deletion is not negated here - ir.Operation.Delta does that, so the
// decoded operation keeps the codes exactly as the caller supplied them.
package codec
