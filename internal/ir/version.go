package ir

// Transaction family identity. FamilyName is shared with the original
// ledger deployment, so addresses derived here match existing state.
const (
	// FamilyName is the transaction family handled by the entry processor.
	FamilyName = "carLogger"

	// FamilyVersion is the only family version the processor accepts.
	FamilyVersion = "1.0"

	// PayloadVersion is the value of the "v" field in tagged-record payloads.
	PayloadVersion = 1
)
