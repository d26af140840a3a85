package envelope

import (
	"errors"
	"fmt"

	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/signing"
)

// ErrVerification is wrapped by every verification failure.
var ErrVerification = errors.New("envelope verification failed")

// VerifyTransaction checks that t's header decodes, commits to t's payload,
// and is signed by the key it names. It returns the decoded header.
func VerifyTransaction(t *Transaction) (*TransactionHeader, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrVerification)
	}
	h, err := t.DecodeHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if h.SignerPublicKey == "" {
		return nil, fmt.Errorf("%w: header has no signer", ErrVerification)
	}
	if got := ir.PayloadHash(t.Payload); got != h.PayloadSHA512 {
		return nil, fmt.Errorf("%w: payload digest mismatch", ErrVerification)
	}
	if err := signing.Verify(h.SignerPublicKey, t.Header, t.HeaderSignature); err != nil {
		return nil, fmt.Errorf("%w: transaction %.16s: %w", ErrVerification, t.HeaderSignature, err)
	}
	return h, nil
}

// VerifyBatch checks the batch signature, that the header lists exactly the
// contained transaction ids in order, that every transaction names the batch
// signer as batcher, and that every transaction verifies.
func VerifyBatch(b *Batch) (*BatchHeader, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil batch", ErrVerification)
	}
	h, err := b.DecodeHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if err := signing.Verify(h.SignerPublicKey, b.Header, b.HeaderSignature); err != nil {
		return nil, fmt.Errorf("%w: batch %.16s: %w", ErrVerification, b.HeaderSignature, err)
	}
	if len(b.Transactions) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrVerification)
	}
	if len(h.TransactionIDs) != len(b.Transactions) {
		return nil, fmt.Errorf("%w: header lists %d transactions, batch holds %d",
			ErrVerification, len(h.TransactionIDs), len(b.Transactions))
	}

	for i, t := range b.Transactions {
		if h.TransactionIDs[i] != t.ID() {
			return nil, fmt.Errorf("%w: transaction %d id does not match batch header", ErrVerification, i)
		}
		th, err := VerifyTransaction(t)
		if err != nil {
			return nil, err
		}
		if th.BatcherPublicKey != h.SignerPublicKey {
			return nil, fmt.Errorf("%w: transaction %d names a different batcher", ErrVerification, i)
		}
	}
	return h, nil
}
