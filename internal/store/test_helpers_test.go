package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// commitBatch writes a batch with the given state puts and receipts.
func commitBatch(t *testing.T, s *Store, rec BatchRecord, puts map[string]string, receipts ...Receipt) {
	t.Helper()
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() failed: %v", err)
	}
	defer b.Rollback()

	if err := b.FinishBatch(ctx, rec); err != nil {
		t.Fatalf("FinishBatch() failed: %v", err)
	}
	for addr, data := range puts {
		if err := b.PutState(ctx, addr, []byte(data), rec.Seq, "tx-"+rec.ID); err != nil {
			t.Fatalf("PutState() failed: %v", err)
		}
	}
	for _, r := range receipts {
		if err := b.WriteReceipt(ctx, r); err != nil {
			t.Fatalf("WriteReceipt() failed: %v", err)
		}
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}
