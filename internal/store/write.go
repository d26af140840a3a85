package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WritePending records a received batch as PENDING.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - resubmitting a known
// batch never resets its status.
// Returns true if the batch was not known before.
func (s *Store) WritePending(ctx context.Context, id string, seq, receivedAt int64, txCount int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, status, tx_count, seq, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, BatchPending, txCount, seq, receivedAt)
	if err != nil {
		return false, fmt.Errorf("write pending batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write pending batch: %w", err)
	}
	return n == 1, nil
}

// DropPending forgets a batch that is still PENDING, so that its status reads
// as UNKNOWN and the client may submit it again. Batches with a final status
// are left alone. Returns true if a row was removed.
func (s *Store) DropPending(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM batches WHERE id = ? AND status = ?
	`, id, BatchPending)
	if err != nil {
		return false, fmt.Errorf("drop pending batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop pending batch: %w", err)
	}
	return n == 1, nil
}

// BatchTx applies one batch inside a single SQL transaction.
//
// Not safe for concurrent use; the node's single writer owns it.
type BatchTx struct {
	tx *sql.Tx
}

// BeginBatch starts a batch transaction. Call Commit or Rollback.
func (s *Store) BeginBatch(ctx context.Context) (*BatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &BatchTx{tx: tx}, nil
}

// Commit makes the batch's writes visible.
func (b *BatchTx) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch's writes. Safe to call after Commit.
func (b *BatchTx) Rollback() error {
	err := b.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// GetState reads the values at addresses as seen inside this batch.
// Absent addresses are missing from the result.
func (b *BatchTx) GetState(ctx context.Context, addresses []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(addresses))
	for _, addr := range addresses {
		var data []byte
		err := b.tx.QueryRowContext(ctx, `SELECT data FROM state WHERE address = ?`, addr).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get state: %w", err)
		}
		out[addr] = data
	}
	return out, nil
}

// PutState replaces the value at address.
func (b *BatchTx) PutState(ctx context.Context, address string, data []byte, seq int64, txID string) error {
	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO state (address, data, seq, tx_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET data = excluded.data, seq = excluded.seq, tx_id = excluded.tx_id
	`, address, data, seq, txID)
	if err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}

// ReadBatch returns the batch with the given id as seen inside this batch
// transaction.
func (b *BatchTx) ReadBatch(ctx context.Context, id string) (rec BatchRecord, found bool, err error) {
	err = b.tx.QueryRowContext(ctx, `
		SELECT id, status, message, tx_count, seq, received_at FROM batches WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Status, &rec.Message, &rec.TxCount, &rec.Seq, &rec.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BatchRecord{}, false, nil
	}
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("read batch: %w", err)
	}
	return rec, true, nil
}

// IsCommitted reports whether txID was already applied by an earlier batch.
func (b *BatchTx) IsCommitted(ctx context.Context, txID string) (bool, error) {
	var n int
	err := b.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE id = ? AND status = ?
	`, txID, TxCommitted).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is committed: %w", err)
	}
	return n > 0, nil
}

// WriteReceipt records the outcome of one transaction.
// The batch row must exist (foreign key constraint).
func (b *BatchTx) WriteReceipt(ctx context.Context, r Receipt) error {
	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO transactions (batch_id, idx, id, address, status, code, message, seq, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.BatchID, r.Index, r.TxID, r.Address, r.Status, r.Code, r.Message, r.Seq, r.Timestamp)
	if err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// FinishBatch writes the final status of a batch, creating the row if the
// batch was never recorded as pending.
func (b *BatchTx) FinishBatch(ctx context.Context, rec BatchRecord) error {
	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO batches (id, status, message, tx_count, seq, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			tx_count = excluded.tx_count,
			seq = excluded.seq
	`, rec.ID, rec.Status, rec.Message, rec.TxCount, rec.Seq, rec.ReceivedAt)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

// View returns the processor-facing state of one transaction. Writes made
// through it are stamped with seq and txID.
func (b *BatchTx) View(seq int64, txID string) *View {
	return &View{b: b, seq: seq, txID: txID}
}

// View adapts a BatchTx to the get/set state interface of a handler.
type View struct {
	b    *BatchTx
	seq  int64
	txID string
}

// GetState implements processor.State.
func (v *View) GetState(ctx context.Context, addresses []string) (map[string][]byte, error) {
	return v.b.GetState(ctx, addresses)
}

// SetState implements processor.State. Addresses are written in the order
// the map yields them; on the first failure the error is returned together
// with the addresses written so far.
func (v *View) SetState(ctx context.Context, entries map[string][]byte) ([]string, error) {
	written := make([]string, 0, len(entries))
	for addr, data := range entries {
		if err := v.b.PutState(ctx, addr, data, v.seq, v.txID); err != nil {
			return written, err
		}
		written = append(written, addr)
	}
	return written, nil
}
