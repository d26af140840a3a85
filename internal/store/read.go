package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DefaultListLimit caps ListState when no limit is given.
const DefaultListLimit = 1000

// ReadState returns the entry at address. found is false if the address
// is absent.
func (s *Store) ReadState(ctx context.Context, address string) (e Entry, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT address, data, seq, tx_id FROM state WHERE address = ?
	`, address).Scan(&e.Address, &e.Data, &e.Seq, &e.TxID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read state: %w", err)
	}
	return e, true, nil
}

// ListState returns entries whose address starts with prefix, ordered by
// address. An empty prefix lists everything. limit <= 0 means
// DefaultListLimit.
func (s *Store) ListState(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, data, seq, tx_id FROM state
		WHERE substr(address, 1, ?) = ?
		ORDER BY address COLLATE BINARY ASC
		LIMIT ?
	`, len(prefix), prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Address, &e.Data, &e.Seq, &e.TxID); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return entries, nil
}

// ReadBatch returns the batch with the given id. found is false if the
// batch was never received.
func (s *Store) ReadBatch(ctx context.Context, id string) (b BatchRecord, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, status, message, tx_count, seq, received_at FROM batches WHERE id = ?
	`, id).Scan(&b.ID, &b.Status, &b.Message, &b.TxCount, &b.Seq, &b.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BatchRecord{}, false, nil
	}
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("read batch: %w", err)
	}
	return b, true, nil
}

// ReadReceipts returns the receipts of the given transaction ids, ordered by
// (seq, idx). Unknown ids are skipped. A transaction id that appears in
// several batches yields one receipt per batch.
func (s *Store) ReadReceipts(ctx context.Context, txIDs []string) ([]Receipt, error) {
	if len(txIDs) == 0 {
		return []Receipt{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(txIDs)), ",")
	args := make([]any, len(txIDs))
	for i, id := range txIDs {
		args[i] = id
	}

	return s.queryReceipts(ctx, `
		SELECT batch_id, idx, id, address, status, code, message, seq, timestamp
		FROM transactions
		WHERE id IN (`+placeholders+`)
		ORDER BY seq ASC, idx ASC
	`, args...)
}

// BatchReceipts returns the receipts of one batch in transaction order.
func (s *Store) BatchReceipts(ctx context.Context, batchID string) ([]Receipt, error) {
	return s.queryReceipts(ctx, `
		SELECT batch_id, idx, id, address, status, code, message, seq, timestamp
		FROM transactions
		WHERE batch_id = ?
		ORDER BY idx ASC
	`, batchID)
}

func (s *Store) queryReceipts(ctx context.Context, query string, args ...any) ([]Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []Receipt{}
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(&r.BatchID, &r.Index, &r.TxID, &r.Address, &r.Status,
			&r.Code, &r.Message, &r.Seq, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

// MaxSeq returns the highest seq recorded anywhere, or 0 for an empty store.
// The node restores its logical clock from it on startup.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			(SELECT COALESCE(MAX(seq), 0) FROM batches),
			(SELECT COALESCE(MAX(seq), 0) FROM transactions),
			(SELECT COALESCE(MAX(seq), 0) FROM state)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}
