package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/carlog/internal/envelope"
	"github.com/roach88/carlog/internal/processor"
	"github.com/roach88/carlog/internal/store"
)

// DefaultQueueSize is the default number of batches that may wait for the
// writer.
const DefaultQueueSize = 256

// Node applies batches to a store through one handler.
//
// Thread-safety model:
//   - Submit(), reads: safe from any goroutine
//   - Run(), ProcessBatch(): must be called from exactly one goroutine
//     (ProcessBatch is Run's core; tests and the harness call it directly
//     instead of running the loop)
type Node struct {
	store   *store.Store
	handler processor.Handler
	clock   *Clock
	now     func() time.Time
	queue   *batchQueue
	logger  *slog.Logger

	// submitMu orders Submit against shutdown: a batch is either queued with
	// its PENDING row written, or refused.
	submitMu sync.Mutex
}

// Option configures a Node.
type Option func(*Node)

// WithClock replaces the logical clock restored from the store.
func WithClock(c *Clock) Option {
	return func(n *Node) { n.clock = c }
}

// WithNow sets the wall-clock source used for receipt timestamps.
// Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(n *Node) { n.now = now }
}

// WithQueueSize bounds the number of queued batches.
// Default: 256 batches (DefaultQueueSize).
func WithQueueSize(size int) Option {
	return func(n *Node) {
		if size > 0 {
			n.queue = newBatchQueue(size)
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// New creates a node. The logical clock resumes after the highest seq
// already recorded in s.
func New(ctx context.Context, s *store.Store, h processor.Handler, opts ...Option) (*Node, error) {
	n := &Node{
		store:   s,
		handler: h,
		now:     time.Now,
		queue:   newBatchQueue(DefaultQueueSize),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.clock == nil {
		seq, err := s.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("restore clock: %w", err)
		}
		n.clock = NewClockAt(seq)
	}
	return n, nil
}

// Store returns the node's store for read paths.
func (n *Node) Store() *store.Store {
	return n.store
}

// Handler returns the node's handler.
func (n *Node) Handler() processor.Handler {
	return n.handler
}

// Submit queues every batch of list for the writer and records it as
// PENDING. Either every batch is queued or none is, and a refused batch
// leaves nothing in the store. Returns the batch ids.
func (n *Node) Submit(ctx context.Context, list *envelope.BatchList) ([]string, error) {
	if list == nil || len(list.Batches) == 0 {
		return nil, errors.New("submit: no batches")
	}
	for i, b := range list.Batches {
		if b.ID() == "" {
			return nil, fmt.Errorf("submit: batch %d: %w", i, ErrNoBatchID)
		}
	}

	n.submitMu.Lock()
	defer n.submitMu.Unlock()

	if err := n.queue.Enqueue(list.Batches...); err != nil {
		return nil, err
	}

	receivedAt := n.now().Unix()
	for _, b := range list.Batches {
		if _, err := n.store.WritePending(ctx, b.ID(), 0, receivedAt, len(b.Transactions)); err != nil {
			// Still queued; the status reads UNKNOWN until the writer gets to it.
			n.logger.Warn("pending status not recorded", "batch_id", b.ID(), "error", err)
		}
	}

	n.logger.Debug("batches queued", "count", len(list.Batches), "queue_len", n.queue.Len())
	return list.BatchIDs(), nil
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop is called and the queue drains.
// On cancellation the batches still queued are released: their PENDING rows
// are dropped so their status reads UNKNOWN and they may be submitted again.
//
// ERROR HANDLING: a batch that cannot be recorded is logged and released the
// same way. The loop never retries.
func (n *Node) Run(ctx context.Context) error {
	n.logger.Info("node starting", "family", n.handler.FamilyName(), "seq", n.clock.Current())

	for {
		if ctx.Err() != nil {
			return n.shutdown(ctx)
		}
		if b, ok := n.queue.TryDequeue(); ok {
			if _, err := n.ProcessBatch(ctx, b); err != nil {
				n.logger.Error("batch processing failed", "batch_id", b.ID(), "error", err)
				n.release(ctx, b)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return n.shutdown(ctx)

		case <-n.queue.Wait():
			// The signal channel is closed by Close, which makes this case
			// fire immediately.
			if n.queue.Len() == 0 && n.queue.isClosed() {
				n.logger.Info("node stopping: queue closed")
				return nil
			}
		}
	}
}

// shutdown closes the queue and releases every batch still waiting in it.
func (n *Node) shutdown(ctx context.Context) error {
	n.logger.Info("node stopping: context cancelled", "queued", n.queue.Len())

	n.submitMu.Lock()
	n.queue.Close()
	n.submitMu.Unlock()

	for {
		b, ok := n.queue.TryDequeue()
		if !ok {
			return ctx.Err()
		}
		n.release(ctx, b)
	}
}

// release drops the PENDING row of a batch that will not be applied.
func (n *Node) release(ctx context.Context, b *envelope.Batch) {
	dropped, err := n.store.DropPending(context.WithoutCancel(ctx), b.ID())
	if err != nil {
		n.logger.Error("pending batch not released", "batch_id", b.ID(), "error", err)
		return
	}
	if dropped {
		n.logger.Warn("batch released unapplied", "batch_id", b.ID())
	}
}

// Stop closes the queue. Run returns once queued batches are applied.
func (n *Node) Stop() {
	n.queue.Close()
}

// BatchResult is the outcome of one processed batch.
type BatchResult struct {
	BatchID  string
	Status   store.BatchStatus
	Message  string
	Seq      int64
	Receipts []store.Receipt
}

// ProcessBatch verifies and applies one batch synchronously. A batch that
// already reached a final status is not applied again; its recorded status
// is returned.
// CRITICAL: single-writer only (see Node).
//
// A returned error means the store failed and nothing of the batch was
// recorded. Rejections and verification failures are not errors; they are
// reported in the result.
func (n *Node) ProcessBatch(ctx context.Context, b *envelope.Batch) (*BatchResult, error) {
	if b == nil || b.ID() == "" {
		return nil, ErrNoBatchID
	}

	btx, err := n.store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	defer btx.Rollback()

	prev, found, err := btx.ReadBatch(ctx, b.ID())
	if err != nil {
		return nil, err
	}
	if found && prev.Status.IsFinal() {
		n.logger.Info("batch already processed", "batch_id", b.ID(), "status", prev.Status)
		return &BatchResult{BatchID: b.ID(), Status: prev.Status, Message: prev.Message, Seq: prev.Seq}, nil
	}

	seq := n.clock.Next()
	ts := n.now().Unix()
	log := n.logger.With("batch_id", b.ID(), "seq", seq)

	res := &BatchResult{BatchID: b.ID(), Seq: seq}
	rec := store.BatchRecord{
		ID:         b.ID(),
		TxCount:    len(b.Transactions),
		Seq:        seq,
		ReceivedAt: ts,
	}

	if _, err := envelope.VerifyBatch(b); err != nil {
		res.Status = store.BatchInvalid
		res.Message = err.Error()
		log.Warn("batch rejected", "error", err)
	} else {
		applied := 0
		committed := make(map[string]bool, len(b.Transactions))
		for i, tx := range b.Transactions {
			r, err := n.applyTransaction(ctx, btx, committed, b.ID(), i, tx, ts)
			if err != nil {
				return nil, err
			}
			if r.Status == store.TxCommitted {
				committed[r.TxID] = true
				applied++
			}
			res.Receipts = append(res.Receipts, r)
		}
		res.Status = batchStatus(applied, len(b.Transactions))
	}

	rec.Status = res.Status
	rec.Message = res.Message
	if err := btx.FinishBatch(ctx, rec); err != nil {
		return nil, err
	}
	for _, r := range res.Receipts {
		if err := btx.WriteReceipt(ctx, r); err != nil {
			return nil, err
		}
	}
	if err := btx.Commit(); err != nil {
		return nil, err
	}

	log.Info("batch processed", "status", res.Status, "transactions", len(b.Transactions))
	return res, nil
}

func batchStatus(applied, total int) store.BatchStatus {
	switch applied {
	case total:
		return store.BatchCommitted
	case 0:
		return store.BatchRejected
	default:
		return store.BatchPartial
	}
}

// applyTransaction runs one verified transaction. Rejections are returned as
// receipts; only store failures are errors. committed holds the ids applied
// earlier in the same batch.
func (n *Node) applyTransaction(ctx context.Context, btx *store.BatchTx, committed map[string]bool, batchID string, idx int, tx *envelope.Transaction, ts int64) (store.Receipt, error) {
	seq := n.clock.Next()
	r := store.Receipt{
		BatchID:   batchID,
		Index:     idx,
		TxID:      tx.ID(),
		Status:    store.TxRejected,
		Seq:       seq,
		Timestamp: ts,
	}
	log := n.logger.With("batch_id", batchID, "tx_id", tx.ID(), "seq", seq)

	header, err := tx.DecodeHeader()
	if err != nil {
		// VerifyBatch already decoded it; this only fails on a caller bug.
		return r, fmt.Errorf("decode verified header: %w", err)
	}
	if len(header.Outputs) == 1 {
		r.Address = header.Outputs[0]
	}

	if header.FamilyName != n.handler.FamilyName() ||
		!slices.Contains(n.handler.FamilyVersions(), header.FamilyVersion) {
		r.Code = CodeUnsupportedFamily
		r.Message = fmt.Sprintf("family %s %s is not served", header.FamilyName, header.FamilyVersion)
		log.Warn("transaction rejected", "code", r.Code)
		return r, nil
	}

	dup := committed[tx.ID()]
	if !dup {
		if dup, err = btx.IsCommitted(ctx, tx.ID()); err != nil {
			return r, err
		}
	}
	if dup {
		r.Code = CodeDuplicate
		r.Message = "transaction already committed"
		log.Warn("transaction rejected", "code", r.Code)
		return r, nil
	}

	state := &scopedState{
		inner:   btx.View(seq, tx.ID()),
		inputs:  header.Inputs,
		outputs: header.Outputs,
	}
	req := processor.Request{
		TxID:      tx.ID(),
		Signer:    header.SignerPublicKey,
		Payload:   tx.Payload,
		Timestamp: ts,
	}

	_, err = n.handler.Apply(ctx, req, state)
	switch {
	case err == nil:
		r.Status = store.TxCommitted
		log.Debug("transaction applied", "address", r.Address)
	case errors.Is(err, ErrUndeclaredAddress):
		r.Code = CodeUndeclaredAddress
		r.Message = err.Error()
		log.Warn("transaction rejected", "code", r.Code, "error", err)
	case processor.CodeOf(err) != "":
		r.Code = string(processor.CodeOf(err))
		r.Message = err.Error()
		if processor.IsInternal(err) {
			log.Error("transaction failed", "code", r.Code, "error", err)
		} else {
			log.Info("transaction rejected", "code", r.Code, "error", err)
		}
	default:
		r.Code = string(processor.CodeInternal)
		r.Message = err.Error()
		log.Error("transaction failed", "error", err)
	}
	return r, nil
}
