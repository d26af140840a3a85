package node

import (
	"errors"
	"sync"

	"github.com/roach88/carlog/internal/envelope"
)

// Queue errors.
var (
	ErrQueueFull = errors.New("batch queue is full")
	ErrStopped   = errors.New("node is stopped")
)

// batchQueue is a bounded, thread-safe FIFO of batches awaiting the writer.
//
// Submitters (HTTP handlers) enqueue from any goroutine; only the Run loop
// dequeues. The signal channel enables context-aware waiting in Run.
type batchQueue struct {
	mu      sync.Mutex
	batches []*envelope.Batch
	limit   int
	closed  bool
	signal  chan struct{} // Signals batch availability (buffered, size 1)
}

// newBatchQueue creates an empty queue holding at most limit batches.
func newBatchQueue(limit int) *batchQueue {
	return &batchQueue{
		batches: make([]*envelope.Batch, 0, min(limit, 64)),
		limit:   limit,
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds batches to the back of the queue, all or none.
// Thread-safe: may be called from any goroutine.
func (q *batchQueue) Enqueue(bs ...*envelope.Batch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrStopped
	}
	if len(q.batches)+len(bs) > q.limit {
		return ErrQueueFull
	}

	q.batches = append(q.batches, bs...)

	// Non-blocking: buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// TryDequeue removes the front batch without blocking.
// Returns (nil, false) if the queue is empty.
func (q *batchQueue) TryDequeue() (*envelope.Batch, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.batches) == 0 {
		return nil, false
	}

	b := q.batches[0]
	// Nil out the slot so the backing array does not retain the batch.
	q.batches[0] = nil

	if len(q.batches) == 1 {
		q.batches = q.batches[:0]
	} else {
		q.batches = q.batches[1:]
	}
	return b, true
}

// Wait returns a channel that signals when batches may be available.
// The channel is closed when the queue is closed.
func (q *batchQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *batchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.batches)
}

func (q *batchQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more batches will be enqueued.
func (q *batchQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
