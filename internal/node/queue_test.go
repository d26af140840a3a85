package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/carlog/internal/envelope"
)

func TestBatchQueue_FIFO(t *testing.T) {
	q := newBatchQueue(4)
	a := &envelope.Batch{HeaderSignature: "a"}
	b := &envelope.Batch{HeaderSignature: "b"}

	require.NoError(t, q.Enqueue(a, b))
	assert.Equal(t, 2, q.Len())

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())
	got, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "b", got.ID())

	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestBatchQueue_Bounded(t *testing.T) {
	q := newBatchQueue(1)
	require.NoError(t, q.Enqueue(&envelope.Batch{}))
	assert.ErrorIs(t, q.Enqueue(&envelope.Batch{}), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestBatchQueue_Close(t *testing.T) {
	q := newBatchQueue(2)
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(&envelope.Batch{}), ErrStopped)
	select {
	case <-q.Wait():
	default:
		t.Fatal("Wait channel should be closed")
	}
}

func TestClock(t *testing.T) {
	c := NewClockAt(0)
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())

	c = NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}
