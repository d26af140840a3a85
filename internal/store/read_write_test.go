package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "eba1d0aaaa"
	addrB = "eba1d0bbbb"
	addrC = "ffffff0000"
)

func TestReadState_AbsentAndPresent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, found, err := s.ReadState(ctx, addrA)
	require.NoError(t, err)
	assert.False(t, found)

	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchCommitted, Seq: 1}, map[string]string{addrA: "v1"})

	e, found, err := s.ReadState(ctx, addrA)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Entry{Address: addrA, Data: []byte("v1"), Seq: 1, TxID: "tx-b1"}, e)
}

func TestPutState_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchCommitted, Seq: 1}, map[string]string{addrA: "v1"})
	commitBatch(t, s, BatchRecord{ID: "b2", Status: BatchCommitted, Seq: 2}, map[string]string{addrA: "v2"})

	e, _, err := s.ReadState(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(e.Data))
	assert.Equal(t, int64(2), e.Seq)
	assert.Equal(t, "tx-b2", e.TxID)
}

func TestBatchTx_RollbackDiscardsEverything(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, b.FinishBatch(ctx, BatchRecord{ID: "b1", Status: BatchCommitted, Seq: 1}))
	require.NoError(t, b.PutState(ctx, addrA, []byte("v1"), 1, "t1"))

	got, err := b.GetState(ctx, []string{addrA, addrB})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{addrA: []byte("v1")}, got, "writes are visible inside the batch")

	require.NoError(t, b.Rollback())
	require.NoError(t, b.Rollback(), "second rollback is a no-op")

	_, found, err := s.ReadState(ctx, addrA)
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = s.ReadBatch(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestView_ImplementsState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer b.Rollback()

	v := b.View(7, "tx-7")
	written, err := v.SetState(ctx, map[string][]byte{addrA: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{addrA}, written)

	got, err := v.GetState(ctx, []string{addrA})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got[addrA])

	require.NoError(t, b.FinishBatch(ctx, BatchRecord{ID: "b7", Status: BatchCommitted, Seq: 7}))
	require.NoError(t, b.Commit())

	e, _, err := s.ReadState(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, int64(7), e.Seq)
	assert.Equal(t, "tx-7", e.TxID)
}

func TestListState_Prefix(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchCommitted, Seq: 1},
		map[string]string{addrB: "b", addrA: "a", addrC: "c"})

	entries, err := s.ListState(ctx, "eba1d0", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, addrA, entries[0].Address)
	assert.Equal(t, addrB, entries[1].Address)

	all, err := s.ListState(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListState(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListState(ctx, "abc", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestWritePending_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inserted, err := s.WritePending(ctx, "b1", 1, 1700000000, 2)
	require.NoError(t, err)
	assert.True(t, inserted)

	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchCommitted, TxCount: 2, Seq: 2, ReceivedAt: 1700000000}, nil)

	inserted, err = s.WritePending(ctx, "b1", 3, 1700000001, 2)
	require.NoError(t, err)
	assert.False(t, inserted)

	rec, found, err := s.ReadBatch(ctx, "b1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, BatchCommitted, rec.Status, "resubmission never resets status")
	assert.Equal(t, int64(1700000000), rec.ReceivedAt)
}

func TestDropPending(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WritePending(ctx, "queued", 0, 1700000000, 1)
	require.NoError(t, err)
	_, err = s.WritePending(ctx, "done", 0, 1700000000, 1)
	require.NoError(t, err)
	commitBatch(t, s, BatchRecord{ID: "done", Status: BatchCommitted, TxCount: 1, Seq: 1, ReceivedAt: 1700000000}, nil)

	dropped, err := s.DropPending(ctx, "queued")
	require.NoError(t, err)
	assert.True(t, dropped)
	_, found, err := s.ReadBatch(ctx, "queued")
	require.NoError(t, err)
	assert.False(t, found)

	dropped, err = s.DropPending(ctx, "done")
	require.NoError(t, err)
	assert.False(t, dropped, "final statuses are kept")
	rec, _, err := s.ReadBatch(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, BatchCommitted, rec.Status)

	dropped, err = s.DropPending(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestReceipts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r0 := Receipt{BatchID: "b1", Index: 0, TxID: "t1", Address: addrA, Status: TxCommitted, Seq: 1, Timestamp: 10}
	r1 := Receipt{BatchID: "b1", Index: 1, TxID: "t2", Address: addrB, Status: TxRejected,
		Code: "NOT_FOUND", Message: "vin is not registered", Seq: 1, Timestamp: 10}
	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchPartial, TxCount: 2, Seq: 1}, nil, r0, r1)

	got, err := s.BatchReceipts(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []Receipt{r0, r1}, got)

	got, err = s.ReadReceipts(ctx, []string{"t2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []Receipt{r1}, got)

	got, err = s.ReadReceipts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBatchTx_IsCommitted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchPartial, Seq: 1}, nil,
		Receipt{BatchID: "b1", Index: 0, TxID: "ok", Status: TxCommitted, Seq: 1},
		Receipt{BatchID: "b1", Index: 1, TxID: "bad", Status: TxRejected, Seq: 1},
	)

	b, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer b.Rollback()

	ok, err := b.IsCommitted(ctx, "ok")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.IsCommitted(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok, "rejected transactions may be resubmitted")
}

func TestWriteReceipt_RequiresBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	defer b.Rollback()

	err = b.WriteReceipt(ctx, Receipt{BatchID: "nope", TxID: "t", Status: TxCommitted})
	assert.Error(t, err)
}

func TestMaxSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	commitBatch(t, s, BatchRecord{ID: "b1", Status: BatchCommitted, Seq: 4}, map[string]string{addrA: "a"},
		Receipt{BatchID: "b1", TxID: "t", Status: TxCommitted, Seq: 5})

	seq, err = s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), seq)
}

func TestBatchStatus_IsFinal(t *testing.T) {
	assert.False(t, BatchPending.IsFinal())
	assert.False(t, BatchUnknown.IsFinal())
	for _, s := range []BatchStatus{BatchCommitted, BatchPartial, BatchRejected, BatchInvalid} {
		assert.True(t, s.IsFinal(), s)
	}
}
