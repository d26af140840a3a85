package store

// BatchStatus is the lifecycle state of a submitted batch.
type BatchStatus string

const (
	// BatchPending: accepted for processing, not yet applied.
	BatchPending BatchStatus = "PENDING"

	// BatchCommitted: every transaction was applied.
	BatchCommitted BatchStatus = "COMMITTED"

	// BatchPartial: some transactions were applied, others rejected.
	BatchPartial BatchStatus = "PARTIAL"

	// BatchRejected: every transaction was rejected.
	BatchRejected BatchStatus = "REJECTED"

	// BatchInvalid: the batch failed verification; nothing was applied.
	BatchInvalid BatchStatus = "INVALID"

	// BatchUnknown: no batch with that id was ever received.
	BatchUnknown BatchStatus = "UNKNOWN"
)

// IsFinal reports whether the status will not change any more.
func (s BatchStatus) IsFinal() bool {
	switch s {
	case BatchCommitted, BatchPartial, BatchRejected, BatchInvalid:
		return true
	}
	return false
}

// TxStatus is the outcome of one transaction.
type TxStatus string

const (
	TxCommitted TxStatus = "COMMITTED"
	TxRejected  TxStatus = "REJECTED"
)

// Entry is one state row.
type Entry struct {
	Address string
	Data    []byte
	Seq     int64
	TxID    string
}

// BatchRecord is one batches row.
type BatchRecord struct {
	ID         string
	Status     BatchStatus
	Message    string
	TxCount    int
	Seq        int64
	ReceivedAt int64
}

// Receipt is the recorded outcome of one transaction.
type Receipt struct {
	BatchID   string
	Index     int
	TxID      string
	Address   string
	Status    TxStatus
	Code      string
	Message   string
	Seq       int64
	Timestamp int64
}
