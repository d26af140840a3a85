package api

import "github.com/roach88/carlog/internal/store"

// Error codes returned in ErrorBody.Code.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeNotFound    = "NOT_FOUND"
	CodeQueueFull   = "QUEUE_FULL"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// SubmitResponse answers POST /batches.
type SubmitResponse struct {
	Data []string `json:"data"`
	Link string   `json:"link"`
}

// InvalidTransaction is a rejected transaction inside a batch status.
type InvalidTransaction struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchStatus is one element of GET /batch_statuses.
type BatchStatus struct {
	ID                  string               `json:"id"`
	Status              store.BatchStatus    `json:"status"`
	Message             string               `json:"message,omitempty"`
	Seq                 int64                `json:"seq,omitempty"`
	InvalidTransactions []InvalidTransaction `json:"invalid_transactions"`
}

// BatchStatusResponse answers GET /batch_statuses.
type BatchStatusResponse struct {
	Data []BatchStatus `json:"data"`
	Link string        `json:"link"`
}

// StateResponse answers GET /state/{address}. Data is base64 in JSON.
type StateResponse struct {
	Data []byte `json:"data"`
	Head int64  `json:"head"`
}

// StateItem is one element of GET /state.
type StateItem struct {
	Address string `json:"address"`
	Data    []byte `json:"data"`
}

// StateListResponse answers GET /state.
type StateListResponse struct {
	Data []StateItem `json:"data"`
	Head int64       `json:"head"`
}

// Receipt is one element of GET /receipts.
type Receipt struct {
	ID        string         `json:"id"`
	BatchID   string         `json:"batch_id"`
	Address   string         `json:"address,omitempty"`
	Status    store.TxStatus `json:"status"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Seq       int64          `json:"seq"`
	Timestamp int64          `json:"timestamp"`
}

// ReceiptsResponse answers GET /receipts.
type ReceiptsResponse struct {
	Data []Receipt `json:"data"`
}

// HealthResponse answers GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Family string `json:"family"`
	Head   int64  `json:"head"`
}

func receiptView(r store.Receipt) Receipt {
	return Receipt{
		ID:        r.TxID,
		BatchID:   r.BatchID,
		Address:   r.Address,
		Status:    r.Status,
		Code:      r.Code,
		Message:   r.Message,
		Seq:       r.Seq,
		Timestamp: r.Timestamp,
	}
}
