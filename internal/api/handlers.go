package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/carlog/internal/envelope"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/node"
	"github.com/roach88/carlog/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.node.Store()
	if err := st.Ping(r.Context()); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, CodeUnavailable, err)
		return
	}
	head, err := st.MaxSeq(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Family: s.node.Handler().FamilyName(),
		Head:   head,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, CodeBadRequest, err)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, err)
		return
	}

	list, err := envelope.UnmarshalBatchList(body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("decode batch list: %w", err))
		return
	}
	if len(list.Batches) == 0 {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errors.New("batch list is empty"))
		return
	}

	ids, err := s.node.Submit(r.Context(), list)
	switch {
	case err == nil:
	case errors.Is(err, node.ErrNoBatchID):
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, err)
		return
	case errors.Is(err, node.ErrQueueFull):
		s.writeError(w, r, http.StatusTooManyRequests, CodeQueueFull, err)
		return
	case errors.Is(err, node.ErrStopped):
		s.writeError(w, r, http.StatusServiceUnavailable, CodeUnavailable, err)
		return
	default:
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}

	s.logger.Info("batches submitted", "count", len(ids), "request_id", requestIDOf(r))
	writeJSON(w, http.StatusAccepted, SubmitResponse{Data: ids, Link: statusLink(ids)})
}

func (s *Server) handleBatchStatuses(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("id"))
	if len(ids) == 0 {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errors.New("query parameter id is required"))
		return
	}

	st := s.node.Store()
	out := make([]BatchStatus, 0, len(ids))
	for _, id := range ids {
		rec, found, err := st.ReadBatch(r.Context(), id)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
			return
		}
		bs := BatchStatus{ID: id, Status: store.BatchUnknown, InvalidTransactions: []InvalidTransaction{}}
		if found {
			bs.Status = rec.Status
			bs.Message = rec.Message
			bs.Seq = rec.Seq
		}
		if found && (rec.Status == store.BatchPartial || rec.Status == store.BatchRejected) {
			receipts, err := st.BatchReceipts(r.Context(), id)
			if err != nil {
				s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
				return
			}
			for _, rc := range receipts {
				if rc.Status == store.TxRejected {
					bs.InvalidTransactions = append(bs.InvalidTransactions, InvalidTransaction{
						ID:      rc.TxID,
						Code:    rc.Code,
						Message: rc.Message,
					})
				}
			}
		}
		out = append(out, bs)
	}
	writeJSON(w, http.StatusOK, BatchStatusResponse{Data: out, Link: statusLink(ids)})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !ir.IsAddress(address) {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest,
			fmt.Errorf("address must be %d lowercase hex characters", ir.AddressLength))
		return
	}

	st := s.node.Store()
	e, found, err := st.ReadState(r.Context(), address)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}
	if !found {
		s.writeError(w, r, http.StatusNotFound, CodeNotFound, fmt.Errorf("no entry at %s", address))
		return
	}
	head, err := st.MaxSeq(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Data: e.Data, Head: head})
}

func (s *Server) handleListState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("address")
	if prefix != "" && !ir.IsAddressPrefix(prefix) {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errors.New("address must be a lowercase hex prefix"))
		return
	}
	limit := s.listLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		if limit <= 0 || n < limit {
			limit = n
		}
	}

	st := s.node.Store()
	entries, err := st.ListState(r.Context(), prefix, limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}
	head, err := st.MaxSeq(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}

	items := make([]StateItem, len(entries))
	for i, e := range entries {
		items[i] = StateItem{Address: e.Address, Data: e.Data}
	}
	writeJSON(w, http.StatusOK, StateListResponse{Data: items, Head: head})
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query().Get("id"))
	if len(ids) == 0 {
		s.writeError(w, r, http.StatusBadRequest, CodeBadRequest, errors.New("query parameter id is required"))
		return
	}
	receipts, err := s.node.Store().ReadReceipts(r.Context(), ids)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
		return
	}
	out := make([]Receipt, len(receipts))
	for i, rc := range receipts {
		out[i] = receiptView(rc)
	}
	writeJSON(w, http.StatusOK, ReceiptsResponse{Data: out})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", requestIDOf(r), "code", code, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(raw string) []string {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// statusLink builds the status URL; batch ids are hex and need no escaping.
func statusLink(ids []string) string {
	return "/batch_statuses?id=" + strings.Join(ids, ",")
}
