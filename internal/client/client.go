// Package client submits carLogger operations to a node's REST API and reads
// entries back.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/carlog/internal/api"
	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/envelope"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/signing"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes bounds response bodies read by the client.
const maxResponseBytes = 16 << 20

// Client talks to one node.
type Client struct {
	baseURL string
	http    *http.Client
	ns      ir.Namespace
	signer  *signing.Signer
	nonces  envelope.NonceGenerator
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSigner sets the key that signs transactions and identity proofs.
func WithSigner(s *signing.Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithNamespace overrides the carLogger namespace.
func WithNamespace(ns ir.Namespace) Option {
	return func(c *Client) { c.ns = ns }
}

// WithNonces sets the transaction nonce source. Default: UUIDv7.
func WithNonces(g envelope.NonceGenerator) Option {
	return func(c *Client) { c.nonces = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the node at baseURL. A bare "host:port" is
// treated as http.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := NormalizeURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		ns:      ir.MustNamespace(ir.FamilyName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeURL returns raw with a scheme and without a trailing slash.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("client: url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("client: invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("client: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("client: url %q has no host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized node URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SubmitResult is the node's answer to an accepted submission.
type SubmitResult struct {
	BatchIDs []string
	Link     string
}

// Create registers a vehicle.
func (c *Client) Create(ctx context.Context, vin, workDate, brand, model, description string) (*SubmitResult, error) {
	return c.write(ctx, vin, func(proof string) ir.Operation {
		return ir.NewCreate(vin, proof, workDate, brand, model, description)
	})
}

// Add records work done on a vehicle.
func (c *Client) Add(ctx context.Context, vin, workDate string, codes []int64, odometer int64, description string) (*SubmitResult, error) {
	return c.write(ctx, vin, func(proof string) ir.Operation {
		return ir.NewAdd(vin, proof, workDate, codes, odometer, description)
	})
}

// Delete records the removal of work codes from a vehicle.
func (c *Client) Delete(ctx context.Context, vin, workDate string, codes []int64, odometer int64, description string) (*SubmitResult, error) {
	return c.write(ctx, vin, func(proof string) ir.Operation {
		return ir.NewDelete(vin, proof, workDate, codes, odometer, description)
	})
}

func (c *Client) write(ctx context.Context, vin string, build func(proof string) ir.Operation) (*SubmitResult, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	return c.Send(ctx, build(signing.NewIdentityProof(c.signer, vin)))
}

// Send builds, signs and submits op in a batch of its own.
func (c *Client) Send(ctx context.Context, op ir.Operation) (*SubmitResult, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	var opts []envelope.Option
	if c.nonces != nil {
		opts = append(opts, envelope.WithNonces(c.nonces))
	}
	b, err := envelope.NewBuilder(c.signer, c.ns, opts...)
	if err != nil {
		return nil, err
	}
	tx, err := b.Build(op)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Kind, op.VIN, err)
	}
	batch, err := b.Wrap(tx)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Kind, op.VIN, err)
	}
	c.logger.Debug("submitting", "op", op.Kind, "vin", op.VIN, "tx_id", tx.ID(), "batch_id", batch.ID())
	return c.Submit(ctx, envelope.NewBatchList(batch))
}

// Submit posts a batch list.
func (c *Client) Submit(ctx context.Context, list *envelope.BatchList) (*SubmitResult, error) {
	var resp api.SubmitResponse
	err := c.do(ctx, "submit", http.MethodPost, "/batches", "application/octet-stream", list.Marshal(), &resp)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{BatchIDs: resp.Data, Link: resp.Link}, nil
}

// State returns the raw bytes stored at address. found is false when the
// address is empty.
func (c *Client) State(ctx context.Context, address string) (data []byte, found bool, err error) {
	var resp api.StateResponse
	err = c.do(ctx, "state", http.MethodGet, "/state/"+address, "", nil, &resp)
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return resp.Data, true, nil
}

// History reads and decodes the entry of vin. Entries written in the legacy
// delimited form are accepted.
func (c *Client) History(ctx context.Context, vin string) (*ir.LedgerEntry, error) {
	data, found, err := c.State(ctx, c.ns.Address(vin))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("history %s: %w", vin, ErrNotFound)
	}
	e, err := codec.DecodeEntry(data)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", vin, err)
	}
	return &e, nil
}

// Listed is one entry returned by List.
type Listed struct {
	Address string
	Entry   ir.LedgerEntry
}

// List returns up to limit entries of the client's namespace, ordered by
// address. Values that do not decode are skipped and logged. A limit of 0
// uses the node's default.
func (c *Client) List(ctx context.Context, limit int) ([]Listed, error) {
	q := url.Values{"address": {c.ns.Prefix()}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp api.StateListResponse
	if err := c.do(ctx, "list", http.MethodGet, "/state?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]Listed, 0, len(resp.Data))
	for _, item := range resp.Data {
		e, err := codec.DecodeEntry(item.Data)
		if err != nil {
			c.logger.Warn("skipping undecodable entry", "address", item.Address, "error", err)
			continue
		}
		out = append(out, Listed{Address: item.Address, Entry: e})
	}
	return out, nil
}

// BatchStatus returns the status of each id, in order.
func (c *Client) BatchStatus(ctx context.Context, ids ...string) ([]api.BatchStatus, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("batch status: no ids")
	}
	var resp api.BatchStatusResponse
	path := "/batch_statuses?id=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.do(ctx, "batch_statuses", http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// WaitForBatch polls the status of id every interval until it is final or
// ctx ends.
func (c *Client) WaitForBatch(ctx context.Context, id string, interval time.Duration) (*api.BatchStatus, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		statuses, err := c.BatchStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(statuses) == 1 && statuses[0].Status.IsFinal() {
			return &statuses[0], nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for batch %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body []byte, out any) error {
	u := c.baseURL + path
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &TransportError{Op: op, URL: u, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, URL: u, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := &TransportError{Op: op, URL: u, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb api.ErrorResponse
		if json.Unmarshal(data, &eb) == nil && eb.Error.Code != "" {
			te.Code = eb.Error.Code
			te.Message = eb.Error.Message
		}
		return te
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, URL: u, StatusCode: resp.StatusCode, Message: "undecodable response", Err: err}
	}
	return nil
}
