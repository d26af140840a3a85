package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/carlog/internal/api"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/node"
	"github.com/roach88/carlog/internal/processor"
	"github.com/roach88/carlog/internal/store"
	"github.com/roach88/carlog/internal/testutil"
)

const vin = "1HGCM82633A004352"

// startNode serves a running in-memory node and returns its URL.
func startNode(t *testing.T) string {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	n, err := node.New(context.Background(), s, processor.New(ir.MustNamespace(ir.FamilyName)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = n.Run(ctx) }()

	srv := httptest.NewServer(api.NewServer(n).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func waitCommitted(t *testing.T, c *Client, res *SubmitResult) *api.BatchStatus {
	t.Helper()
	require.Len(t, res.BatchIDs, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := c.WaitForBatch(ctx, res.BatchIDs[0], 10*time.Millisecond)
	require.NoError(t, err)
	return st
}

func TestCreateThenHistory(t *testing.T) {
	c, err := New(startNode(t), WithSigner(testutil.Alice()))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.Create(ctx, vin, "2024-01-01", "Toyota", "Corolla", "")
	require.NoError(t, err)
	assert.Equal(t, "/batch_statuses?id="+res.BatchIDs[0], res.Link)
	assert.Equal(t, store.BatchCommitted, waitCommitted(t, c, res).Status)

	e, err := c.History(ctx, vin)
	require.NoError(t, err)
	assert.Equal(t, vin, e.VIN)
	assert.Equal(t, "Toyota", e.Brand)
	assert.Equal(t, "Corolla", e.Model)
	assert.Equal(t, "0", e.WorkString())
	assert.Equal(t, int64(0), e.Mileage)
	assert.Equal(t, testutil.AlicePublicKey, e.Identity)
}

func TestAddDeleteAndRejections(t *testing.T) {
	url := startNode(t)
	alice, err := New(url, WithSigner(testutil.Alice()), WithNonces(testutil.NewSequentialNonces("alice")))
	require.NoError(t, err)
	bob, err := New(url, WithSigner(testutil.Bob()))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := alice.Add(ctx, vin, "2024-02-01", []int64{3}, 100, "")
	require.NoError(t, err)
	st := waitCommitted(t, alice, res)
	assert.Equal(t, store.BatchRejected, st.Status)
	require.Len(t, st.InvalidTransactions, 1)
	assert.Equal(t, string(processor.CodeNotFound), st.InvalidTransactions[0].Code)

	res, err = alice.Create(ctx, vin, "2024-01-01", "Toyota", "Corolla", "")
	require.NoError(t, err)
	waitCommitted(t, alice, res)

	res, err = bob.Delete(ctx, vin, "2024-03-01", []int64{3, 7}, 20000, "brakes, pads")
	require.NoError(t, err)
	assert.Equal(t, store.BatchCommitted, waitCommitted(t, bob, res).Status)

	e, err := alice.History(ctx, vin)
	require.NoError(t, err)
	assert.Equal(t, []int64{-3, -7}, e.Work)
	assert.Equal(t, int64(20000), e.Mileage)
	assert.Equal(t, "brakes, pads", e.Description)
	assert.Equal(t, testutil.BobPublicKey, e.Identity, "last writer owns the entry")
	assert.Empty(t, e.Brand)
}

func TestHistory_NotFound(t *testing.T) {
	c, err := New(startNode(t))
	require.NoError(t, err)

	_, err = c.History(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWrite_RequiresSigner(t *testing.T) {
	c, err := New("localhost:1")
	require.NoError(t, err)

	_, err = c.Create(context.Background(), vin, "2024-01-01", "Toyota", "Corolla", "")
	assert.ErrorIs(t, err, ErrNoSigner)
	_, err = c.Send(context.Background(), ir.NewHistory(vin))
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestHistory_LegacyEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.StateResponse{Data: []byte(vin + ";02ab;2019-05-01;-3-7;88000"), Head: 9})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	e, err := c.History(context.Background(), vin)
	require.NoError(t, err)
	assert.Equal(t, []int64{-3, -7}, e.Work)
	assert.Equal(t, int64(88000), e.Mileage)
	assert.Equal(t, "02ab", e.Identity)
}

func TestTransportErrors(t *testing.T) {
	t.Run("api error body", func(t *testing.T) {
		c, err := New(startNode(t))
		require.NoError(t, err)

		_, _, err = c.State(context.Background(), "zz")
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusBadRequest, te.StatusCode)
		assert.Equal(t, api.CodeBadRequest, te.Code)
		assert.Contains(t, te.Error(), "BAD_REQUEST")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(url, WithTimeout(time.Second))
		require.NoError(t, err)
		_, err = c.BatchStatus(context.Background(), "abc")
		assert.True(t, IsTransportError(err))
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 0, te.StatusCode)
		assert.NotNil(t, errors.Unwrap(te))
	})

	t.Run("plain status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		c, err := New(srv.URL)
		require.NoError(t, err)
		_, err = c.BatchStatus(context.Background(), "abc")
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusBadGateway, te.StatusCode)
		assert.Empty(t, te.Code)
	})
}

func TestWaitForBatch_ContextEnds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.BatchStatusResponse{
			Data: []api.BatchStatus{{ID: "abc", Status: store.BatchPending}},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.WaitForBatch(ctx, "abc", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "localhost:8008", want: "http://localhost:8008"},
		{in: "http://rest-api:8008/", want: "http://rest-api:8008"},
		{in: "https://ledger.example.com/api", want: "https://ledger.example.com/api"},
		{in: "  127.0.0.1:8008 ", want: "http://127.0.0.1:8008"},
		{in: "", wantErr: true},
		{in: "ftp://host", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/state", r.URL.Path)
		assert.Equal(t, ir.NamespacePrefix(ir.FamilyName), r.URL.Query().Get("address"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(api.StateListResponse{
			Data: []api.StateItem{
				{Address: "eba1d0aa", Data: []byte(vin + ";02ab;2019-05-01;3;100")},
				{Address: "eba1d0bb", Data: []byte("garbage")},
			},
			Head: 4,
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	got, err := c.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1, "undecodable entries are skipped")
	assert.Equal(t, "eba1d0aa", got[0].Address)
	assert.Equal(t, []int64{3}, got[0].Entry.Work)
}

func TestList_AgainstNode(t *testing.T) {
	c, err := New(startNode(t), WithSigner(testutil.Alice()))
	require.NoError(t, err)
	ctx := context.Background()

	for _, v := range []string{vin, "WVWZZZ1JZXW000001"} {
		res, err := c.Create(ctx, v, "2024-01-01", "Toyota", "Corolla", "")
		require.NoError(t, err)
		waitCommitted(t, c, res)
	}

	got, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, l := range got {
		assert.Equal(t, ir.DeriveAddress(ir.FamilyName, l.Entry.VIN), l.Address)
	}
}
