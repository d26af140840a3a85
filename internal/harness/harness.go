package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/carlog/internal/codec"
	"github.com/roach88/carlog/internal/envelope"
	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/node"
	"github.com/roach88/carlog/internal/processor"
	"github.com/roach88/carlog/internal/signing"
	"github.com/roach88/carlog/internal/store"
	"github.com/roach88/carlog/internal/testutil"
)

// proofPlaceholder is replaced by the identity proof in raw payloads.
const proofPlaceholder = "{proof}"

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	ns       ir.Namespace
	store    *store.Store
	node     *node.Node
	nonces   *testutil.SequentialNonces
	signers  map[string]*signing.Signer
	builders map[string]*envelope.Builder
	names    map[string]string // public key -> key name
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a step clock
// starting at testutil.DefaultEpoch and sequential nonces, so identical
// scenarios produce identical traces.
//
// A returned error means the scenario could not be executed at all; step
// and assertion failures are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ns := ir.MustNamespace(ir.FamilyName)

	popts := []processor.Option{processor.WithLogger(logger)}
	if scenario.LenientCreate {
		popts = append(popts, processor.WithLenientCreate())
	}
	n, err := node.New(ctx, st, processor.New(ns, popts...),
		node.WithNow(testutil.NewStepClock(testutil.DefaultEpoch, 0).Now),
		node.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		ns:       ns,
		store:    st,
		node:     n,
		nonces:   testutil.NewSequentialNonces(scenario.Name),
		signers:  map[string]*signing.Signer{},
		builders: map[string]*envelope.Builder{},
		names:    map[string]string{},
		logger:   logger,
	}
	if err := h.loadKeys(); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.AddTrace(ev)
		if step.Expect != "" && step.Expect != ev.Outcome {
			result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got %s",
				i, step.Op, step.VIN, step.Expect, ev.Outcome))
		}
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Namespace: ns, KeyNames: h.names}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) loadKeys() error {
	h.addSigner(KeyAlice, testutil.Alice())
	h.addSigner(KeyBob, testutil.Bob())
	for name, hexKey := range h.scenario.Keys {
		s, err := signing.ParsePrivateKeyHex(hexKey)
		if err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
		h.addSigner(name, s)
	}
	return nil
}

func (h *Harness) addSigner(name string, s *signing.Signer) {
	h.signers[name] = s
	h.names[s.PublicKey()] = name
}

func (h *Harness) builder(name string) (*envelope.Builder, error) {
	if b, ok := h.builders[name]; ok {
		return b, nil
	}
	b, err := envelope.NewBuilder(h.signers[name], h.ns, envelope.WithNonces(h.nonces))
	if err != nil {
		return nil, err
	}
	h.builders[name] = b
	return b, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step) (TraceEvent, error) {
	ev := TraceEvent{
		Step:    index,
		Op:      step.Op,
		VIN:     step.VIN,
		Address: h.ns.Address(step.VIN),
	}
	if step.Op == string(ir.OpHistory) {
		return h.executeHistory(ctx, ev)
	}

	keyName := defaultString(step.Key, KeyAlice)
	proofName := defaultString(step.ProofKey, keyName)
	proof := signing.NewIdentityProof(h.signers[proofName], step.VIN)

	b, err := h.builder(keyName)
	if err != nil {
		return ev, err
	}

	var tx *envelope.Transaction
	if step.Payload != "" {
		payload := strings.ReplaceAll(step.Payload, proofPlaceholder, proof)
		tx = b.BuildPayload(ev.Address, []byte(payload))
	} else {
		op, err := h.operation(step, proof)
		if err != nil {
			return ev, err
		}
		if tx, err = b.Build(op); err != nil {
			return ev, err
		}
	}
	if step.Tamper && len(tx.Payload) > 0 {
		tx.Payload[len(tx.Payload)-1] ^= 0x01
	}

	batch, err := b.Wrap(tx)
	if err != nil {
		return ev, err
	}
	res, err := h.node.ProcessBatch(ctx, batch)
	if err != nil {
		return ev, err
	}

	ev.Seq = res.Seq
	switch {
	case res.Status == store.BatchInvalid:
		ev.Outcome = OutcomeInvalid
	case len(res.Receipts) == 1 && res.Receipts[0].Status == store.TxCommitted:
		ev.Outcome = OutcomeCommitted
		ev.Seq = res.Receipts[0].Seq
	case len(res.Receipts) == 1:
		ev.Outcome = res.Receipts[0].Code
		ev.Seq = res.Receipts[0].Seq
	default:
		return ev, fmt.Errorf("batch %s: expected one receipt, got %d", res.BatchID, len(res.Receipts))
	}

	h.logger.Info("step completed", "step", index, "op", step.Op, "vin", step.VIN, "outcome", ev.Outcome)
	return ev, nil
}

func (h *Harness) operation(step Step, proof string) (ir.Operation, error) {
	switch ir.OpKind(step.Op) {
	case ir.OpCreate:
		return ir.NewCreate(step.VIN, proof, step.Date, step.Brand, step.Model, step.Description), nil
	case ir.OpAdd, ir.OpDelete:
		codes, err := codec.ParseWorkCodes(step.Work)
		if err != nil {
			return ir.Operation{}, err
		}
		if step.Op == string(ir.OpAdd) {
			return ir.NewAdd(step.VIN, proof, step.Date, codes, step.Km, step.Description), nil
		}
		return ir.NewDelete(step.VIN, proof, step.Date, codes, step.Km, step.Description), nil
	default:
		return ir.Operation{}, fmt.Errorf("op %q is not a write", step.Op)
	}
}

// executeHistory reads the entry the way a client would: raw bytes from the
// store, decoded with the entry codec.
func (h *Harness) executeHistory(ctx context.Context, ev TraceEvent) (TraceEvent, error) {
	e, found, err := h.store.ReadState(ctx, ev.Address)
	if err != nil {
		return ev, err
	}
	if !found {
		ev.Outcome = OutcomeAbsent
		return ev, nil
	}
	le, err := codec.DecodeEntry(e.Data)
	if err != nil {
		return ev, fmt.Errorf("decode entry at %s: %w", ev.Address, err)
	}
	ev.Outcome = OutcomeFound
	ev.Seq = e.Seq
	ev.Entry = entryFields(le, h.names)
	return ev, nil
}

// entryFields flattens an entry for traces and assertions. Work is rendered
// as "x|y" and identity as a key name when known.
func entryFields(e ir.LedgerEntry, names map[string]string) map[string]any {
	identity := e.Identity
	if name, ok := names[identity]; ok {
		identity = name
	}
	return map[string]any{
		"vin":         e.VIN,
		"identity":    identity,
		"work_date":   e.WorkDate,
		"work":        e.WorkString(),
		"mileage":     e.Mileage,
		"description": e.Description,
		"brand":       e.Brand,
		"model":       e.Model,
		"timestamp":   e.Timestamp,
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
