package node

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/carlog/internal/processor"
)

// scopedState restricts a transaction to the addresses its header declares:
// reads must be inputs, writes must be outputs.
type scopedState struct {
	inner   processor.State
	inputs  []string
	outputs []string
}

var _ processor.State = (*scopedState)(nil)

func (s *scopedState) GetState(ctx context.Context, addresses []string) (map[string][]byte, error) {
	for _, a := range addresses {
		if !slices.Contains(s.inputs, a) {
			return nil, fmt.Errorf("read %s: %w", a, ErrUndeclaredAddress)
		}
	}
	return s.inner.GetState(ctx, addresses)
}

func (s *scopedState) SetState(ctx context.Context, entries map[string][]byte) ([]string, error) {
	for a := range entries {
		if !slices.Contains(s.outputs, a) {
			return nil, fmt.Errorf("write %s: %w", a, ErrUndeclaredAddress)
		}
	}
	return s.inner.SetState(ctx, entries)
}
