package service

import (
	"context"
	"fmt"
	"strconv"
)

const (
	DefaultCodePrefix = "8AM"
	DefaultCodeRange  = 1000
)

// CodeStore is the persisted order-code sequence.
// Satisfied by *database.Queries.
type CodeStore interface {
	NextOrderCode(ctx context.Context, modulo int32) (int32, error)
	ResetOrderCode(ctx context.Context) error
}

// CodeGenerator formats short order codes such as "8AM-047" from a store-side
// counter that wraps at the configured range. Codes repeat once a single day
// sees more than range-1 orders; only orders still in the kitchen keep theirs
// exclusive.
type CodeGenerator struct {
	prefix string
	rng    int32
	width  int
}

// NewCodeGenerator creates a CodeGenerator. Ranges below 2 fall back to
// DefaultCodeRange.
func NewCodeGenerator(prefix string, rng int) *CodeGenerator {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	if rng < 2 {
		rng = DefaultCodeRange
	}
	return &CodeGenerator{
		prefix: prefix,
		rng:    int32(rng),
		width:  len(strconv.Itoa(rng - 1)),
	}
}

// Next advances the sequence and returns the formatted code.
func (g *CodeGenerator) Next(ctx context.Context, store CodeStore) (string, error) {
	n, err := store.NextOrderCode(ctx, g.rng)
	if err != nil {
		return "", fmt.Errorf("next order code: %w", err)
	}
	return g.Format(n), nil
}

// Reset restores the sequence so the following Next yields "<prefix>-001".
func (g *CodeGenerator) Reset(ctx context.Context, store CodeStore) error {
	if err := store.ResetOrderCode(ctx); err != nil {
		return fmt.Errorf("reset order code: %w", err)
	}
	return nil
}

// Range is the number of distinct codes before the counter wraps.
func (g *CodeGenerator) Range() int { return int(g.rng) }

func (g *CodeGenerator) Format(n int32) string {
	return fmt.Sprintf("%s-%0*d", g.prefix, g.width, n)
}
