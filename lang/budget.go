package lang

import (
	"context"
)

// cancelCheckInterval is how many steps pass between context checks.
const cancelCheckInterval = 1 << 10

// Budget counts evaluation steps of one entry-point call. A zero limit
// counts without bounding.
type Budget struct {
	ctx   context.Context
	limit int64
	used  int64
}

// NewBudget returns a budget of limit steps observing ctx.
func NewBudget(ctx context.Context, limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}

	return &Budget{ctx: ctx, limit: limit}
}

// Limit returns the step limit, or 0 when unbounded.
func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}

	return b.limit
}

// Used returns the steps charged so far.
func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}

	return b.used
}

// Charge consumes n steps. It fails with [ErrAborted] when the limit is
// exceeded or the context is done.
func (b *Budget) Charge(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}

	before := b.used
	b.used += n

	if b.limit > 0 && b.used > b.limit {
		return ErrAborted.Withf("step limit of %d exceeded", b.limit)
	}

	if b.ctx != nil && before/cancelCheckInterval != b.used/cancelCheckInterval {
		if err := b.ctx.Err(); err != nil {
			return ErrAborted.Wrap(context.Cause(b.ctx))
		}
	}

	return nil
}
