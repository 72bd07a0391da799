package engine

import (
	"context"
)

// batcher accumulates items and flushes them in fixed-size batches.
//
// Each flush is one atomic write. A failed flush is reported to onDiscard and
// the batch is dropped as a whole; the batcher then continues with the next
// batch. Only context cancellation stops it.
//
// Not safe for concurrent use: one batcher belongs to one unit of work.
type batcher[T any] struct {
	size      int
	items     []T
	flush     func(ctx context.Context, items []T) error
	onDiscard func(items []T, err error)

	written   int
	discarded int
	flushes   int
}

func newBatcher[T any](size int, flush func(context.Context, []T) error, onDiscard func([]T, error)) *batcher[T] {
	if size <= 0 {
		size = 1
	}
	return &batcher[T]{
		size:      size,
		items:     make([]T, 0, min(size, 1024)),
		flush:     flush,
		onDiscard: onDiscard,
	}
}

// Add appends item, flushing when the batch is full.
func (b *batcher[T]) Add(ctx context.Context, item T) error {
	b.items = append(b.items, item)
	if len(b.items) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes any pending items. A write failure discards the batch and
// returns nil unless ctx is done.
func (b *batcher[T]) Flush(ctx context.Context) error {
	if len(b.items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := b.items
	b.items = make([]T, 0, cap(batch))
	b.flushes++

	if err := b.flush(ctx, batch); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.discarded += len(batch)
		if b.onDiscard != nil {
			b.onDiscard(batch, err)
		}
		return nil
	}
	b.written += len(batch)
	return nil
}

// Pending returns the number of items not yet flushed.
func (b *batcher[T]) Pending() int {
	return len(b.items)
}
