package store

import (
	"context"
)

// Cursor walks a large listing one page at a time, only one page is ever held
// in memory. Each page is read completely before Next returns, so the store
// can be written to between two calls to Next.
type Cursor[T any] struct {
	fetch     func(ctx context.Context, limit int64) ([]T, error)
	batchSize int
	done      bool
}

func newCursor[T any](batchSize int, fetch func(ctx context.Context, limit int64) ([]T, error)) *Cursor[T] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Cursor[T]{fetch: fetch, batchSize: batchSize}
}

const DefaultBatchSize = 1000

// Next returns the next page, an empty page means the listing is exhausted.
func (c *Cursor[T]) Next(ctx context.Context) ([]T, error) {
	if c.done {
		return nil, nil
	}
	page, err := c.fetch(ctx, int64(c.batchSize))
	if err != nil {
		return nil, err
	}
	if len(page) < c.batchSize {
		c.done = true
	}
	return page, nil
}

// ForEach calls fn on every remaining element, stopping at the first error.
func (c *Cursor[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for {
		page, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, item := range page {
			err = fn(item)
			if err != nil {
				return err
			}
		}
	}
}
