package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Batch buffers sets made inside Database.Batch.
type Batch struct {
	db      *Database
	pending map[string]any
}

// Set buffers a value for key. The last buffered value wins.
func (b *Batch) Set(key string, value any) {
	b.pending[key] = value
}

// Get returns the buffered value of key, or the server value when none is
// buffered.
func (b *Batch) Get(ctx context.Context, key string) (any, error) {
	if v, ok := b.pending[key]; ok {
		return v, nil
	}
	return b.db.Get(ctx, key)
}

// Pending returns the number of buffered keys.
func (b *Batch) Pending() int {
	return len(b.pending)
}

func (b *Batch) flush(ctx context.Context) error {
	keys := make([]string, 0, len(b.pending))
	for k := range b.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if _, err := b.db.Set(ctx, k, b.pending[k]); err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", k, err))
		}
	}
	clear(b.pending)
	return errors.Join(errs...)
}

// Batch runs fn with a Batch and flushes its buffered sets when fn
// returns, fails or panics. The flush runs even if ctx is canceled.
// A panic in fn is re-raised after the flush.
func (d *Database) Batch(ctx context.Context, fn func(*Batch) error) (err error) {
	b := &Batch{db: d, pending: make(map[string]any)}
	defer func() {
		r := recover()
		flushErr := b.flush(context.WithoutCancel(ctx))
		if r != nil {
			if flushErr != nil {
				d.c.logger.Error("batch flush after panic failed", "db", d.name, "error", flushErr)
			}
			panic(r)
		}
		err = errors.Join(err, flushErr)
	}()
	return fn(b)
}
