package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/aci-go/internal/core/domain"
)

// Batch buffers sets against one database. Buffered values are visible to
// Get on the same batch and are applied when the batch scope ends.
type Batch struct {
	engine  *Engine
	db      string
	id      domain.Identity
	order   []string
	pending map[string]any
}

// Set buffers a value for key. A later Set of the same key replaces it.
func (b *Batch) Set(key string, value any) {
	if _, ok := b.pending[key]; !ok {
		b.order = append(b.order, key)
	}
	b.pending[key] = value
}

// Get returns the buffered value for key, or the stored value.
func (b *Batch) Get(ctx context.Context, key string) (any, error) {
	if v, ok := b.pending[key]; ok {
		return v, nil
	}
	return b.engine.Get(ctx, b.db, key, b.id)
}

// Pending returns the number of buffered keys.
func (b *Batch) Pending() int {
	return len(b.order)
}

func (b *Batch) flush(ctx context.Context) error {
	var errs []error
	for _, key := range b.order {
		if _, err := b.engine.Set(ctx, b.db, key, b.pending[key], b.id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	b.order = nil
	b.pending = map[string]any{}
	return errors.Join(errs...)
}

// Batch runs fn with a batch bound to db and id. Buffered sets are flushed
// on every exit from fn: normal return, error return and panic. The panic
// is re-raised after the flush. Flush errors are joined with fn's error.
func (e *Engine) Batch(ctx context.Context, db string, id domain.Identity, fn func(*Batch) error) (err error) {
	if _, err := e.database(ctx, db); err != nil {
		return err
	}
	b := &Batch{
		engine:  e,
		db:      db,
		id:      id,
		pending: map[string]any{},
	}

	defer func() {
		r := recover()
		flushErr := b.flush(context.WithoutCancel(ctx))
		if r != nil {
			if flushErr != nil {
				e.logger.Error("batch flush after panic failed", "db", db, "error", flushErr)
			}
			panic(r)
		}
		err = errors.Join(err, flushErr)
	}()

	return fn(b)
}
