package storage

import (
	"context"

	"github.com/yndnr/aci-go/internal/core/domain"
)

// Get returns the value of db[key].
func (e *Engine) Get(ctx context.Context, db, key string, id domain.Identity) (any, error) {
	d, err := e.database(ctx, db)
	if err != nil {
		return nil, err
	}
	ent, err := d.lookup(key)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.item.Get(id)
}

// Set replaces the value of db[key], creating the item when absent, and
// writes it through to disk. A write-through failure is returned as
// ErrPersistence while the new value stays applied in memory.
func (e *Engine) Set(ctx context.Context, db, key string, value any, id domain.Identity) (any, error) {
	d, err := e.database(ctx, db)
	if err != nil {
		return nil, err
	}
	ent, created, err := d.lookupOrCreate(key, func() (*domain.Item, error) {
		if id.IsAnonymous() {
			return nil, domain.ErrAccessDenied
		}
		return domain.NewItem(key, value, id), nil
	})
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	applied, err := ent.item.Set(value, id)
	if err != nil {
		return nil, err
	}
	if created {
		e.logger.Debug("item created", "db", db, "key", key, "owner", id.String())
	}
	if err := e.persist(db, ent.item); err != nil {
		return applied, err
	}
	return applied, nil
}

// GetIndex returns the list elements of db[key] at indices.
func (e *Engine) GetIndex(ctx context.Context, db, key string, indices []int, id domain.Identity) (map[int]any, error) {
	ent, err := e.item(ctx, db, key)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.item.GetIndex(indices, id)
}

// SetIndex assigns values to the list elements of db[key] at indices and
// writes the item through. Nothing is applied when any index is out of
// range.
func (e *Engine) SetIndex(ctx context.Context, db, key string, indices []int, values []any, id domain.Identity) error {
	ent, err := e.item(ctx, db, key)
	if err != nil {
		return err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if err := ent.item.SetIndex(indices, values, id); err != nil {
		return err
	}
	return e.persist(db, ent.item)
}

// AppendIndex appends values to the list db[key], evicting from the front
// beyond the item's MaxLen, and writes the item through.
func (e *Engine) AppendIndex(ctx context.Context, db, key string, values []any, id domain.Identity) error {
	ent, err := e.item(ctx, db, key)
	if err != nil {
		return err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if err := ent.item.Append(values, id); err != nil {
		return err
	}
	return e.persist(db, ent.item)
}

// Len returns the length of the list db[key].
func (e *Engine) Len(ctx context.Context, db, key string, id domain.Identity) (int, error) {
	ent, err := e.item(ctx, db, key)
	if err != nil {
		return 0, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.item.Len(id)
}

// Recent returns the last n elements of the list db[key].
func (e *Engine) Recent(ctx context.Context, db, key string, n int, id domain.Identity) ([]any, error) {
	ent, err := e.item(ctx, db, key)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.item.Recent(n, id)
}

func (e *Engine) item(ctx context.Context, db, key string) (*entry, error) {
	d, err := e.database(ctx, db)
	if err != nil {
		return nil, err
	}
	return d.lookup(key)
}
