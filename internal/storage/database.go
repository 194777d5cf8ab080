package storage

import (
	"sort"
	"sync"

	"github.com/yndnr/aci-go/internal/core/domain"
)

// Database is a named collection of items.
type Database struct {
	name string

	mu    sync.RWMutex
	items map[string]*entry
}

// entry serializes access to one item.
type entry struct {
	mu   sync.Mutex
	item *domain.Item
}

func newDatabase(name string, items map[string]*domain.Item) *Database {
	d := &Database{
		name:  name,
		items: make(map[string]*entry, len(items)),
	}
	for key, it := range items {
		d.items[key] = &entry{item: it}
	}
	return d
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.name
}

func (d *Database) lookup(key string) (*entry, error) {
	d.mu.RLock()
	e, ok := d.items[key]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.ErrItemNotFound.WithDetails(d.name + "[" + key + "]")
	}
	return e, nil
}

// lookupOrCreate returns the entry for key, creating it with create when
// absent. created reports whether a new entry was inserted.
func (d *Database) lookupOrCreate(key string, create func() (*domain.Item, error)) (e *entry, created bool, err error) {
	if e, err := d.lookup(key); err == nil {
		return e, false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.items[key]; ok {
		return e, false, nil
	}
	it, err := create()
	if err != nil {
		return nil, false, err
	}
	e = &entry{item: it}
	d.items[key] = e
	return e, true, nil
}

// Keys returns the member keys in sorted order.
func (d *Database) Keys() []string {
	d.mu.RLock()
	keys := make([]string, 0, len(d.items))
	for k := range d.items {
		keys = append(keys, k)
	}
	d.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of items.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// entries returns the current entries sorted by key. The key map is
// read-locked only while the slice is built.
func (d *Database) entries() []*entry {
	d.mu.RLock()
	out := make([]*entry, 0, len(d.items))
	for _, e := range d.items {
		out = append(out, e)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].item.Key < out[j].item.Key })
	return out
}
