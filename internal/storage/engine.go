package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/storage/disk"
	"github.com/yndnr/aci-go/pkg/cmap"
	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
)

// ConfigDatabase is the reserved database read at startup.
const ConfigDatabase = "config"

// Observer receives persistence outcomes. The metrics package implements
// it; a nil Observer is ignored.
type Observer interface {
	ObservePersist(op string, err error)
}

// Config configures the storage engine.
type Config struct {
	// Root is the storage root; databases live under Root/databases.
	Root string

	// Cipher is the optional at-rest cipher.
	Cipher adaptive.Cipher

	// ShardCount is the shard count of the database registry.
	ShardCount int

	Observer Observer
	Logger   *slog.Logger
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(root string) Config {
	return Config{
		Root:       root,
		ShardCount: cmap.DefaultShardCount,
		Logger:     slog.Default(),
	}
}

// Engine owns the database registry and applies permissioned operations.
type Engine struct {
	cfg      Config
	disk     atomic.Pointer[disk.Store]
	dbs      *cmap.Map[*Database]
	observer Observer
	logger   *slog.Logger
}

// New creates a storage engine with no databases loaded.
func New(cfg Config) (*Engine, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage: root is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	store, err := disk.New(disk.Config{
		Root:   cfg.Root,
		Cipher: cfg.Cipher,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open disk store: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		dbs:      cmap.NewWithShards[*Database](cfg.ShardCount),
		observer: cfg.Observer,
		logger:   cfg.Logger.With("component", "storage"),
	}
	e.disk.Store(store)
	return e, nil
}

// Root returns the current storage root.
func (e *Engine) Root() string {
	return e.disk.Load().Root()
}

// relocate points subsequent disk operations at a new root.
func (e *Engine) relocate(root string) error {
	store, err := disk.New(disk.Config{
		Root:   root,
		Cipher: e.cfg.Cipher,
		Logger: e.cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("storage: relocate: %w", err)
	}
	e.disk.Store(store)
	return nil
}

func (e *Engine) database(ctx context.Context, name string) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, ok := e.dbs.Get(name)
	if !ok {
		return nil, domain.ErrDatabaseNotFound.WithDetails(name)
	}
	return d, nil
}

// CreateDatabase registers an empty in-memory database. It is not
// persisted until WriteToDisk.
func (e *Engine) CreateDatabase(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return domain.ErrMalformedRequest.WithDetails("database name is empty")
	}
	if !e.dbs.SetIfAbsent(name, newDatabase(name, nil)) {
		return domain.ErrDatabaseExists.WithDetails(name)
	}
	e.logger.Info("database created", "db", name)
	return nil
}

// Databases returns the names of all loaded databases in sorted order.
func (e *Engine) Databases() []string {
	return e.dbs.Keys()
}

// ListKeys returns the keys of a database in sorted order.
func (e *Engine) ListKeys(ctx context.Context, name string) ([]string, error) {
	d, err := e.database(ctx, name)
	if err != nil {
		return nil, err
	}
	return d.Keys(), nil
}

// WriteToDisk persists a database and all its items. An empty name writes
// every loaded database.
func (e *Engine) WriteToDisk(ctx context.Context, name string) error {
	if name == "" {
		names := e.Databases()
		for _, n := range names {
			if err := e.WriteToDisk(ctx, n); err != nil {
				return err
			}
		}
		return nil
	}

	d, err := e.database(ctx, name)
	if err != nil {
		return err
	}
	store := e.disk.Load()
	ents := d.entries()
	keys := make([]string, 0, len(ents))
	for _, ent := range ents {
		// Held across the write so a concurrent Set cannot be overwritten
		// by an older copy.
		ent.mu.Lock()
		err = store.WriteItem(name, ent.item)
		keys = append(keys, ent.item.Key)
		ent.mu.Unlock()
		if err != nil {
			e.observe("write_database", err)
			e.logger.Error("write database failed", "db", name, "error", err)
			return err
		}
	}

	err = store.WriteManifest(disk.Manifest{Name: name, Keys: keys})
	e.observe("write_database", err)
	if err != nil {
		e.logger.Error("write database failed", "db", name, "error", err)
		return err
	}
	e.logger.Debug("database written", "db", name, "items", len(keys))
	return nil
}

// ReadFromDisk hydrates a database from disk, replacing any in-memory
// state held under that name.
func (e *Engine) ReadFromDisk(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items, err := e.disk.Load().ReadDatabase(name)
	e.observe("read_database", err)
	if err != nil {
		return err
	}
	e.dbs.Set(name, newDatabase(name, items))
	e.logger.Info("database loaded", "db", name, "items", len(items))
	return nil
}

// persist writes one item through to disk. The caller holds the item lock.
func (e *Engine) persist(db string, it *domain.Item) error {
	err := e.disk.Load().WriteItem(db, it)
	e.observe("write_item", err)
	if err != nil {
		e.logger.Error("write-through failed", "db", db, "key", it.Key, "error", err)
	}
	return err
}

func (e *Engine) observe(op string, err error) {
	if e.observer != nil {
		e.observer.ObservePersist(op, err)
	}
}
