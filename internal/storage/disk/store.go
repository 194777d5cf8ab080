package disk

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
)

const (
	databasesDir      = "databases"
	itemExtension     = ".item"
	manifestExtension = ".database"
)

// Config configures a Store.
type Config struct {
	// Root is the storage root; databases live under Root/databases.
	Root string

	// Cipher seals file bodies when set.
	Cipher adaptive.Cipher

	Logger *slog.Logger
}

// DefaultConfig returns a plaintext configuration rooted at root.
func DefaultConfig(root string) Config {
	return Config{
		Root:   root,
		Logger: slog.Default(),
	}
}

// Store reads and writes database trees under a root directory.
//
// Store holds no locks; callers serialize access per item and per
// database.
type Store struct {
	root   string
	cipher adaptive.Cipher
	logger *slog.Logger
}

// New creates a Store. The root directory is created lazily on first write.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("disk: root is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		root:   cfg.Root,
		cipher: cfg.Cipher,
		logger: cfg.Logger.With("component", "disk"),
	}, nil
}

// Root returns the storage root.
func (s *Store) Root() string {
	return s.root
}

// Encrypted reports whether new files are sealed.
func (s *Store) Encrypted() bool {
	return s.cipher != nil
}

func (s *Store) dbDir(db string) string {
	return filepath.Join(s.root, databasesDir, url.PathEscape(db))
}

func (s *Store) itemPath(db, key string) string {
	return filepath.Join(s.dbDir(db), url.PathEscape(key)+itemExtension)
}

func (s *Store) manifestPath(db string) string {
	return filepath.Join(s.dbDir(db), url.PathEscape(db)+manifestExtension)
}

// legacyPath is the unescaped location older servers wrote name to. It
// returns "" when an element could escape the database directory.
func (s *Store) legacyPath(db, name string) string {
	for _, elem := range []string{db, name} {
		if elem == "" || elem == "." || elem == ".." || strings.ContainsAny(elem, `/\`) {
			return ""
		}
	}
	return filepath.Join(s.root, databasesDir, db, name)
}

// readFile reads path, falling back to the unescaped legacy location when
// path does not exist.
func (s *Store) readFile(path, legacy string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) || legacy == "" || legacy == path {
		return path, data, err
	}
	data, lerr := os.ReadFile(legacy)
	if lerr != nil {
		return path, nil, err
	}
	return legacy, data, nil
}

// sealName is the associated data for a file: its path relative to the
// databases directory.
func sealName(db, file string) string {
	return url.PathEscape(db) + "/" + file
}

// WriteItem persists one item file.
func (s *Store) WriteItem(db string, it *domain.Item) error {
	data, err := encodeItem(it)
	if err != nil {
		return domain.ErrPersistence.WithCause(fmt.Errorf("disk: encode item %q: %w", it.Key, err))
	}
	path := s.itemPath(db, it.Key)
	data, err = seal(s.cipher, sealName(db, filepath.Base(path)), data)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	return nil
}

// ReadItem loads one item file, upgrading legacy layouts in memory.
func (s *Store) ReadItem(db, key string) (*domain.Item, error) {
	path, data, err := s.readFile(s.itemPath(db, key), s.legacyPath(db, key+itemExtension))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrItemNotFound.WithDetails(db + "/" + key).WithCause(err)
		}
		return nil, domain.ErrPersistence.WithCause(err)
	}
	data, err = open(s.cipher, sealName(db, filepath.Base(path)), data)
	if err != nil {
		return nil, domain.ErrPersistence.WithCause(err)
	}
	it, migrated, err := decodeItem(data)
	if err != nil {
		return nil, domain.ErrPersistence.WithCause(fmt.Errorf("%s: %w", path, err))
	}
	if migrated {
		s.logger.Info("upgraded legacy item", "db", db, "key", key)
	}
	if it.Key == "" {
		it.Key = key
	}
	return it, nil
}

// WriteManifest persists a database manifest.
func (s *Store) WriteManifest(m Manifest) error {
	data, err := encodeManifest(m)
	if err != nil {
		return domain.ErrPersistence.WithCause(fmt.Errorf("disk: encode manifest %q: %w", m.Name, err))
	}
	path := s.manifestPath(m.Name)
	data, err = seal(s.cipher, sealName(m.Name, filepath.Base(path)), data)
	if err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	return nil
}

// ReadManifest loads a database manifest. A missing manifest is
// ErrDatabaseNotFound.
func (s *Store) ReadManifest(db string) (Manifest, error) {
	path, data, err := s.readFile(s.manifestPath(db), s.legacyPath(db, db+manifestExtension))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{}, domain.ErrDatabaseNotFound.WithDetails(db).WithCause(err)
		}
		return Manifest{}, domain.ErrPersistence.WithCause(err)
	}
	data, err = open(s.cipher, sealName(db, filepath.Base(path)), data)
	if err != nil {
		return Manifest{}, domain.ErrPersistence.WithCause(err)
	}
	m, migrated, err := decodeManifest(data)
	if err != nil {
		return Manifest{}, domain.ErrPersistence.WithCause(fmt.Errorf("%s: %w", path, err))
	}
	if migrated {
		s.logger.Info("upgraded legacy manifest", "db", db)
	}
	if m.Name == "" {
		m.Name = db
	}
	return m, nil
}

// ReadDatabase hydrates a database from its manifest. An item that cannot
// be read is logged and loaded in its default state.
func (s *Store) ReadDatabase(db string) (map[string]*domain.Item, error) {
	m, err := s.ReadManifest(db)
	if err != nil {
		return nil, err
	}
	items := make(map[string]*domain.Item, len(m.Keys))
	for _, key := range m.Keys {
		it, err := s.ReadItem(db, key)
		if err != nil {
			s.logger.Warn("unable to read item, using default state",
				"db", db,
				"key", key,
				"error", err,
			)
			it = defaultItem(key)
		}
		items[key] = it
	}
	return items, nil
}

func defaultItem(key string) *domain.Item {
	it := &domain.Item{Key: key}
	applyDefaults(it)
	return it
}

// writeFileAtomic writes data to a temp file in the target directory,
// syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("disk: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("disk: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("disk: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("disk: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("disk: close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("disk: rename %s: %w", path, err)
	}
	return nil
}
