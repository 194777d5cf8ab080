package storage

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/yndnr/aci-go/internal/core/domain"
)

// Items of the reserved config database.
const (
	ConfigListenAddr  = "listen_addr"
	ConfigRootDir     = "root_dir"
	ConfigDatabases   = "dbs"
	ConfigStaticUsers = "a_users"

	legacyConfigIP      = "ip"
	legacyConfigPort    = "port"
	legacyConfigRootDir = "rootDir"
)

// Bootstrap is the startup configuration found in the config database.
type Bootstrap struct {
	// ListenAddr is host:port, empty when not configured.
	ListenAddr string

	// RootDir is the storage root for the listed databases, empty when
	// not configured.
	RootDir string

	// Databases lists the databases to preload.
	Databases []string

	// Loaded lists the databases that were preloaded successfully.
	Loaded []string
}

// LoadBootstrap reads the config database, applies its root_dir and
// preloads the databases it lists. A database that fails to load is logged
// and skipped. An error means the config database itself was unreadable;
// the engine then holds no databases.
func (e *Engine) LoadBootstrap(ctx context.Context) (*Bootstrap, error) {
	if err := e.ReadFromDisk(ctx, ConfigDatabase); err != nil {
		return nil, fmt.Errorf("storage: read config database: %w", err)
	}

	bs := &Bootstrap{
		ListenAddr: e.listenAddr(ctx),
		RootDir:    e.configString(ctx, ConfigRootDir, legacyConfigRootDir),
		Databases:  e.configList(ctx, ConfigDatabases),
	}

	if bs.RootDir != "" && bs.RootDir != e.Root() {
		if err := e.relocate(bs.RootDir); err != nil {
			return nil, err
		}
		e.logger.Info("storage root relocated", "root", bs.RootDir)
	}

	for _, name := range bs.Databases {
		if name == ConfigDatabase {
			continue
		}
		if err := e.ReadFromDisk(ctx, name); err != nil {
			e.logger.Warn("preload database failed", "db", name, "error", err)
			continue
		}
		bs.Loaded = append(bs.Loaded, name)
	}
	return bs, nil
}

func (e *Engine) configValue(ctx context.Context, key string) (any, bool) {
	v, err := e.Get(ctx, ConfigDatabase, key, domain.Backend)
	if err != nil || v == nil || v == "" {
		return nil, false
	}
	return v, true
}

func (e *Engine) configString(ctx context.Context, keys ...string) string {
	for _, key := range keys {
		if v, ok := e.configValue(ctx, key); ok {
			return scalarString(v)
		}
	}
	return ""
}

func (e *Engine) configList(ctx context.Context, key string) []string {
	v, ok := e.configValue(ctx, key)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return []string{scalarString(v)}
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		if s := scalarString(elem); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) listenAddr(ctx context.Context) string {
	if addr := e.configString(ctx, ConfigListenAddr); addr != "" {
		return addr
	}
	ip := e.configString(ctx, legacyConfigIP)
	port := e.configString(ctx, legacyConfigPort)
	if port == "" {
		return ""
	}
	return net.JoinHostPort(ip, port)
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}
