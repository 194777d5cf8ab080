package confloader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "ACI_"

// levelSeparator separates nesting levels in environment names.
const levelSeparator = "__"

// Loader loads configuration from multiple sources.
type Loader struct {
	mu        sync.RWMutex
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
	loaded    bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values applied above every other source, typically
// from command-line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file path, or "".
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads every source and unmarshals into target. Fields not present
// in any source keep their current value.
func (l *Loader) Load(target any) error {
	k, err := l.read()
	if err != nil {
		return err
	}
	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.mu.Lock()
	l.k = k
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// read builds a fresh koanf instance from all sources so a reload does
// not keep keys removed from the file.
func (l *Loader) read() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if l.filePath != "" {
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}
	if err := k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if len(l.overrides) > 0 {
		if err := k.Load(mapProvider(l.overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}
	return k, nil
}

// envKey maps ACI_SERVER__LISTEN_ADDR to server.listen_addr. Variables
// without a section separator (ACI_SERVER, ACI_TOKEN used by the CLI) are
// skipped.
func (l *Loader) envKey(s string) string {
	s = strings.TrimPrefix(s, l.envPrefix)
	if !strings.Contains(s, levelSeparator) {
		return ""
	}
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, levelSeparator, ".")
}

// LoadFile merges a YAML file into the loaded configuration.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadMap merges a map into the loaded configuration.
func (l *Loader) LoadMap(data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into target.
func (l *Loader) Unmarshal(target any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Unmarshal("", target)
}

// GetString returns a string value by dotted key.
func (l *Loader) GetString(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.String(key)
}

// GetInt returns an int value by dotted key.
func (l *Loader) GetInt(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Int(key)
}

// GetBool returns a bool value by dotted key.
func (l *Loader) GetBool(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Bool(key)
}

// IsLoaded reports whether Load has succeeded at least once.
func (l *Loader) IsLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// All returns the loaded configuration as a nested map.
func (l *Loader) All() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.k.Raw()
}
