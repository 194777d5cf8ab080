package config

import "time"

// ServerConfig is the root configuration of aci-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Auth     AuthSection     `koanf:"auth"`
	Log      LogSection      `koanf:"log"`
	Metrics  MetricsSection  `koanf:"metrics"`
}

// ServerSection configures the client endpoint.
type ServerSection struct {
	// ListenAddr is the HTTP listen address serving the websocket
	// endpoint, /metrics and /healthz.
	ListenAddr string `koanf:"listen_addr"`

	// WSPath is the websocket upgrade path.
	WSPath string `koanf:"ws_path"`

	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// IdleTimeout closes a session that sends nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// MaxMessageBytes bounds a single inbound frame.
	MaxMessageBytes int64 `koanf:"max_message_bytes"`

	// RateLimit is the sustained commands per second per connection.
	// Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// OriginPatterns lists extra browser origins allowed to open the
	// websocket, e.g. "*.example.com". Same-origin is always allowed.
	OriginPatterns []string `koanf:"origin_patterns"`

	// AdminAllowList restricts /clients to these IPs or CIDRs. Empty
	// allows loopback only.
	AdminAllowList []string `koanf:"admin_allow_list"`
}

// StorageSection configures the storage engine.
type StorageSection struct {
	// RootDir holds databases/<db>/ directories.
	RootDir string `koanf:"root_dir"`

	// ShardCount is the shard count of the database registry.
	ShardCount int `koanf:"shard_count"`
}

// SecuritySection configures at-rest encryption.
type SecuritySection struct {
	// EncryptionKey enables encryption when set: 64 hex characters are
	// used as the key, anything else as a passphrase.
	EncryptionKey string `koanf:"encryption_key"`

	// Cipher selects the AEAD: "", "aes-gcm" or "chacha20-poly1305". Empty
	// picks by hardware support.
	Cipher string `koanf:"cipher"`
}

// AuthSection configures federated authentication.
type AuthSection struct {
	Federated FederatedConfig `koanf:"federated"`
}

// FederatedConfig configures the identity-provider token verifier.
type FederatedConfig struct {
	// PublicKey is the Ed25519 verification key (hex or base64). Empty
	// disables federated auth.
	PublicKey string `koanf:"public_key"`

	// Issuers lists accepted issuers. Empty accepts any.
	Issuers []string `koanf:"issuers"`

	// AllowedOrgs lists accepted organization claims. Required when
	// PublicKey is set.
	AllowedOrgs []string `koanf:"allowed_orgs"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}
