package config

import "time"

// Default configuration values.
const (
	DefaultListenAddr      = "127.0.0.1:8765"
	DefaultWSPath          = "/"
	DefaultIdleTimeout     = 0
	DefaultWriteTimeout    = 5 * time.Second
	DefaultMaxMessageBytes = 16 << 20
	DefaultRateLimit       = 0
	DefaultRateBurst       = 100
	DefaultShutdownTimeout = 10 * time.Second

	DefaultRootDir    = "./aci-data"
	DefaultShardCount = 16

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			ListenAddr:      DefaultListenAddr,
			WSPath:          DefaultWSPath,
			IdleTimeout:     DefaultIdleTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			MaxMessageBytes: DefaultMaxMessageBytes,
			RateLimit:       DefaultRateLimit,
			RateBurst:       DefaultRateBurst,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			RootDir:    DefaultRootDir,
			ShardCount: DefaultShardCount,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
