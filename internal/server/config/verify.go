package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/aci-go/internal/telemetry/logger"
	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
	"github.com/yndnr/aci-go/pkg/idtoken"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifySecurity(&cfg.Security),
		verifyAuth(&cfg.Auth),
		verifyLog(&cfg.Log),
		verifyMetrics(cfg),
	)
}

func verifyServer(s *ServerSection) error {
	var errs []error
	if _, _, err := net.SplitHostPort(s.ListenAddr); err != nil {
		errs = append(errs, fmt.Errorf("server.listen_addr %q: %w", s.ListenAddr, err))
	}
	if !strings.HasPrefix(s.WSPath, "/") {
		errs = append(errs, fmt.Errorf("server.ws_path %q must start with /", s.WSPath))
	}
	if (s.TLSCertFile == "") != (s.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
	}
	for _, f := range []string{s.TLSCertFile, s.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("tls file: %w", err))
		}
	}
	if s.IdleTimeout < 0 || s.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if s.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("server.max_message_bytes must be positive"))
	}
	if s.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be at least 1 when rate_limit is set"))
	}
	for _, entry := range s.AdminAllowList {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				errs = append(errs, fmt.Errorf("server.admin_allow_list: %w", err))
			}
		} else if net.ParseIP(entry) == nil {
			errs = append(errs, fmt.Errorf("server.admin_allow_list: invalid IP %q", entry))
		}
	}
	return errors.Join(errs...)
}

func verifyStorage(s *StorageSection) error {
	if s.RootDir == "" {
		return errors.New("storage.root_dir is required")
	}
	if s.ShardCount < 1 {
		return errors.New("storage.shard_count must be at least 1")
	}
	return nil
}

func verifySecurity(s *SecuritySection) error {
	switch adaptive.CipherType(s.Cipher) {
	case "", adaptive.CipherAESGCM, adaptive.CipherChaCha20:
	default:
		return fmt.Errorf("security.cipher %q: want aes-gcm or chacha20-poly1305", s.Cipher)
	}
	if s.Cipher != "" && s.EncryptionKey == "" {
		return errors.New("security.cipher is set but security.encryption_key is empty")
	}
	return nil
}

func verifyAuth(a *AuthSection) error {
	if a.Federated.PublicKey == "" {
		return nil
	}
	if _, err := idtoken.ParsePublicKey(a.Federated.PublicKey); err != nil {
		return fmt.Errorf("auth.federated.public_key: %w", err)
	}
	if len(a.Federated.AllowedOrgs) == 0 {
		return errors.New("auth.federated.allowed_orgs is required when public_key is set")
	}
	return nil
}

func verifyLog(l *LogSection) error {
	if !logger.ValidLevel(l.Level) {
		return fmt.Errorf("log.level %q: want debug, info, warn or error", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text", "console":
		return nil
	}
	return fmt.Errorf("log.format %q: want json or text", l.Format)
}

func verifyMetrics(cfg *ServerConfig) error {
	m := cfg.Metrics
	if !m.Enabled {
		return nil
	}
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", m.Path)
	}
	if m.Path == cfg.Server.WSPath {
		return fmt.Errorf("metrics.path and server.ws_path are both %q", m.Path)
	}
	return nil
}
