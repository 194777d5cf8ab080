package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/aci-go/pkg/idtoken"
)

func TestDefault_Verifies(t *testing.T) {
	cfg := Default()
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(Default()) = %v", err)
	}
	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Storage.RootDir != DefaultRootDir {
		t.Errorf("RootDir = %q", cfg.Storage.RootDir)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestVerify(t *testing.T) {
	pub, _, err := idtoken.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"valid federated key", func(c *ServerConfig) {
			c.Auth.Federated.PublicKey = hex.EncodeToString(pub)
			c.Auth.Federated.AllowedOrgs = []string{"example.com"}
		}, ""},
		{"federated key without orgs", func(c *ServerConfig) { c.Auth.Federated.PublicKey = hex.EncodeToString(pub) }, "allowed_orgs"},
		{"valid cipher", func(c *ServerConfig) {
			c.Security.EncryptionKey = "passphrase-123"
			c.Security.Cipher = "chacha20-poly1305"
		}, ""},
		{"bad listen addr", func(c *ServerConfig) { c.Server.ListenAddr = "nope" }, "server.listen_addr"},
		{"bad ws path", func(c *ServerConfig) { c.Server.WSPath = "ws" }, "server.ws_path"},
		{"half tls", func(c *ServerConfig) { c.Server.TLSCertFile = "/c.pem" }, "set together"},
		{"missing tls file", func(c *ServerConfig) {
			c.Server.TLSCertFile = "/nonexistent/c.pem"
			c.Server.TLSKeyFile = "/nonexistent/k.pem"
		}, "tls file"},
		{"zero write timeout", func(c *ServerConfig) { c.Server.WriteTimeout = 0 }, "timeouts"},
		{"negative rate", func(c *ServerConfig) { c.Server.RateLimit = -1 }, "rate_limit"},
		{"rate without burst", func(c *ServerConfig) {
			c.Server.RateLimit = 10
			c.Server.RateBurst = 0
		}, "rate_burst"},
		{"bad allow-list ip", func(c *ServerConfig) { c.Server.AdminAllowList = []string{"10.0.0"} }, "admin_allow_list"},
		{"bad allow-list cidr", func(c *ServerConfig) { c.Server.AdminAllowList = []string{"10.0.0.0/99"} }, "admin_allow_list"},
		{"empty root", func(c *ServerConfig) { c.Storage.RootDir = "" }, "storage.root_dir"},
		{"zero shards", func(c *ServerConfig) { c.Storage.ShardCount = 0 }, "shard_count"},
		{"unknown cipher", func(c *ServerConfig) {
			c.Security.EncryptionKey = "k"
			c.Security.Cipher = "rot13"
		}, "security.cipher"},
		{"cipher without key", func(c *ServerConfig) { c.Security.Cipher = "aes-gcm" }, "encryption_key is empty"},
		{"bad federated key", func(c *ServerConfig) { c.Auth.Federated.PublicKey = "xyz" }, "public_key"},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
		{"metrics path clash", func(c *ServerConfig) { c.Metrics.Path = "/" }, "both"},
		{"metrics disabled ignores path", func(c *ServerConfig) {
			c.Metrics.Enabled = false
			c.Metrics.Path = ""
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Verify() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_TLSFilesPresent(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "c.pem")
	key := filepath.Join(dir, "k.pem")
	for _, f := range []string{cert, key} {
		if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	cfg := Default()
	cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile = cert, key
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Security.EncryptionKey = "super-secret-passphrase"
	cfg.Auth.Federated.Issuers = []string{"https://idp"}

	s := Sanitize(cfg)
	if cfg.Security.EncryptionKey != "super-secret-passphrase" {
		t.Error("original modified")
	}
	if s.Security.EncryptionKey == cfg.Security.EncryptionKey {
		t.Error("key not masked")
	}
	if !strings.HasPrefix(s.Security.EncryptionKey, "su") || !strings.HasSuffix(s.Security.EncryptionKey, "se") {
		t.Errorf("mask = %q", s.Security.EncryptionKey)
	}
	s.Auth.Federated.Issuers[0] = "changed"
	if cfg.Auth.Federated.Issuers[0] != "https://idp" {
		t.Error("Sanitize shares the issuer slice")
	}
	if maskSecret("abc") != "****" {
		t.Errorf("maskSecret short = %q", maskSecret("abc"))
	}
}
