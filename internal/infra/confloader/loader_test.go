package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		ListenAddr string `koanf:"listen_addr"`
		WSPath     string `koanf:"ws_path"`
	} `koanf:"server"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
	Storage struct {
		RootDir string `koanf:"root_dir"`
	} `koanf:"storage"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aci.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
	l = NewLoader(WithEnvPrefix("T_"), WithConfigFile("/x.yaml"))
	if l.envPrefix != "T_" || l.FilePath() != "/x.yaml" {
		t.Errorf("options not applied: %q %q", l.envPrefix, l.FilePath())
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeFile(t, `
server:
  listen_addr: "127.0.0.1:1000"
  ws_path: "/file"
log:
  level: warn
storage:
  root_dir: /from/file
`)
	t.Setenv("ACIT_SERVER__WS_PATH", "/env")
	t.Setenv("ACIT_STORAGE__ROOT_DIR", "/from/env")
	t.Setenv("ACIT_SERVER", "ws://cli-only")

	l := NewLoader(
		WithEnvPrefix("ACIT_"),
		WithConfigFile(path),
		WithOverrides(map[string]any{"storage.root_dir": "/from/flag"}),
	)

	var cfg testConfig
	cfg.Log.Level = "info"
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != "127.0.0.1:1000" {
		t.Errorf("listen_addr = %q (file)", cfg.Server.ListenAddr)
	}
	if cfg.Server.WSPath != "/env" {
		t.Errorf("ws_path = %q, want env value", cfg.Server.WSPath)
	}
	if cfg.Storage.RootDir != "/from/flag" {
		t.Errorf("root_dir = %q, want flag value", cfg.Storage.RootDir)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() = false after Load")
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	l := NewLoader(WithEnvPrefix("ACIT_NONE_"))
	var cfg testConfig
	cfg.Server.WSPath = "/ws"
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.WSPath != "/ws" {
		t.Errorf("default overwritten: %q", cfg.Server.WSPath)
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	l := NewLoader(WithConfigFile("/nonexistent/aci.yaml"))
	var cfg testConfig
	if err := l.Load(&cfg); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestLoader_Reload_DropsRemovedKeys(t *testing.T) {
	path := writeFile(t, "log:\n  level: debug\n")
	l := NewLoader(WithEnvPrefix("ACIT_NONE_"), WithConfigFile(path))

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.WriteFile(path, []byte("server:\n  ws_path: /n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.Load(&testConfig{}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := l.GetString("log.level"); got != "" {
		t.Errorf("log.level = %q after removal", got)
	}
	if got := l.GetString("server.ws_path"); got != "/n" {
		t.Errorf("server.ws_path = %q", got)
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{
		"server.listen_addr": ":7000",
		"limits":             map[string]any{"rate": 10},
		"log.enabled":        true,
	}); err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if got := l.GetString("server.listen_addr"); got != ":7000" {
		t.Errorf("listen_addr = %q", got)
	}
	if got := l.GetInt("limits.rate"); got != 10 {
		t.Errorf("limits.rate = %d", got)
	}
	if !l.GetBool("log.enabled") {
		t.Error("log.enabled = false")
	}
	if _, ok := l.All()["server"]; !ok {
		t.Error("All() missing server section")
	}
}

func TestLoader_LoadFile(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") = %v", err)
	}
	if err := l.LoadFile(writeFile(t, "server:\n  ws_path: /f\n")); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.WSPath != "/f" {
		t.Errorf("ws_path = %q", cfg.Server.WSPath)
	}
}

func TestEnvKey(t *testing.T) {
	l := NewLoader()
	tests := map[string]string{
		"ACI_LOG__LEVEL":           "log.level",
		"ACI_STORAGE__ROOT_DIR":    "storage.root_dir",
		"ACI_AUTH__FEDERATED__KEY": "auth.federated.key",
		"ACI_SERVER":               "",
		"ACI_TOKEN":                "",
	}
	for in, want := range tests {
		if got := l.envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
