package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/aci-go/internal/core/service"
	"github.com/yndnr/aci-go/internal/infra/shutdown"
	"github.com/yndnr/aci-go/internal/server/httpserver"
	"github.com/yndnr/aci-go/internal/server/wsserver"
	"github.com/yndnr/aci-go/internal/storage"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

func TestShutdownLeavesDiskUntouched(t *testing.T) {
	root := t.TempDir()
	legacy := filepath.Join(root, "databases", "old")
	if err := os.MkdirAll(legacy, 0750); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(legacy, "old.database")
	if err := os.WriteFile(manifest, []byte(`["old", []]`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := storage.DefaultConfig(root)
	cfg.Logger = logger.Discard()
	engine, err := storage.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := engine.ReadFromDisk(ctx, "old"); err != nil {
		t.Fatalf("ReadFromDisk: %v", err)
	}
	if err := engine.CreateDatabase(ctx, "scratch"); err != nil {
		t.Fatal(err)
	}

	auth := service.NewAuthService(engine, nil, &service.AuthConfig{Logger: logger.Discard()})
	ws := wsserver.New(nil, engine, auth, wsserver.WithLogger(logger.Discard()))
	httpServer := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), logger.Discard())

	h := shutdown.NewHandler(5*time.Second, logger.Discard())
	registerShutdown(h, httpServer, ws)
	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "databases", "scratch")); !os.IsNotExist(err) {
		t.Errorf("created-only database reached disk: %v", err)
	}
	raw, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `["old", []]` {
		t.Errorf("legacy manifest rewritten: %s", raw)
	}
}
