package benchmark

import (
	"context"
	"fmt"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/core/service"
	"github.com/yndnr/aci-go/internal/server/wsserver"
	"github.com/yndnr/aci-go/internal/storage"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
	"github.com/yndnr/aci-go/pkg/crypto/adaptive"
)

// ItemCounts are the database sizes benchmarks run against.
var ItemCounts = []int{1000, 10000}

const benchDB = "bench"

// owner is the identity items are created and read with.
var owner = domain.Identity{Kind: domain.KindService, Principal: "bench"}

// newEngine returns an engine with an empty bench database.
func newEngine(b *testing.B, cipher adaptive.Cipher) *storage.Engine {
	b.Helper()
	cfg := storage.DefaultConfig(b.TempDir())
	cfg.Cipher = cipher
	cfg.Logger = logger.Discard()
	e, err := storage.New(cfg)
	if err != nil {
		b.Fatal(err)
	}
	if err := e.CreateDatabase(context.Background(), benchDB); err != nil {
		b.Fatal(err)
	}
	return e
}

// prefill writes count items and returns their keys.
func prefill(b *testing.B, e *storage.Engine, count int) []string {
	b.Helper()
	ctx := context.Background()
	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%06d", i)
		value := map[string]any{"n": i, "name": strings.Repeat("x", 32)}
		if _, err := e.Set(ctx, benchDB, keys[i], value, owner); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
	return keys
}

// startServer serves e over a websocket with the static user bench/bench.
func startServer(b *testing.B, e *storage.Engine) string {
	b.Helper()
	ctx := context.Background()
	if err := e.CreateDatabase(ctx, storage.ConfigDatabase); err != nil {
		b.Fatal(err)
	}
	users := map[string]any{"bench": map[string]any{"tokens": []any{"bench"}}}
	if _, err := e.Set(ctx, storage.ConfigDatabase, storage.ConfigStaticUsers, users, domain.Backend); err != nil {
		b.Fatal(err)
	}
	auth := service.NewAuthService(e, nil, &service.AuthConfig{Logger: logger.Discard()})
	srv := wsserver.New(nil, e, auth, wsserver.WithLogger(logger.Discard()))
	ts := httptest.NewServer(srv)
	b.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

// reportMemory reports heap usage after a GC.
func reportMemory(b *testing.B) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.HeapAlloc)/(1<<20), "heap-MB")
}
