package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/core/service"
	"github.com/yndnr/aci-go/internal/server/httpserver"
	"github.com/yndnr/aci-go/internal/server/wsserver"
	"github.com/yndnr/aci-go/internal/storage"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
	"github.com/yndnr/aci-go/pkg/idtoken"
	"github.com/yndnr/aci-go/pkg/token"
)

type harness struct {
	url     string
	engine  *storage.Engine
	ws      *wsserver.Server
	cfgPath string
}

func startHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	cfg := storage.DefaultConfig(t.TempDir())
	cfg.Logger = logger.Discard()
	engine, err := storage.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, db := range []string{storage.ConfigDatabase, "main"} {
		if err := engine.CreateDatabase(ctx, db); err != nil {
			t.Fatal(err)
		}
	}
	users := map[string]any{"svc": map[string]any{"tokens": []any{"s3cret"}}}
	if _, err := engine.Set(ctx, storage.ConfigDatabase, storage.ConfigStaticUsers, users, domain.Backend); err != nil {
		t.Fatal(err)
	}

	auth := service.NewAuthService(engine, nil, &service.AuthConfig{Logger: logger.Discard()})
	ws := wsserver.New(nil, engine, auth, wsserver.WithLogger(logger.Discard()))
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		WebSocket: ws,
		WSPath:    "/",
		Databases: engine,
		Sessions:  ws,
		Logger:    logger.Discard(),
	})
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ws.Shutdown(ctx)
		ts.Close()
	})
	return &harness{
		url:     ts.URL,
		engine:  engine,
		ws:      ws,
		cfgPath: filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes the CLI with the harness config file and returns stdout.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	argv := append([]string{"aci-cli", "--config", h.cfgPath, "--timeout", "5s"}, args...)
	err := app.RunContext(ctx, argv)
	return out.String(), err
}

// authed runs a command against the harness as the static user svc.
func (h *harness) authed(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, append([]string{"-s", h.url, "--id", "svc", "--token", "s3cret"}, args...)...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func TestSetAndGet(t *testing.T) {
	h := startHarness(t)

	out := h.authed(t, "set", "main", "greeting", "hello")
	if strings.TrimSpace(out) != "main[greeting] = hello" {
		t.Errorf("set output = %q", out)
	}
	if got := decodeJSON[string](t, h.authed(t, "-o", "json", "get", "main", "greeting")); got != "hello" {
		t.Errorf("get = %q", got)
	}

	h.authed(t, "set", "main", "conf", `{"a":1}`)
	got := decodeJSON[map[string]any](t, h.authed(t, "-o", "json", "get", "main", "conf"))
	if !reflect.DeepEqual(got, map[string]any{"a": float64(1)}) {
		t.Errorf("get conf = %v", got)
	}

	h.authed(t, "set", "--string", "main", "raw", "42")
	if got := decodeJSON[string](t, h.authed(t, "-o", "json", "get", "main", "raw")); got != "42" {
		t.Errorf("--string value = %q", got)
	}
}

func TestLists(t *testing.T) {
	h := startHarness(t)

	h.authed(t, "set", "main", "nums", "[1,2,3]")
	h.authed(t, "append", "main", "nums", "4", "5")
	if got := strings.TrimSpace(h.authed(t, "len", "main", "nums")); got != "5" {
		t.Errorf("len = %q", got)
	}

	recent := decodeJSON[[]float64](t, h.authed(t, "-o", "json", "recent", "main", "nums", "2"))
	if !reflect.DeepEqual(recent, []float64{4, 5}) {
		t.Errorf("recent = %v", recent)
	}

	h.authed(t, "set-index", "main", "nums", "0=10", "2=30")
	idx := decodeJSON[map[string]float64](t, h.authed(t, "-o", "json", "get-index", "main", "nums", "0", "1", "2"))
	if !reflect.DeepEqual(idx, map[string]float64{"0": 10, "1": 2, "2": 30}) {
		t.Errorf("get-index = %v", idx)
	}

	_, err := h.run(t, "-s", h.url, "--id", "svc", "--token", "s3cret", "get-index", "main", "nums", "99")
	if !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
	if _, err := h.run(t, "-s", h.url, "set-index", "main", "nums", "zero=1"); err == nil {
		t.Error("bad assignment accepted")
	}
}

func TestListKeysAndCreateDB(t *testing.T) {
	h := startHarness(t)

	h.authed(t, "set", "main", "b", "1")
	h.authed(t, "set", "main", "a", "2")
	keys := decodeJSON[[]string](t, h.authed(t, "-o", "json", "list-keys", "main"))
	slices.Sort(keys)
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("keys = %v", keys)
	}

	out := h.authed(t, "create-db", "extra")
	if !strings.Contains(out, "created extra") {
		t.Errorf("create-db output = %q", out)
	}
	if !slices.Contains(h.engine.Databases(), "extra") {
		t.Errorf("databases = %v", h.engine.Databases())
	}

	h.authed(t, "write")
	h.authed(t, "write", "main")
	manifest := filepath.Join(h.engine.Root(), "databases", "main", "main.database")
	if _, err := os.Stat(manifest); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestErrors(t *testing.T) {
	h := startHarness(t)
	h.authed(t, "set", "main", "secret", "x")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown db", []string{"--id", "svc", "--token", "s3cret", "get", "nope", "k"}, domain.ErrDatabaseNotFound},
		{"missing key", []string{"--id", "svc", "--token", "s3cret", "get", "main", "nope"}, domain.ErrItemNotFound},
		{"anonymous read", []string{"get", "main", "secret"}, domain.ErrAccessDenied},
		{"wrong token", []string{"--id", "svc", "--token", "bad", "get", "main", "secret"}, domain.ErrStaticTokenIncorrect},
		{"unknown user", []string{"--id", "who", "--token", "x", "get", "main", "secret"}, domain.ErrStaticUserNotFound},
		{"existing db", []string{"--id", "svc", "--token", "s3cret", "create-db", "main"}, domain.ErrDatabaseExists},
		{"read unknown db", []string{"--id", "svc", "--token", "s3cret", "read", "nope"}, domain.ErrDatabaseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(t, append([]string{"-s", h.url}, tt.args...)...)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := h.run(t, "-s", h.url, "get", "main"); err == nil {
		t.Error("missing argument accepted")
	}
	if _, err := h.run(t, "-s", h.url, "-o", "xml", "version"); err == nil {
		t.Error("unknown output format accepted")
	}
}

func TestEvents(t *testing.T) {
	h := startHarness(t)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := h.run(t, "-s", h.url, "--id", "svc", "--token", "s3cret", "-o", "json",
			"event", "listen", "--count", "1", "ping")
		done <- result{out, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(h.ws.Clients()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener never authenticated")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.authed(t, "event", "send", "svc", "ping", `{"n":1}`)

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("listen: %v", r.err)
		}
		ev := decodeJSON[eventRecord](t, r.out)
		if ev.ID != "ping" || ev.Origin != "svc" {
			t.Errorf("event = %+v", ev)
		}
		if !reflect.DeepEqual(ev.Payload, map[string]any{"n": float64(1)}) {
			t.Errorf("payload = %#v", ev.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestHealthAndClients(t *testing.T) {
	h := startHarness(t)

	out, err := h.run(t, "-s", h.url, "-o", "json", "health")
	if err != nil {
		t.Fatal(err)
	}
	health := decodeJSON[map[string]any](t, out)
	if health["status"] != "healthy" {
		t.Errorf("health = %v", health)
	}

	out, err = h.run(t, "-s", h.url, "-o", "json", "clients")
	if err != nil {
		t.Fatal(err)
	}
	if clients := decodeJSON[[]wsserver.ClientRecord](t, out); len(clients) != 0 {
		t.Errorf("clients = %v", clients)
	}
}

func TestTokenCommands(t *testing.T) {
	h := startHarness(t)

	out, err := h.run(t, "-o", "json", "token", "generate", "--hash", "sha256")
	if err != nil {
		t.Fatal(err)
	}
	gen := decodeJSON[generatedToken](t, out)
	if !strings.HasPrefix(gen.Token, token.Prefix) {
		t.Errorf("token = %q", gen.Token)
	}
	if !token.Match(gen.Token, gen.Hash) {
		t.Errorf("hash %q does not match token", gen.Hash)
	}

	out, err = h.run(t, "-o", "json", "token", "hash", "--algo", "argon2", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if hash := decodeJSON[string](t, out); !token.Match("s3cret", hash) {
		t.Errorf("argon2 hash %q does not match", hash)
	}

	if _, err := h.run(t, "token", "hash", "--algo", "md5", "x"); err == nil {
		t.Error("md5 accepted")
	}
	if _, err := h.run(t, "token", "generate", "--length", "4"); err == nil {
		t.Error("short token accepted")
	}
}

func TestIDTokenCommands(t *testing.T) {
	h := startHarness(t)

	out, err := h.run(t, "-o", "json", "idtoken", "keygen")
	if err != nil {
		t.Fatal(err)
	}
	keys := decodeJSON[keyPair](t, out)

	out, err = h.run(t, "-o", "json", "idtoken", "mint",
		"--key", keys.PrivateKey,
		"--subject", "123",
		"--email", "ann@example.com",
		"--issuer", "https://idp.example.com",
		"--org", "example.com",
		"--ttl", "10m")
	if err != nil {
		t.Fatal(err)
	}
	tok := decodeJSON[string](t, out)

	pub, err := idtoken.ParsePublicKey(keys.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := idtoken.Verify(pub, tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Principal() != "ann@example.com" || claims.Organization != "example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ExpiresAt-claims.IssuedAt != 600 {
		t.Errorf("lifetime = %d", claims.ExpiresAt-claims.IssuedAt)
	}
}

func TestProfiles(t *testing.T) {
	h := startHarness(t)

	if _, err := h.run(t, "config", "set-profile", "--server", h.url, "--id", "svc", "--token", "s3cret", "--use", "dev"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.run(t, "config", "set-profile", "--server", h.url, "anon"); err != nil {
		t.Fatal(err)
	}

	// The current profile supplies server and credentials.
	if _, err := h.run(t, "set", "main", "k", "v"); err != nil {
		t.Fatalf("set with profile: %v", err)
	}
	if _, err := h.run(t, "-p", "anon", "get", "main", "k"); !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("anon profile err = %v", err)
	}

	out, err := h.run(t, "-o", "json", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	rows := decodeJSON[[]profileRow](t, out)
	if len(rows) != 2 || rows[0].Name != "anon" || rows[1].Name != "dev" {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[1].Current || rows[1].Token != "***" {
		t.Errorf("dev row = %+v", rows[1])
	}

	if _, err := h.run(t, "config", "use", "anon"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.run(t, "config", "use", "ghost"); err == nil {
		t.Error("use of missing profile accepted")
	}
	if _, err := h.run(t, "config", "delete-profile", "anon"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.run(t, "-p", "anon", "version"); err == nil {
		t.Error("deleted profile still usable")
	}
}

func TestVerifyServer(t *testing.T) {
	h := startHarness(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := h.run(t, "config", "verify-server", good)
	if err != nil || !strings.Contains(out, "OK") {
		t.Errorf("good config: %q, %v", out, err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := h.run(t, "config", "verify-server", bad); err == nil {
		t.Error("bad config accepted")
	}
}

func TestVersion(t *testing.T) {
	h := startHarness(t)
	out, err := h.run(t, "-o", "json", "version")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decodeJSON[map[string]any](t, out)["version"]; !ok {
		t.Errorf("version output = %q", out)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		literal bool
		want    any
	}{
		{"1", false, float64(1)},
		{"true", false, true},
		{`"q"`, false, "q"},
		{"plain", false, "plain"},
		{"[1]", false, []any{float64(1)}},
		{"1", true, "1"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in, tt.literal); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q, %v) = %#v", tt.in, tt.literal, got)
		}
	}
}
