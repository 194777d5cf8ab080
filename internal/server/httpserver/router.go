package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/aci-go/internal/server/httpserver/handler"
)

// RouterConfig holds the handlers mounted by NewRouter.
type RouterConfig struct {
	// WebSocket serves the client endpoint at WSPath.
	WebSocket http.Handler
	WSPath    string

	// Metrics serves MetricsPath. Nil disables the route.
	Metrics     http.Handler
	MetricsPath string

	Databases handler.DatabaseSource
	Sessions  handler.SessionSource

	// AdminAllowList guards /clients; see NetworkACLConfig.
	AdminAllowList []string

	Logger *slog.Logger
}

// NewRouter builds the top-level mux.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := handler.New(cfg.Databases, cfg.Sessions, log)
	mux := http.NewServeMux()

	base := []Middleware{Recover(log), RequestID()}
	logged := append(base[:len(base):len(base)], AccessLog(log))

	mux.Handle("GET /healthz", Chain(h, base...))
	mux.Handle("GET /readyz", Chain(h, base...))

	admin := append(logged[:len(logged):len(logged)], NetworkACL(&NetworkACLConfig{
		AllowList: cfg.AdminAllowList,
		Logger:    log,
	}))
	mux.Handle("GET /clients", Chain(h, admin...))

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, Chain(cfg.Metrics, base...))
	}

	if cfg.WebSocket != nil {
		mux.Handle("GET "+wsPattern(cfg.WSPath), Chain(cfg.WebSocket, base...))
	}
	return mux
}

// wsPattern returns the mux pattern for an exact-path websocket route.
// "/" alone would match every unregistered path.
func wsPattern(path string) string {
	switch path {
	case "", "/":
		return "/{$}"
	default:
		return path
	}
}
