package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yndnr/aci-go/internal/server/wsserver"
	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

// DatabaseSource lists loaded databases. storage.Engine implements it.
type DatabaseSource interface {
	Databases() []string
}

// SessionSource reports connected sessions. wsserver.Server implements it.
type SessionSource interface {
	Sessions() int
	Clients() []wsserver.ClientRecord
	Closing() bool
}

// Handler serves the plain HTTP endpoints.
type Handler struct {
	databases DatabaseSource
	sessions  SessionSource
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New creates a Handler. Either source may be nil.
func New(databases DatabaseSource, sessions SessionSource, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		databases: databases,
		sessions:  sessions,
		logger:    log,
		mux:       http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)
	h.mux.HandleFunc("GET /clients", h.handleClients)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(logger.RequestIDFromContext(r.Context()), data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message))
}
