package handler

import (
	"net/http"

	"github.com/yndnr/aci-go/internal/core/domain"
	"github.com/yndnr/aci-go/internal/infra/buildinfo"
	"github.com/yndnr/aci-go/internal/server/wsserver"
)

// handleHealth reports liveness. It succeeds while the process serves
// HTTP at all.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.health("healthy"))
}

// handleReady fails once shutdown has begun.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil && h.sessions.Closing() {
		h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrInternal.Code, "shutting down")
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.health("ready"))
}

func (h *Handler) health(status string) HealthResponse {
	resp := HealthResponse{Status: status, Version: buildinfo.Version}
	if h.databases != nil {
		resp.Databases = h.databases.Databases()
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Sessions()
	}
	return resp
}

// handleClients lists authenticated sessions.
func (h *Handler) handleClients(w http.ResponseWriter, r *http.Request) {
	resp := ClientsResponse{Clients: []wsserver.ClientRecord{}}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Sessions()
		if c := h.sessions.Clients(); c != nil {
			resp.Clients = c
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
