package handler

import (
	"net/http"

	"github.com/brickchat/backend/internal/relay"
	"github.com/brickchat/backend/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store *store.Store
	relay *relay.Relay
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(st *store.Store, rel *relay.Relay) *HealthHandler {
	return &HealthHandler{store: st, relay: rel}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
//
// The relay is optional infrastructure, so its state is reported but never
// fails readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	relayStatus := "disabled"
	if h.relay != nil {
		relayStatus = "disconnected"
		if h.relay.IsConnected() {
			relayStatus = "connected"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"relay":  relayStatus,
	})
}
