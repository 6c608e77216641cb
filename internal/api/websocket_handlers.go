package api

import (
	"net/http"
)

// WebSocket endpoints

// HandleLabWebSocket handles WebSocket connections for lab collaboration
func (h *Handler) HandleLabWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleLabConnection(w, r)
}
