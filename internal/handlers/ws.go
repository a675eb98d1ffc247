package handlers

import (
	"net/http"

	"valutahub/internal/auth"
	"valutahub/internal/websocket"
)

// WSUpdates upgrades the connection and streams rate refreshes plus the
// caller's balance changes. The token travels as a query parameter because
// browsers cannot set headers on websocket upgrades.
func (h *Handler) WSUpdates(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID, h.cfg.AllowedOrigins)
}
