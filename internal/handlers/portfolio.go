package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"valutahub/internal/middleware"
)

func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	base := r.URL.Query().Get("base")
	if base == "" {
		base = h.cfg.BaseCurrency
	}
	breakdown, total, err := h.service.PortfolioValue(r.Context(), userID, base)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"base":    base,
		"wallets": breakdown,
		"total":   total,
	})
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.service.WalletBalance(r.Context(), userID, chi.URLParam(r, "code"))
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}
