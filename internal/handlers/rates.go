package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, refreshedAt, err := h.service.Rate(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"))
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"from":       chi.URLParam(r, "from"),
		"to":         chi.URLParam(r, "to"),
		"rate":       rate,
		"updated_at": refreshedAt,
	})
}

func (h *Handler) RefreshRates(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.ForceRefreshRates(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pairs_updated": updated})
}

func (h *Handler) RateHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.ListRateHistory(r.Context(), h.cfg.RateHistoryListLimit)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": records})
}
