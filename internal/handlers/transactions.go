package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"valutahub/internal/middleware"
)

type tradeRequest struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, true)
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, false)
}

func (h *Handler) trade(w http.ResponseWriter, r *http.Request, isBuy bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if isBuy {
		receipt, err := h.service.Buy(r.Context(), userID, req.Code, amount)
		if err != nil {
			respondCoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, receipt)
		return
	}
	receipt, err := h.service.Sell(r.Context(), userID, req.Code, amount)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}
