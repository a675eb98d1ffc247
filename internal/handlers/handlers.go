package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"valutahub/internal/errs"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondCoreError maps an error kind to an HTTP status and keeps the
// structured payload the caller needs.
func respondCoreError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	switch kind {
	case errs.KindValidation:
		respondError(w, http.StatusBadRequest, err.Error())
	case errs.KindCurrencyNotFound, errs.KindWalletNotFound, errs.KindUserNotFound:
		respondError(w, http.StatusNotFound, err.Error())
	case errs.KindInsufficientFunds:
		var e *errs.Error
		if errors.As(err, &e) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":     err.Error(),
				"kind":      kind.String(),
				"available": e.Available.String(),
				"required":  e.Required.String(),
				"currency":  e.Code,
			})
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errs.KindRateUnavailable, errs.KindAllSourcesUnavailable, errs.KindSourceUnavailable:
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errs.KindUserExists:
		respondError(w, http.StatusConflict, err.Error())
	case errs.KindInvalidCredentials:
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
