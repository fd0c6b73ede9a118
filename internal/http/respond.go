package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tally/internal/auth"
	"tally/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
	// Missing lists every absent required field of a rejected save.
	Missing []string `json:"missing,omitempty"`
	// FailedItems lists the batch indexes that did not persist.
	FailedItems []int `json:"failedItems,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// respondServiceError maps domain errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   verr.Error(),
			Missing: verr.Missing,
		})
		return
	}

	var werr *core.StoreWriteError
	if errors.As(err, &werr) {
		respondJSON(w, http.StatusBadGateway, errorBody{
			Error:       "record store write failed",
			FailedItems: werr.FailedItems,
		})
		return
	}

	var rerr *core.StoreReadError
	if errors.As(err, &rerr) {
		respondError(w, http.StatusBadGateway, "record store unavailable")
		return
	}

	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, core.ErrAuthRequired), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		respondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrWeakPassword):
		respondError(w, http.StatusUnprocessableEntity, auth.ErrWeakPassword.Error())
	case errors.Is(err, auth.ErrEmailExists):
		respondError(w, http.StatusConflict, auth.ErrEmailExists.Error())
	default:
		slog.Error("Unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
