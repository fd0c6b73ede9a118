package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tally/internal/core"
)

type saveBatchRequest struct {
	Date  string           `json:"date"`
	Items []core.LineInput `json:"items"`
}

type saveBatchResponse struct {
	Saved []core.Record `json:"saved"`
	// FailedItems is present when part of the batch did not persist.
	FailedItems []int `json:"failedItems,omitempty"`
}

type listResponse struct {
	Records  []core.Record `json:"records"`
	Total    float64       `json:"total"`
	Degraded bool          `json:"degraded,omitempty"`
}

// kindFrom parses the {kind} path segment.
func kindFrom(r *http.Request) (core.Kind, error) {
	return core.ParseKind(r.PathValue("kind"))
}

func (s *Server) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) handleSaveBatch(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var req saveBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	claims := claimsFrom(r.Context())
	res, err := s.records.SaveBatch(ctx, claims.UserID, kind, req.Items, req.Date)
	if err != nil {
		var werr *core.StoreWriteError
		if errors.As(err, &werr) {
			// Partial failure: report what made it and what did not.
			respondJSON(w, http.StatusBadGateway, saveBatchResponse{
				Saved:       res.Saved,
				FailedItems: werr.FailedItems,
			})
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, saveBatchResponse{Saved: res.Saved})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	window, err := core.ParseWindow(q.Get("window"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := core.Filter{
		Window: window,
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
		Query:  q.Get("q"),
	}
	if filter.Window == core.WindowRange && (filter.From == "" || filter.To == "") {
		respondError(w, http.StatusBadRequest, "custom window requires from and to dates")
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	claims := claimsFrom(r.Context())
	res, err := s.records.List(ctx, claims.UserID, kind, filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if res.Records == nil {
		res.Records = []core.Record{}
	}
	respondJSON(w, http.StatusOK, listResponse{
		Records:  res.Records,
		Total:    res.Total,
		Degraded: res.Degraded,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	claims := claimsFrom(r.Context())
	rec, err := s.records.Get(ctx, claims.UserID, kind, r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	claims := claimsFrom(r.Context())
	if err := s.records.Delete(ctx, claims.UserID, kind, r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	ctx, cancel := s.opContext(r)
	defer cancel()

	claims := claimsFrom(r.Context())
	if err := s.records.ClearAll(ctx, claims.UserID, kind); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
