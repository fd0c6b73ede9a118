package http

import (
	"encoding/json"
	"net/http"

	"tally/internal/core"
)

type partiesResponse struct {
	Parties []core.Party `json:"parties"`
}

func (s *Server) handleListParties(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	claims := claimsFrom(r.Context())
	parties, err := s.records.ListParties(claims.UserID, kind)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if parties == nil {
		parties = []core.Party{}
	}
	respondJSON(w, http.StatusOK, partiesResponse{Parties: parties})
}

func (s *Server) handleAddParty(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var p core.Party
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Normalize().Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	claims := claimsFrom(r.Context())
	// Duplicates are accepted and ignored, so re-submitting a form is safe.
	if err := s.records.AddParty(claims.UserID, kind, p); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p.Normalize())
}

func (s *Server) handleRemoveParty(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFrom(r)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	claims := claimsFrom(r.Context())
	if err := s.records.RemoveParty(claims.UserID, kind, r.PathValue("name")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
