package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"tally/internal/auth"
	"tally/internal/core"
)

// defaultParties is installed in a fresh account's directories so the entry
// form has something to autocomplete from day one.
var defaultParties = map[core.Kind][]core.Party{
	core.KindExpense: {{Name: "Fornitore generico"}},
	core.KindSale:    {{Name: "Cliente generico"}},
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		respondError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}

	user, err := s.authn.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.records.SeedParties(user.ID, defaultParties); err != nil {
		// Not fatal: the account exists, the directories just start empty.
		slog.ErrorContext(r.Context(), "Failed to seed party directories",
			"userId", user.ID, "error", err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "userId", user.ID, "email", user.Email)
	respondJSON(w, http.StatusCreated, sessionResponse{Token: token, UserID: user.ID, Email: user.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.authn.Authenticate(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{Token: token, UserID: user.ID, Email: user.Email})
}

// authenticate resolves the bearer token of a request.
func (s *Server) authenticate(r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, auth.ErrMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, auth.ErrMissingToken
	}
	return s.tokens.Validate(strings.TrimSpace(token))
}
