package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tapin/server/internal/middleware"
	"github.com/tapin/server/internal/services"
)

// RoundHandler handles blitz round endpoints
type RoundHandler struct {
	postingService *services.PostingService
}

// NewRoundHandler creates a new RoundHandler
func NewRoundHandler(postingService *services.PostingService) *RoundHandler {
	return &RoundHandler{postingService: postingService}
}

// GetRound returns the group's current round
func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	round, err := h.postingService.CurrentRound(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, round)
}

// BlitzFeed returns the group's current round with its photos
func (h *RoundHandler) BlitzFeed(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	feed, err := h.postingService.BlitzFeed(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feed)
}

// EndRound ends the group's round ahead of its deadline (owner only)
func (h *RoundHandler) EndRound(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	round, err := h.postingService.EndRound(r.Context(), user.ID, chi.URLParam(r, "id"))
	if round == nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, round)
}

// LockRound freezes the group's round so nobody else can post (owner only)
func (h *RoundHandler) LockRound(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	round, err := h.postingService.LockRound(r.Context(), user.ID, chi.URLParam(r, "id"))
	if round == nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, round)
}
