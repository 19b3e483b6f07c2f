package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tapin/server/internal/middleware"
	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/services"
)

// InviteHandler handles invite code and join request endpoints
type InviteHandler struct {
	groupService *services.GroupService
}

// NewInviteHandler creates a new InviteHandler
func NewInviteHandler(groupService *services.GroupService) *InviteHandler {
	return &InviteHandler{groupService: groupService}
}

// CreateInvite generates a join code for a group
func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	invite, err := h.groupService.CreateInvite(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.InviteResponse{
		Code:      invite.Code,
		GroupID:   invite.GroupID,
		CreatedAt: invite.CreatedAt,
	})
}

// Join records a join request against an invite code
func (h *InviteHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Invite code is required")
		return
	}

	joinReq, err := h.groupService.RequestJoin(r.Context(), user.ID, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.JoinResponse{
		GroupID: joinReq.GroupID,
		Status:  joinReq.Status,
	})
}

// ListJoinRequests returns pending join requests for a group (owner only)
func (h *InviteHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	requests, err := h.groupService.PendingJoins(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.JoinRequest{}
	}

	writeJSON(w, http.StatusOK, requests)
}

// RespondJoinRequest approves or declines a join request (owner only)
func (h *InviteHandler) RespondJoinRequest(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	joinReq, err := h.groupService.RespondToJoin(r.Context(), user.ID,
		chi.URLParam(r, "id"), chi.URLParam(r, "userId"), req.Approve)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.JoinResponse{
		GroupID: joinReq.GroupID,
		Status:  joinReq.Status,
	})
}
