package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tapin/server/internal/middleware"
	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/repository"
)

// DeviceHandler handles device registration endpoints
type DeviceHandler struct {
	deviceRepo repository.DeviceRepo
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(deviceRepo repository.DeviceRepo) *DeviceHandler {
	return &DeviceHandler{
		deviceRepo: deviceRepo,
	}
}

// RegisterDevice registers a device for push notifications
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	device, err := models.NewDevice(user.ID, req.Platform, req.FCMToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.deviceRepo.Upsert(r.Context(), device); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	writeJSON(w, http.StatusCreated, device)
}
