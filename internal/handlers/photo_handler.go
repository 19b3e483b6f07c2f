package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tapin/server/internal/middleware"
	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/services"
)

// PhotoHandler handles photo upload, feed, and canvas endpoints
type PhotoHandler struct {
	postingService *services.PostingService
	storage        *services.PhotoStorageService
	maxUploadBytes int64
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(postingService *services.PostingService, storage *services.PhotoStorageService, maxUploadMB int64) *PhotoHandler {
	return &PhotoHandler{
		postingService: postingService,
		storage:        storage,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}
}

// readUpload pulls the photo file and optional text overlay out of a
// multipart upload.
func (h *PhotoHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, *models.TextOverlay, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1024)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, "", nil, false
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Photo file is required")
		return nil, "", nil, false
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read photo file")
		return nil, "", nil, false
	}

	var overlay *models.TextOverlay
	if raw := r.FormValue("overlay"); raw != "" {
		overlay = &models.TextOverlay{}
		if err := json.Unmarshal([]byte(raw), overlay); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid overlay")
			return nil, "", nil, false
		}
		if err := overlay.Validate(); err != nil {
			writeDomainError(w, err)
			return nil, "", nil, false
		}
	}

	return imageData, header.Filename, overlay, true
}

// PostToday posts the caller's daily photo to the group canvas
func (h *PhotoHandler) PostToday(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	imageData, filename, overlay, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	photo, err := h.postingService.PostToday(r.Context(), user.ID, chi.URLParam(r, "id"), imageData, filename, overlay)
	if err != nil && photo == nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, photo)
}

// PostBlitz posts the caller's photo into the group's blitz round
func (h *PhotoHandler) PostBlitz(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	imageData, filename, overlay, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	photo, round, err := h.postingService.PostBlitz(r.Context(), user.ID, chi.URLParam(r, "id"), imageData, filename, overlay)
	if err != nil && photo == nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"photo": photo,
		"round": models.RoundToResponse(round, time.Now()),
	})
}

// UpdatePosition moves a photo on its canvas
func (h *PhotoHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.PositionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.postingService.UpdatePosition(r.Context(), chi.URLParam(r, "id"), req.X, req.Y, req.ZIndex); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TodayFeed returns the group's today canvas
func (h *PhotoHandler) TodayFeed(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	feed, err := h.postingService.TodayFeed(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feed)
}

// Recap returns past cycle dates, and the photos for one date when
// the date query parameter is set
func (h *PhotoHandler) Recap(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	recap, err := h.postingService.Recap(r.Context(), user.ID, chi.URLParam(r, "id"), r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recap)
}

// ServeFile streams a stored photo or thumbnail from disk
func (h *PhotoHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	storedPath := chi.URLParam(r, "*")
	fullPath, err := h.storage.GetFullPath(storedPath)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !h.storage.Exists(storedPath) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	http.ServeFile(w, r, fullPath)
}
