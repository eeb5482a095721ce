package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-registry/internal/matching"
)

// IdentitiesHandler handles identity management and stats.
type IdentitiesHandler struct {
	service   *matching.Service
	maxUpload int64
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(service *matching.Service, maxUpload int64) *IdentitiesHandler {
	return &IdentitiesHandler{service: service, maxUpload: maxUpload}
}

type updateIdentityRequest struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"` // optional; replaces the embedding
}

// parseID reads the {id} URL parameter.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List handles GET /api/v1/identities.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	res := h.service.List(r.Context())
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// Get handles GET /api/v1/identities/{id}.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}
	res := h.service.Get(r.Context(), id)
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// GetByName handles GET /api/v1/identities/by-name/{name}.
func (h *IdentitiesHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	res := h.service.FindByName(r.Context(), name)
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// Update handles PUT /api/v1/identities/{id}.
func (h *IdentitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	var req updateIdentityRequest
	if err := decodeJSON(w, r, h.maxUpload, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	update := matching.UpdateRequest{ID: id, DisplayName: req.DisplayName, Description: req.Description}
	if req.Image != "" {
		image, err := decodeImage(req.Image)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.Image = image
	}

	res := h.service.Update(r.Context(), update)
	if res.Success {
		log.Printf("Updated identity %d", id)
	}
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// Delete handles DELETE /api/v1/identities/{id}.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}
	res := h.service.Delete(r.Context(), id)
	if res.Success {
		log.Printf("Deleted identity %d", id)
	}
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// Stats handles GET /api/v1/stats.
func (h *IdentitiesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	res := h.service.Stats(r.Context())
	respondResult(w, res.Outcome, http.StatusOK, res)
}
