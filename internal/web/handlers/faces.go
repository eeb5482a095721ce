package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-registry/internal/matching"
)

// FacesHandler handles register, recognize and compare.
type FacesHandler struct {
	service   *matching.Service
	maxUpload int64
}

// NewFacesHandler creates a new faces handler. maxUpload bounds request bodies in bytes.
func NewFacesHandler(service *matching.Service, maxUpload int64) *FacesHandler {
	return &FacesHandler{service: service, maxUpload: maxUpload}
}

type registerRequest struct {
	Image       string `json:"image"` // base64, optionally as a data URL
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type recognizeRequest struct {
	Image     string   `json:"image"`
	Threshold *float64 `json:"threshold"`
}

type compareRequest struct {
	ImageA    string   `json:"image_a"`
	ImageB    string   `json:"image_b"`
	Threshold *float64 `json:"threshold"`
}

// Register handles POST /api/v1/faces/register with a JSON body.
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.maxUpload, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	image, err := decodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.register(w, r, matching.RegisterRequest{Image: image, DisplayName: req.DisplayName, Description: req.Description})
}

// RegisterFile handles POST /api/v1/faces/register-file with a multipart upload.
func (h *FacesHandler) RegisterFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.register(w, r, matching.RegisterRequest{
		Image:       image,
		DisplayName: r.FormValue("display_name"),
		Description: r.FormValue("description"),
	})
}

func (h *FacesHandler) register(w http.ResponseWriter, r *http.Request, req matching.RegisterRequest) {
	res := h.service.Register(r.Context(), req)
	if res.Success {
		log.Printf("Registered identity %d (%s)", res.IdentityID, sanitizeForLog(res.DisplayName))
	}
	respondResult(w, res.Outcome, http.StatusCreated, res)
}

// Recognize handles POST /api/v1/faces/recognize with a JSON body.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := decodeJSON(w, r, h.maxUpload, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	image, err := decodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.service.Recognize(r.Context(), matching.RecognizeRequest{Image: image, Threshold: req.Threshold})
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// RecognizeFile handles POST /api/v1/faces/recognize-file with a multipart upload.
func (h *FacesHandler) RecognizeFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	image, err := readFormFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	threshold, err := parseThresholdField(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.service.Recognize(r.Context(), matching.RecognizeRequest{Image: image, Threshold: threshold})
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// Compare handles POST /api/v1/faces/compare with a JSON body.
func (h *FacesHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, 2*h.maxUpload, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	imageA, err := decodeImage(req.ImageA)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image_a: "+err.Error())
		return
	}
	imageB, err := decodeImage(req.ImageB)
	if err != nil {
		respondError(w, http.StatusBadRequest, "image_b: "+err.Error())
		return
	}

	res := h.service.Compare(r.Context(), matching.CompareRequest{ImageA: imageA, ImageB: imageB, Threshold: req.Threshold})
	respondResult(w, res.Outcome, http.StatusOK, res)
}

// CompareFiles handles POST /api/v1/faces/compare-files with two multipart uploads.
func (h *FacesHandler) CompareFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUpload)
	if err := r.ParseMultipartForm(2 * h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	imageA, err := readFormFile(r, "file_a")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	imageB, err := readFormFile(r, "file_b")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	threshold, err := parseThresholdField(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.service.Compare(r.Context(), matching.CompareRequest{ImageA: imageA, ImageB: imageB, Threshold: threshold})
	respondResult(w, res.Outcome, http.StatusOK, res)
}
