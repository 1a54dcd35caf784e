package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/store"
)

// JewelryHandler handles HTTP requests for catalog resources.
type JewelryHandler struct {
	store  *store.Store
	loader AssetLoader
}

// NewJewelryHandler creates a new JewelryHandler. loader may be nil; when set,
// cached assets are dropped after an update or delete.
func NewJewelryHandler(s *store.Store, loader AssetLoader) *JewelryHandler {
	return &JewelryHandler{store: s, loader: loader}
}

type jewelryRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
}

type jewelryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	ImageURL  string `json:"imageUrl"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listJewelryResponse struct {
	Jewelry []jewelryResponse `json:"jewelry"`
}

func toJewelryResponse(j *store.Jewelry) jewelryResponse {
	return jewelryResponse{
		ID:        j.ID,
		Name:      j.Name,
		Category:  string(j.Category),
		ImageURL:  j.ImageURL,
		CreatedAt: j.CreatedAt.Format(timeFormat),
		UpdatedAt: j.UpdatedAt.Format(timeFormat),
	}
}

// writeStoreError maps repository errors to HTTP responses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, jewelry.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrMissingImage), errors.Is(err, store.ErrInvalidScale):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Failed to access "+what)
	}
}

// List handles GET /api/jewelry. The optional category query narrows the list.
func (h *JewelryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Jewelry().List(jewelry.Category(r.URL.Query().Get("category")))
	if err != nil {
		writeStoreError(w, err, "jewelry")
		return
	}

	response := listJewelryResponse{
		Jewelry: make([]jewelryResponse, 0, len(items)),
	}
	for _, j := range items {
		response.Jewelry = append(response.Jewelry, toJewelryResponse(j))
	}

	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/jewelry/{id}.
func (h *JewelryHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Jewelry().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Jewelry")
		return
	}
	writeJSON(w, http.StatusOK, toJewelryResponse(j))
}

// Create handles POST /api/jewelry.
func (h *JewelryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req jewelryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	j := &store.Jewelry{
		Name:     req.Name,
		Category: jewelry.Category(req.Category),
		ImageURL: req.ImageURL,
	}
	if err := h.store.Jewelry().Create(j); err != nil {
		writeStoreError(w, err, "jewelry")
		return
	}

	writeJSON(w, http.StatusCreated, toJewelryResponse(j))
}

// Update handles PUT /api/jewelry/{id}.
func (h *JewelryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req jewelryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	existing, err := h.store.Jewelry().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Jewelry")
		return
	}

	existing.Name = req.Name
	existing.Category = jewelry.Category(req.Category)
	existing.ImageURL = req.ImageURL
	if err := h.store.Jewelry().Update(existing); err != nil {
		writeStoreError(w, err, "Jewelry")
		return
	}
	if h.loader != nil {
		h.loader.Invalidate(id)
	}

	writeJSON(w, http.StatusOK, toJewelryResponse(existing))
}

// Delete handles DELETE /api/jewelry/{id}.
func (h *JewelryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Jewelry().Delete(id); err != nil {
		writeStoreError(w, err, "Jewelry")
		return
	}
	if h.loader != nil {
		h.loader.Invalidate(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
