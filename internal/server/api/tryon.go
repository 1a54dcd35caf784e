package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/ayusman/tryon/internal/adjust"
	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/store"
)

// TryOnHandler exposes the engine's inbound operations over HTTP.
type TryOnHandler struct {
	engine Engine
	loader AssetLoader
}

// NewTryOnHandler creates a new TryOnHandler.
func NewTryOnHandler(engine Engine, loader AssetLoader) *TryOnHandler {
	return &TryOnHandler{engine: engine, loader: loader}
}

type tryOnResponse struct {
	State      app.State         `json:"state"`
	Adjustment adjust.Adjustment `json:"adjustment"`
	Panel      adjust.PanelState `json:"panel"`
}

type selectJewelryRequest struct {
	ID string `json:"id"`
}

type activeRequest struct {
	Active *bool `json:"active"`
}

type resetRequest struct {
	Mode string `json:"mode"`
}

func (h *TryOnHandler) snapshot() tryOnResponse {
	return tryOnResponse{
		State:      h.engine.State(),
		Adjustment: h.engine.Adjustment(),
		Panel:      h.engine.Panel().State(),
	}
}

// Get handles GET /api/tryon.
func (h *TryOnHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

// SelectJewelry handles PUT /api/tryon/jewelry. The asset is fully decoded
// before the engine sees it.
func (h *TryOnHandler) SelectJewelry(w http.ResponseWriter, r *http.Request) {
	var req selectJewelryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Jewelry id is required")
		return
	}
	if h.loader == nil {
		writeError(w, http.StatusServiceUnavailable, "Jewelry catalog is not configured")
		return
	}

	asset, err := h.loader.Load(r.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Jewelry not found")
		case errors.Is(err, jewelry.ErrUnknownCategory), errors.Is(err, jewelry.ErrEmptyImage), errors.Is(err, jewelry.ErrImageTooLarge):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Printf("Error loading jewelry %s: %v", req.ID, err)
			writeError(w, http.StatusBadGateway, "Failed to load jewelry image")
		}
		return
	}

	h.engine.SetJewelry(asset)
	writeJSON(w, http.StatusOK, h.snapshot())
}

// ClearJewelry handles DELETE /api/tryon/jewelry.
func (h *TryOnHandler) ClearJewelry(w http.ResponseWriter, r *http.Request) {
	h.engine.SetJewelry(nil)
	writeJSON(w, http.StatusOK, h.snapshot())
}

// SetActive handles PUT /api/tryon/active.
func (h *TryOnHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "Field active is required")
		return
	}

	h.engine.SetActive(*req.Active)
	writeJSON(w, http.StatusOK, h.snapshot())
}

// PatchAdjustment handles PATCH /api/tryon/adjustment.
func (h *TryOnHandler) PatchAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjust.Partial
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.SetManualAdjustment(req))
}

// ResetAdjustment handles POST /api/tryon/adjustment/reset.
func (h *TryOnHandler) ResetAdjustment(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}

	mode, err := adjust.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.engine.ResetAdjustment(mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}
