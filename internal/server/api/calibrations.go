package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/store"
)

// CalibrationHandler reads and updates the per-category placement constants.
type CalibrationHandler struct {
	store  *store.Store
	engine Engine
}

// NewCalibrationHandler creates a new CalibrationHandler. Updates are applied
// to engine immediately when it is not nil.
func NewCalibrationHandler(s *store.Store, engine Engine) *CalibrationHandler {
	return &CalibrationHandler{store: s, engine: engine}
}

type calibrationRequest struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type calibrationResponse struct {
	Category  string  `json:"category"`
	Scale     float64 `json:"scale"`
	OffsetX   float64 `json:"offsetX"`
	OffsetY   float64 `json:"offsetY"`
	UpdatedAt string  `json:"updated_at"`
}

func toCalibrationResponse(c *store.Calibration) calibrationResponse {
	return calibrationResponse{
		Category:  string(c.Category),
		Scale:     c.Scale,
		OffsetX:   c.OffsetX,
		OffsetY:   c.OffsetY,
		UpdatedAt: c.UpdatedAt.Format(timeFormat),
	}
}

// List handles GET /api/calibrations.
func (h *CalibrationHandler) List(w http.ResponseWriter, r *http.Request) {
	calibrations, err := h.store.Calibrations().List()
	if err != nil {
		writeStoreError(w, err, "calibrations")
		return
	}

	out := make([]calibrationResponse, 0, len(calibrations))
	for _, c := range calibrations {
		out = append(out, toCalibrationResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"calibrations": out})
}

// Put handles PUT /api/calibrations/{category}.
func (h *CalibrationHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if !decode(w, r, &req) {
		return
	}

	c := &store.Calibration{
		Category: jewelry.Category(chi.URLParam(r, "category")),
		Scale:    req.Scale,
		OffsetX:  req.OffsetX,
		OffsetY:  req.OffsetY,
	}
	if err := h.store.Calibrations().Upsert(c); err != nil {
		writeStoreError(w, err, "Calibration")
		return
	}

	if h.engine != nil {
		if err := h.engine.Calibrate(c.Category, c.Scale, c.OffsetX, c.OffsetY); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, toCalibrationResponse(c))
}
