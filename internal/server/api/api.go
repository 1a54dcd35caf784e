// Package api provides the HTTP API handlers for the try-on server.
package api

import (
	"context"
	"encoding/json"
	"image"
	"net/http"

	"github.com/ayusman/tryon/internal/adjust"
	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/jewelry"
)

// Engine is the part of the try-on engine the API drives. *app.App implements it.
type Engine interface {
	State() app.State
	SetJewelry(asset *jewelry.Asset)
	SetActive(active bool)
	SetManualAdjustment(p adjust.Partial) adjust.Adjustment
	ResetAdjustment(mode adjust.Mode) (adjust.Adjustment, error)
	Adjustment() adjust.Adjustment
	Panel() *adjust.Panel
	Calibrate(category jewelry.Category, scale, offsetX, offsetY float64) error
	Surface() image.Image
	OnChange(fn func(app.State)) (cancel func())
}

// AssetLoader turns a jewelry id into a decoded asset. *jewelry.Loader implements it.
type AssetLoader interface {
	Load(ctx context.Context, id string) (*jewelry.Asset, error)
	Invalidate(id string)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode reads a JSON request body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
