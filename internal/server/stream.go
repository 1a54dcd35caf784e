package server

import (
	"fmt"
	"image"
	"log"
	"net/http"
	"time"

	"gocv.io/x/gocv"
)

// DefaultStreamInterval paces the MJPEG stream at about 15 FPS.
const DefaultStreamInterval = 66 * time.Millisecond

// SurfaceSource provides the most recently rendered frame.
type SurfaceSource interface {
	Surface() image.Image
}

// StreamHandler serves the rendered try-on surface as MJPEG.
type StreamHandler struct {
	source   SurfaceSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler polling source every interval.
func NewStreamHandler(source SurfaceSource, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &StreamHandler{source: source, interval: interval}
}

// ServeHTTP streams MJPEG frames to connected clients. A frame is only sent
// when the engine has published a new surface.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last image.Image
	for {
		if surface := h.source.Surface(); surface != nil && surface != last {
			last = surface
			if err := writeJPEGPart(w, surface); err != nil {
				log.Printf("Error streaming frame: %v", err)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// writeJPEGPart encodes img and writes it as one multipart section.
func writeJPEGPart(w http.ResponseWriter, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert surface: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return fmt.Errorf("encode surface: %w", err)
	}
	defer buf.Close()

	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
	if _, err := w.Write(buf.GetBytes()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\r\n")
	return err
}
