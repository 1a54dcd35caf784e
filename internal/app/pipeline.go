package app

import (
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/overlay"
)

// tick renders one frame. It does nothing unless cycle is the current loop
// generation and a frame newer than the last rendered one is available.
//
// Frame pipeline:
// 1. Snapshot the newest camera frame
// 2. Detect landmarks on that frame
// 3. Mirror the frame into a fresh surface
// 4. Place and draw the jewelry if the landmarks were found
// 5. Publish the surface and status, unless the loop was stopped meanwhile
func (a *App) tick(cycle uint64) {
	a.mu.Lock()
	if a.closed || cycle != a.cycle || a.state.Phase != Tracking {
		a.mu.Unlock()
		return
	}
	session := a.session
	asset := a.asset
	anchors := a.anchors
	since := a.lastFrame
	a.mu.Unlock()

	if session == nil || asset == nil {
		return
	}

	det := a.models.Detector()
	if det == nil || det.Class() != asset.Category.ModelClass() {
		return
	}

	frame, ok := session.Snapshot(since)
	if !ok {
		return
	}
	defer frame.Close()

	result, err := det.Detect(&frame.Mat)
	if err != nil {
		log.Printf("Error detecting landmarks: %v", err)
		result = nil
	}

	surface, err := mirror(frame)
	if err != nil {
		log.Printf("Error rendering frame: %v", err)
		return
	}

	placements, found := anchors.Place(overlay.Input{
		Category:   asset.Category,
		Result:     result,
		Width:      surface.Bounds().Dx(),
		Height:     surface.Bounds().Dy(),
		AssetWidth: asset.Width,
		Adjustment: a.adjust.Get(),
	})

	status := trackingStatus(det.Class())
	if found {
		overlay.ComposeAll(surface, asset.Image, placements)
	} else {
		status = anchors.Guidance(asset.Category)
	}

	a.mu.Lock()
	if a.closed || cycle != a.cycle {
		a.mu.Unlock()
		return
	}
	a.lastFrame = frame.Timestamp
	a.surface = surface
	a.frames++
	if a.state.Status != status {
		a.state.Status = status
		a.publishLocked()
	}
	a.mu.Unlock()
}

// mirror returns a horizontally flipped RGBA copy of the frame.
func mirror(frame *capture.Frame) (*image.RGBA, error) {
	flipped := gocv.NewMat()
	defer flipped.Close()

	gocv.Flip(frame.Mat, &flipped, 1)

	img, err := flipped.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}
