package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrClosed is returned by Detect after the detector has been closed.
var ErrClosed = errors.New("detector is closed")

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Class returns the landmark model this detector runs.
	Class() Class

	// Detect analyzes a video frame and returns detected landmarks.
	// Returns an empty result if nothing is detected.
	Detect(frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// PythonPath is the interpreter used to run the MediaPipe service.
	// Empty means a virtualenv interpreter is searched for, then python3.
	PythonPath string

	// ScriptPath overrides the location of mediapipe_service.py.
	ScriptPath string

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
