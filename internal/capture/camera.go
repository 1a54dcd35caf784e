// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrPermissionDenied means the user or the OS refused access to the camera.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrHardware means the device is missing, busy or stopped delivering frames.
	ErrHardware = errors.New("camera hardware failure")
)

// CameraError classifies a camera failure as ErrPermissionDenied or ErrHardware.
type CameraError struct {
	Kind error
	Err  error
}

func (e *CameraError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Is matches the error's kind as well as the wrapped cause.
func (e *CameraError) Is(target error) bool {
	return target == e.Kind
}

func (e *CameraError) Unwrap() error {
	return e.Err
}

// classifyOpenError maps a device open failure onto the camera error kinds.
func classifyOpenError(err error) error {
	var camErr *CameraError
	if errors.As(err, &camErr) {
		return err
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized") || strings.Contains(msg, "denied") {
		return &CameraError{Kind: ErrPermissionDenied, Err: err}
	}
	return &CameraError{Kind: ErrHardware, Err: err}
}

// Frame is a captured video frame. The Mat is owned by whoever holds the Frame.
type Frame struct {
	Mat       gocv.Mat
	Timestamp int64
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Mat.Cols()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Mat.Rows()
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{Mat: f.Mat.Clone(), Timestamp: f.Timestamp}
}

// Close releases the frame's pixel buffer.
func (f *Frame) Close() error {
	if f == nil {
		return nil
	}
	return f.Mat.Close()
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// Open opens the camera for capturing frames.
// It requests 640x480, the resolution the overlay is tuned for.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return classifyOpenError(err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return &CameraError{Kind: ErrHardware, Err: fmt.Errorf("device %d did not open", c.deviceID)}
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Frame.
func (c *cameraImpl) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &Frame{Mat: mat, Timestamp: time.Now().UnixNano()}, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
