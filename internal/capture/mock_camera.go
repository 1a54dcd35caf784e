package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing.
//
// Every frame position carries its own timestamp, so a frame that is read
// again without advancing reports the same timestamp.
type MockCamera struct {
	frames   []*gocv.Mat
	index    int
	seq      int64
	loop     bool
	holdLast bool
	manual   bool
	fps      int
	opens    int
	openErr  error
	readErr  error
	openGate chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewMockCamera creates a mock that plays frames once, or forever when loop is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

// HoldLast keeps returning the final frame once playback reaches the end.
func (c *MockCamera) HoldLast() *MockCamera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdLast = true
	return c
}

// Manual stops ReadFrame from advancing; call Advance to move to the next frame.
func (c *MockCamera) Manual() *MockCamera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manual = true
	return c
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	gate := c.openGate
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opens++
	if c.openErr != nil {
		return c.openErr
	}
	if c.running {
		return nil
	}
	c.running = true
	c.index = 0
	c.seq++
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.readErr != nil {
		return nil, c.readErr
	}
	if len(c.frames) == 0 {
		return nil, errors.New("no frames available")
	}
	if c.index >= len(c.frames) {
		return nil, errors.New("no more frames")
	}

	// Clone the frame so the original isn't modified
	frame := &Frame{Mat: c.frames[c.index].Clone(), Timestamp: c.seq}

	if !c.manual {
		c.step()
	}

	return frame, nil
}

// step moves playback to the next frame position.
func (c *MockCamera) step() {
	switch {
	case c.index+1 < len(c.frames):
		c.index++
		c.seq++
	case c.loop:
		c.index = 0
		c.seq++
	case c.holdLast:
	default:
		c.index = len(c.frames)
		c.seq++
	}
}

// Advance moves a manual camera to its next frame.
func (c *MockCamera) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step()
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetOpenError makes subsequent Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// SetReadError makes subsequent ReadFrame calls fail with err.
func (c *MockCamera) SetReadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// BlockOpen makes Open wait until the returned function is called.
func (c *MockCamera) BlockOpen() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.openGate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.openGate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Opens returns how many times Open has been called.
func (c *MockCamera) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
	c.seq++
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
	c.seq++
}
