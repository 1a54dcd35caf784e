package capture

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DefaultMaxReadFailures is how many consecutive failed reads end a session.
const DefaultMaxReadFailures = 30

// ErrSessionStopped is returned by Start when Stop was called while the camera was opening.
var ErrSessionStopped = errors.New("capture session stopped")

// SessionConfig holds configuration for a capture session.
type SessionConfig struct {
	// OnFailure is called from the reader goroutine when the camera stops
	// delivering frames. The session has already stopped when it runs.
	OnFailure func(err error)

	// MaxReadFailures overrides DefaultMaxReadFailures.
	MaxReadFailures int
}

// Session owns an open camera and keeps the most recent frame it produced.
type Session struct {
	camera      Camera
	onFailure   func(err error)
	maxFailures int

	mu       sync.Mutex
	gen      uint64
	running  bool
	starting bool
	latest   *Frame
	stop     chan struct{}
	done     chan struct{}
	settled  chan struct{}
}

// NewSession creates a session for camera. The camera is not opened until Start.
func NewSession(camera Camera, config SessionConfig) *Session {
	if config.MaxReadFailures <= 0 {
		config.MaxReadFailures = DefaultMaxReadFailures
	}
	return &Session{
		camera:      camera,
		onFailure:   config.OnFailure,
		maxFailures: config.MaxReadFailures,
	}
}

// Start opens the camera and begins reading frames. It blocks until the
// camera is open. If ctx is cancelled or Stop is called first, Start returns
// an error and a camera that opens late is closed straight away.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || s.starting {
		s.mu.Unlock()
		return nil
	}
	prev := s.settled
	s.mu.Unlock()

	// Wait for an abandoned open from an earlier Start to finish.
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	if s.running || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.starting = true
	settled := make(chan struct{})
	s.settled = settled
	s.mu.Unlock()

	opened := make(chan error, 1)
	go func() {
		opened <- s.camera.Open()
	}()

	var err error
	select {
	case err = <-opened:
	case <-ctx.Done():
		go func() {
			if err := <-opened; err == nil {
				s.closeCamera()
			}
			close(settled)
		}()
		s.mu.Lock()
		if s.gen == gen {
			s.starting = false
		}
		s.mu.Unlock()
		return ctx.Err()
	}
	close(settled)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if err == nil {
			s.closeCamera()
		}
		return ErrSessionStopped
	}
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		return classifyOpenError(err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.running = true
	s.stop = stop
	s.done = done
	s.mu.Unlock()

	go s.readLoop(stop, done)

	return nil
}

// Stop ends the session and releases the camera. It waits for the reader
// goroutine to exit and is safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	s.gen++
	s.starting = false
	wasRunning := s.running
	stop, done := s.stop, s.done
	s.running = false
	s.stop = nil
	s.done = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	if wasRunning {
		s.closeCamera()
	}
	s.releaseLatest()
}

func (s *Session) readLoop(stop, done chan struct{}) {
	defer close(done)

	fps := s.camera.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	failures := 0
	for {
		frame, err := s.camera.ReadFrame()
		if err != nil {
			failures++
			if failures >= s.maxFailures {
				s.fail(stop, err)
				return
			}
		} else {
			failures = 0
			if !s.publish(stop, frame) {
				return
			}
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// publish installs frame as the latest one and releases the previous frame.
func (s *Session) publish(stop chan struct{}, frame *Frame) bool {
	s.mu.Lock()
	if s.stop != stop {
		s.mu.Unlock()
		frame.Close()
		return false
	}
	old := s.latest
	s.latest = frame
	s.mu.Unlock()

	old.Close()
	return true
}

// fail tears the session down after the camera stopped delivering frames.
func (s *Session) fail(stop chan struct{}, cause error) {
	s.mu.Lock()
	if s.stop != stop {
		// Stop is already tearing the session down.
		s.mu.Unlock()
		return
	}
	s.gen++
	s.running = false
	s.stop = nil
	s.done = nil
	s.mu.Unlock()

	s.closeCamera()
	s.releaseLatest()

	err := &CameraError{Kind: ErrHardware, Err: cause}
	log.Printf("Capture session failed: %v", err)
	if s.onFailure != nil {
		s.onFailure(err)
	}
}

func (s *Session) closeCamera() {
	if err := s.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
}

func (s *Session) releaseLatest() {
	s.mu.Lock()
	latest := s.latest
	s.latest = nil
	s.mu.Unlock()

	latest.Close()
}

// Running reports whether the camera is open and the reader is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ready reports whether the session has produced at least one frame.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.latest != nil
}

// LatestTimestamp returns the timestamp of the newest frame, or 0 if there is none.
func (s *Session) LatestTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return 0
	}
	return s.latest.Timestamp
}

// Snapshot returns a copy of the newest frame if its timestamp differs from
// since. The caller owns the returned frame.
func (s *Session) Snapshot(since int64) (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil || s.latest.Timestamp == since {
		return nil, false
	}
	return s.latest.Clone(), true
}
