// Package models manages the lifecycle of the landmark detection models.
//
// At most one model is active at a time. Switching between a face category
// and a hand category unloads the current model before the next one starts,
// and a load that is overtaken by a newer request releases whatever it
// produced instead of installing it.
package models

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
)

var (
	// ErrSuperseded is delivered to callers whose load was replaced by a newer one.
	ErrSuperseded = errors.New("model load superseded")

	// ErrClosed is delivered to pending callers when the manager is closed.
	ErrClosed = errors.New("model manager closed")

	// ErrCanceled is delivered to pending callers when their load is canceled.
	ErrCanceled = errors.New("model load canceled")
)

// Status is the lifecycle state of the active model.
type Status int

const (
	Unloaded Status = iota
	Loading
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State describes the model the manager holds or is working towards.
type State struct {
	Class  detector.Class
	Status Status
	Err    error
}

// LoadError reports a model that failed to load.
type LoadError struct {
	Class detector.Class
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s model: %v", e.Class, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Factory creates a ready-to-use detector for a model class. It may block
// until the model is loaded and must honour ctx cancellation.
type Factory func(ctx context.Context, class detector.Class) (detector.Detector, error)

// Manager owns the single active detection model.
type Manager struct {
	factory Factory

	mu         sync.Mutex
	state      State
	active     detector.Detector
	generation uint64
	waiters    []chan error
	cancel     context.CancelFunc
	loads      int
}

// NewManager creates a manager that builds detectors with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// Load requests the model for category and returns a channel that receives
// exactly one value once the request settles: nil when the model is ready,
// a *LoadError when it failed, or ErrSuperseded/ErrClosed/ctx.Err() when the
// request was abandoned.
func (m *Manager) Load(ctx context.Context, category jewelry.Category) <-chan error {
	done := make(chan error, 1)

	if !category.Valid() {
		done <- fmt.Errorf("%w: %q", jewelry.ErrUnknownCategory, category)
		return done
	}
	class := category.ModelClass()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Class == class {
		switch m.state.Status {
		case Ready:
			done <- nil
			return done
		case Loading:
			m.waiters = append(m.waiters, done)
			return done
		}
	}

	m.abandonLocked(ErrSuperseded)

	old := m.active
	m.active = nil
	m.generation++
	m.loads++
	m.state = State{Class: class, Status: Loading}
	m.waiters = []chan error{done}

	loadCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go m.run(loadCtx, cancel, m.generation, class, old)

	return done
}

// Select loads the model for category and waits for the outcome.
func (m *Manager) Select(ctx context.Context, category jewelry.Category) error {
	select {
	case err := <-m.Load(ctx, category):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, gen uint64, class detector.Class, old detector.Detector) {
	defer cancel()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("Error closing %s model: %v", old.Class(), err)
		}
	}

	det, err := m.factory(ctx, class)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		if det != nil {
			if err := det.Close(); err != nil {
				log.Printf("Error closing stale %s model: %v", class, err)
			}
		}
		return
	}

	waiters := m.waiters
	m.waiters = nil
	m.cancel = nil

	var result error
	switch {
	case err == nil && det != nil:
		m.active = det
		m.state = State{Class: class, Status: Ready}
	case ctx.Err() != nil:
		m.state = State{}
		result = ctx.Err()
	default:
		if err == nil {
			err = errors.New("factory returned no detector")
		}
		result = &LoadError{Class: class, Err: err}
		m.state = State{Class: class, Status: Error, Err: result}
	}
	m.mu.Unlock()

	if result != nil {
		if _, ok := result.(*LoadError); ok {
			log.Printf("Model load failed: %v", result)
		}
	}
	for _, w := range waiters {
		w <- result
	}
}

// abandonLocked resolves the pending load, if any, with err. The load's own
// goroutine notices the generation change and releases its detector.
func (m *Manager) abandonLocked(err error) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	for _, w := range m.waiters {
		w <- err
	}
	m.waiters = nil
}

// State returns the current model state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Detector returns the active detector, or nil unless the model is ready.
func (m *Manager) Detector() detector.Detector {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != Ready {
		return nil
	}
	return m.active
}

// Loads returns how many load cycles the manager has started.
func (m *Manager) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// Cancel abandons a pending load and returns the manager to Unloaded. A
// model that is already ready is kept. The detector the abandoned load
// produces, if any, is closed as soon as the factory returns it. Cancel
// reports whether a load was pending.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != Loading {
		return false
	}
	m.abandonLocked(ErrCanceled)
	m.generation++
	m.state = State{}
	return true
}

// Close releases the active model and abandons any pending load. The manager
// returns to Unloaded and may be used again.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.abandonLocked(ErrClosed)
	m.generation++
	active := m.active
	m.active = nil
	m.state = State{}
	m.mu.Unlock()

	if active != nil {
		return active.Close()
	}
	return nil
}
