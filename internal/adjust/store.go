package adjust

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Store holds the current adjustment. Readers load an immutable snapshot
// without locking; writers are serialized and publish a new snapshot.
type Store struct {
	current atomic.Pointer[Adjustment]
	mu      sync.Mutex
}

// NewStore creates a store holding the default adjustment.
func NewStore() *Store {
	s := &Store{}
	s.publish(Default())
	return s
}

func (s *Store) publish(a Adjustment) Adjustment {
	s.current.Store(&a)
	return a
}

// Get returns the latest committed adjustment.
func (s *Store) Get() Adjustment {
	return *s.current.Load()
}

// Apply merges a partial update and returns the resulting adjustment.
func (s *Store) Apply(p Partial) Adjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(p.applyTo(s.Get()))
}

// Set changes a single field.
func (s *Store) Set(f Field, v float64) (Adjustment, error) {
	if !f.Valid() {
		return Adjustment{}, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.Get()
	a.set(f, v)
	return s.publish(a.Clamp()), nil
}

// Reset restores the fields of one mode to their defaults and leaves the
// other fields untouched.
func (s *Store) Reset(m Mode) (Adjustment, error) {
	fields := m.Fields()
	if fields == nil {
		return Adjustment{}, fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.Get()
	def := Default()
	for _, f := range fields {
		a.set(f, def.Get(f))
	}
	return s.publish(a), nil
}

// ResetAll restores the default adjustment.
func (s *Store) ResetAll() Adjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publish(Default())
}
