package app

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn repeatedly until the returned stop function is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler runs callbacks from a time.Ticker on its own goroutine.
type TickerScheduler struct{}

// Every starts a ticker goroutine calling fn every interval.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualScheduler only runs callbacks when Tick is called. It makes render
// loop behaviour deterministic in tests.
type ManualScheduler struct {
	mu    sync.Mutex
	next  int
	tasks map[int]func()
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]func())}
}

// Every registers fn. The interval is ignored.
func (s *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.tasks[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tasks, id)
	}
}

// Callbacks returns the registered callbacks in registration order.
func (s *ManualScheduler) Callbacks() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = s.tasks[id]
	}
	return fns
}

// Active returns how many callbacks are registered.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tick runs every registered callback once and returns how many ran.
func (s *ManualScheduler) Tick() int {
	fns := s.Callbacks()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
