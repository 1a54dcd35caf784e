// Package app provides the try-on engine that ties camera capture, landmark
// detection and overlay placement together.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/tryon/internal/adjust"
	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/models"
	"github.com/ayusman/tryon/internal/overlay"
)

// DefaultFrameInterval is the render tick period.
const DefaultFrameInterval = time.Second / 30

// Status messages.
const (
	StatusOff           = "Try-on is off"
	StatusSelectJewelry = "Select a jewelry piece to try on"
	StatusStartCamera   = "Starting camera..."
	StatusCameraDenied  = "Unable to access camera. Please grant camera permissions."
	StatusCameraFailed  = "Unable to access camera. Please check that it is connected and not in use."
)

// Phase is the engine's lifecycle state.
type Phase int

const (
	Idle Phase = iota
	Loading
	Tracking
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Tracking:
		return "tracking"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{Idle, Loading, Tracking, Error} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// State is what the engine reports to the surrounding UI.
type State struct {
	Phase     Phase            `json:"phase"`
	Status    string           `json:"status"`
	Active    bool             `json:"active"`
	JewelryID string           `json:"jewelryId,omitempty"`
	Category  jewelry.Category `json:"category,omitempty"`
}

// Config holds configuration options for the engine.
type Config struct {
	Camera          capture.Camera
	Factory         models.Factory
	Anchors         overlay.Table
	Scheduler       Scheduler
	FrameInterval   time.Duration
	MaxReadFailures int
}

// App is the try-on engine. All inbound calls are safe for concurrent use.
//
// Every event updates the engine's inputs under one mutex and then runs
// reconcile, which moves the engine towards the state those inputs call
// for: loading the right model, starting or stopping the camera and
// starting or stopping the render loop.
type App struct {
	config Config
	models *models.Manager
	adjust *adjust.Store
	panel  *adjust.Panel

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	asset          *jewelry.Asset
	anchors        overlay.Table
	session        *capture.Session
	cameraStarting bool
	startCancel    context.CancelFunc
	cameraErr      string
	retryModel     bool
	cycle          uint64
	stopTicks      func()
	lastFrame      int64
	surface        *image.RGBA
	frames         uint64
	listeners      map[int]func(State)
	nextListener   int
	version        uint64
	pending        State
	wake           chan struct{}
	deferred       []func()
	closed         bool
}

// New creates a new engine. Nothing is started until SetActive(true).
func New(config Config) *App {
	if config.Camera == nil {
		config.Camera = capture.NewCamera(0)
	}
	if config.Factory == nil {
		config.Factory = detector.MediaPipeFactory(detector.DefaultConfig())
	}
	if config.Anchors == nil {
		config.Anchors = overlay.DefaultTable()
	}
	if config.Scheduler == nil {
		config.Scheduler = TickerScheduler{}
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}

	store := adjust.NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config:    config,
		models:    models.NewManager(config.Factory),
		adjust:    store,
		panel:     adjust.NewPanel(store),
		ctx:       ctx,
		cancel:    cancel,
		anchors:   config.Anchors,
		listeners: make(map[int]func(State)),
		wake:      make(chan struct{}, 1),
	}
	a.state = State{Phase: Idle, Status: StatusOff}
	go a.dispatch()
	return a
}

// SetJewelry selects the jewelry to try on. nil clears the selection and
// stops the render loop.
func (a *App) SetJewelry(asset *jewelry.Asset) {
	a.update(func() {
		a.asset = asset
		a.retryModel = true
		if asset == nil {
			a.state.JewelryID = ""
			a.state.Category = ""
			return
		}
		a.state.JewelryID = asset.ID
		a.state.Category = asset.Category
	})
}

// SetActive turns the try-on view on or off. Turning it on resets the
// manual adjustment and retries a model that previously failed to load.
func (a *App) SetActive(active bool) {
	a.update(func() {
		if active {
			if !a.state.Active {
				a.adjust.ResetAll()
			}
			a.retryModel = true
			a.cameraErr = ""
		}
		a.state.Active = active
	})
}

// SetManualAdjustment merges a partial adjustment. It takes effect on the
// next frame without restarting the camera or the model.
func (a *App) SetManualAdjustment(p adjust.Partial) adjust.Adjustment {
	return a.adjust.Apply(p)
}

// ResetAdjustment resets the fields of one adjustment mode.
func (a *App) ResetAdjustment(mode adjust.Mode) (adjust.Adjustment, error) {
	return a.adjust.Reset(mode)
}

// Adjustment returns the current manual adjustment.
func (a *App) Adjustment() adjust.Adjustment {
	return a.adjust.Get()
}

// Panel returns the adjustment panel bound to this engine.
func (a *App) Panel() *adjust.Panel {
	return a.panel
}

// Calibrate replaces the base scale and offset used for a category.
func (a *App) Calibrate(category jewelry.Category, scale, offsetX, offsetY float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tuned, err := a.anchors.Calibrate(category, scale, r2.Vec{X: offsetX, Y: offsetY})
	if err != nil {
		return err
	}
	a.anchors = tuned
	return nil
}

// Anchors returns the anchor table in use.
func (a *App) Anchors() overlay.Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.anchors
}

// State returns the current engine state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Status returns the current status message.
func (a *App) Status() string {
	return a.State().Status
}

// Active reports whether the try-on view is on. The engine turns itself
// off when the camera fails.
func (a *App) Active() bool {
	return a.State().Active
}

// Surface returns the most recently rendered frame, or nil. The returned
// image is never modified afterwards.
func (a *App) Surface() image.Image {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return nil
	}
	return a.surface
}

// Frames returns how many frames have been rendered.
func (a *App) Frames() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

// ModelState returns the state of the detection model.
func (a *App) ModelState() models.State {
	return a.models.State()
}

// ModelLoads returns how many model load cycles have started.
func (a *App) ModelLoads() int {
	return a.models.Loads()
}

// OnChange registers fn to be called after state changes. Listeners run one
// at a time on a dedicated goroutine and always see states in order. When
// a listener is slow, intermediate states are skipped in favour of the
// latest one. The returned function unregisters fn.
func (a *App) OnChange(fn func(State)) (cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextListener
	a.nextListener++
	a.listeners[id] = fn

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

// Close stops the engine and releases the camera and the model. Ticks that
// are still scheduled afterwards do nothing.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.stopLoopLocked()
	a.stopCameraLocked()
	a.closed = true
	a.cancel()
	deferred := a.takeDeferredLocked()
	a.mu.Unlock()

	for _, fn := range deferred {
		fn()
	}

	log.Println("Try-on engine stopped")
	return a.models.Close()
}

// update applies fn and reconciles under the lock, then runs deferred work
// outside of it.
func (a *App) update(fn func()) {
	a.mu.Lock()
	before := a.state
	fn()
	a.reconcileLocked()
	if a.state != before {
		a.publishLocked()
	}
	deferred := a.takeDeferredLocked()
	a.mu.Unlock()

	for _, d := range deferred {
		d()
	}
}

// publishLocked hands the current state to the dispatcher.
func (a *App) publishLocked() {
	a.version++
	a.pending = a.state
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// dispatch delivers published states to listeners until the engine closes.
func (a *App) dispatch() {
	var delivered uint64
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.wake:
		}

		a.mu.Lock()
		version, state := a.version, a.pending
		listeners := a.listenersLocked()
		a.mu.Unlock()

		if version == delivered {
			continue
		}
		delivered = version
		for _, l := range listeners {
			l(state)
		}
	}
}

func (a *App) takeDeferredLocked() []func() {
	d := a.deferred
	a.deferred = nil
	return d
}

func (a *App) listenersLocked() []func(State) {
	out := make([]func(State), 0, len(a.listeners))
	for _, l := range a.listeners {
		out = append(out, l)
	}
	return out
}

func (a *App) setPhase(phase Phase, status string) {
	a.state.Phase = phase
	a.state.Status = status
}

// reconcileLocked drives the engine towards the state its inputs call for.
func (a *App) reconcileLocked() {
	if a.closed {
		return
	}
	defer func() { a.retryModel = false }()

	if !a.state.Active {
		a.models.Cancel()
		a.stopLoopLocked()
		a.stopCameraLocked()
		a.surface = nil
		if a.cameraErr != "" {
			a.setPhase(Error, a.cameraErr)
		} else {
			a.setPhase(Idle, StatusOff)
		}
		return
	}

	if a.asset == nil {
		a.stopLoopLocked()
		a.setPhase(Idle, StatusSelectJewelry)
		return
	}

	category := a.asset.Category
	class := category.ModelClass()
	ms := a.models.State()

	switch {
	case ms.Class == class && ms.Status == models.Ready:
	case ms.Class == class && ms.Status == models.Loading:
		a.stopLoopLocked()
		a.setPhase(Loading, loadingStatus(category))
		return
	case ms.Class == class && ms.Status == models.Error && !a.retryModel:
		a.stopLoopLocked()
		a.setPhase(Error, fmt.Sprintf("Failed to load %s AR model: %v", category, errors.Unwrap(ms.Err)))
		return
	default:
		a.stopLoopLocked()
		a.loadModelLocked(category)
		a.setPhase(Loading, loadingStatus(category))
		return
	}

	if a.session == nil {
		a.startCameraLocked()
	}
	if a.cameraStarting {
		a.setPhase(Loading, StatusStartCamera)
		return
	}

	if a.stopTicks == nil {
		a.startLoopLocked()
		a.setPhase(Tracking, trackingStatus(class))
	}
}

func (a *App) loadModelLocked(category jewelry.Category) {
	done := a.models.Load(a.ctx, category)
	go func() {
		if err := <-done; err != nil && !errors.Is(err, models.ErrSuperseded) && !errors.Is(err, models.ErrCanceled) {
			var loadErr *models.LoadError
			if !errors.As(err, &loadErr) {
				log.Printf("Model load for %s abandoned: %v", category, err)
			}
		}
		a.update(func() {})
	}()
}

func (a *App) startCameraLocked() {
	var session *capture.Session
	session = capture.NewSession(a.config.Camera, capture.SessionConfig{
		MaxReadFailures: a.config.MaxReadFailures,
		OnFailure: func(err error) {
			a.cameraFailed(session, err)
		},
	})

	ctx, cancel := context.WithCancel(a.ctx)
	a.session = session
	a.cameraStarting = true
	a.startCancel = cancel

	go func() {
		err := session.Start(ctx)
		cancel()

		a.update(func() {
			if a.session != session {
				// Deactivated or closed while the camera was opening.
				if err == nil {
					a.deferred = append(a.deferred, session.Stop)
				}
				return
			}
			a.cameraStarting = false
			a.startCancel = nil
			if err != nil {
				a.session = nil
				a.failCameraLocked(err)
				return
			}
			log.Println("Camera started")
		})
	}()
}

// cameraFailed handles a running session that lost its camera.
func (a *App) cameraFailed(session *capture.Session, err error) {
	a.update(func() {
		if a.session != session {
			return
		}
		a.session = nil
		a.failCameraLocked(err)
	})
}

// failCameraLocked turns the engine off after a camera error.
func (a *App) failCameraLocked(err error) {
	log.Printf("Camera error: %v", err)
	a.state.Active = false
	if errors.Is(err, capture.ErrPermissionDenied) {
		a.cameraErr = StatusCameraDenied
	} else {
		a.cameraErr = StatusCameraFailed
	}
}

func (a *App) stopCameraLocked() {
	if a.startCancel != nil {
		a.startCancel()
		a.startCancel = nil
	}
	a.cameraStarting = false
	if session := a.session; session != nil {
		a.session = nil
		a.deferred = append(a.deferred, session.Stop)
	}
}

func (a *App) startLoopLocked() {
	a.cycle++
	cycle := a.cycle
	a.lastFrame = 0
	a.stopTicks = a.config.Scheduler.Every(a.config.FrameInterval, func() {
		a.tick(cycle)
	})
}

func (a *App) stopLoopLocked() {
	a.cycle++
	if a.stopTicks != nil {
		a.stopTicks()
		a.stopTicks = nil
	}
}

func loadingStatus(category jewelry.Category) string {
	return fmt.Sprintf("Loading %s AR model...", category)
}

func trackingStatus(class detector.Class) string {
	return fmt.Sprintf("Tracking %s...", class)
}
