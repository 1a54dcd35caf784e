package adjust

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFieldNotInMode is returned when a slider outside the current mode is moved.
var ErrFieldNotInMode = errors.New("field is not editable in the current mode")

// panelMargin is the gap between the panel's default position and the bottom edge.
const panelMargin = 20

// Point is a screen position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a screen size in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Slider is one control shown by the panel.
type Slider struct {
	Field  Field   `json:"field"`
	Value  float64 `json:"value"`
	Bounds Bounds  `json:"bounds"`
}

// PanelState is a snapshot of the panel for rendering.
type PanelState struct {
	Mode       Mode       `json:"mode"`
	Position   Point      `json:"position"`
	Dragging   bool       `json:"dragging"`
	Sliders    []Slider   `json:"sliders"`
	Adjustment Adjustment `json:"adjustment"`
}

// Panel is the floating control panel that edits a Store. Its own screen
// position is independent of the adjustment values.
type Panel struct {
	store *Store

	mu         sync.Mutex
	mode       Mode
	position   Point
	dragging   bool
	dragStart  Point
	dragOrigin Point
}

// NewPanel creates a panel in Position mode editing store.
func NewPanel(store *Store) *Panel {
	return &Panel{
		store: store,
		mode:  Position,
	}
}

// Mode returns the current mode.
func (p *Panel) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches the panel to another mode.
func (p *Panel) SetMode(m Mode) error {
	if m.Fields() == nil {
		return fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
	return nil
}

// Sliders returns the controls of the current mode with their current values.
func (p *Panel) Sliders() []Slider {
	return sliders(p.Mode(), p.store.Get())
}

func sliders(m Mode, a Adjustment) []Slider {
	fields := m.Fields()
	out := make([]Slider, len(fields))
	for i, f := range fields {
		out[i] = Slider{Field: f, Value: a.Get(f), Bounds: f.Bounds()}
	}
	return out
}

// Slide moves one slider of the current mode.
func (p *Panel) Slide(f Field, v float64) (Adjustment, error) {
	mode := p.Mode()
	if !mode.Has(f) {
		return Adjustment{}, fmt.Errorf("%w: %s in %s", ErrFieldNotInMode, f, mode)
	}
	return p.store.Set(f, v)
}

// Reset neutralizes the fields of the current mode only.
func (p *Panel) Reset() (Adjustment, error) {
	return p.store.Reset(p.Mode())
}

// BeginDrag starts moving the panel from the pointer position at.
func (p *Panel) BeginDrag(at Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dragging = true
	p.dragStart = at
	p.dragOrigin = p.position
}

// DragTo moves the panel with the pointer and returns its new position.
// It does nothing unless a drag is in progress.
func (p *Panel) DragTo(at Point) Point {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.dragging {
		return p.position
	}
	p.position = Point{
		X: p.dragOrigin.X + at.X - p.dragStart.X,
		Y: p.dragOrigin.Y + at.Y - p.dragStart.Y,
	}
	return p.position
}

// EndDrag finishes the drag gesture.
func (p *Panel) EndDrag() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dragging = false
}

// Position returns the panel's screen position.
func (p *Panel) Position() Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// PlaceDefault centers the panel horizontally near the bottom of container.
func (p *Panel) PlaceDefault(container, panel Size) Point {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = Point{
		X: container.Width/2 - panel.Width/2,
		Y: container.Height - panel.Height - panelMargin,
	}
	return p.position
}

// State returns a snapshot of the panel.
func (p *Panel) State() PanelState {
	p.mu.Lock()
	mode, pos, dragging := p.mode, p.position, p.dragging
	p.mu.Unlock()

	a := p.store.Get()
	return PanelState{
		Mode:       mode,
		Position:   pos,
		Dragging:   dragging,
		Sliders:    sliders(mode, a),
		Adjustment: a,
	}
}
