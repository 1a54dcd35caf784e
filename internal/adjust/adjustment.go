// Package adjust holds the user's manual overlay corrections and the state
// of the floating panel that edits them.
package adjust

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownField is returned for an adjustment field name that does not exist.
	ErrUnknownField = errors.New("unknown adjustment field")

	// ErrUnknownMode is returned for a panel mode name that does not exist.
	ErrUnknownMode = errors.New("unknown adjustment mode")
)

// Adjustment is a manual correction composed on top of automatic placement.
// Values are immutable once published by a Store.
type Adjustment struct {
	OffsetX       float64 `json:"offsetX"`
	OffsetY       float64 `json:"offsetY"`
	ScaleFactor   float64 `json:"scaleFactor"`
	RotationAngle float64 `json:"rotationAngle"` // degrees
}

// Default returns the neutral adjustment.
func Default() Adjustment {
	return Adjustment{ScaleFactor: 1}
}

// Clamp returns a copy with every field limited to its bounds.
func (a Adjustment) Clamp() Adjustment {
	a.OffsetX = OffsetX.Bounds().clamp(a.OffsetX)
	a.OffsetY = OffsetY.Bounds().clamp(a.OffsetY)
	a.ScaleFactor = ScaleFactor.Bounds().clamp(a.ScaleFactor)
	a.RotationAngle = RotationAngle.Bounds().clamp(a.RotationAngle)
	return a
}

// Radians returns the rotation angle in radians.
func (a Adjustment) Radians() float64 {
	return a.RotationAngle * math.Pi / 180
}

// Get returns the value of one field.
func (a Adjustment) Get(f Field) float64 {
	switch f {
	case OffsetX:
		return a.OffsetX
	case OffsetY:
		return a.OffsetY
	case ScaleFactor:
		return a.ScaleFactor
	case RotationAngle:
		return a.RotationAngle
	default:
		return 0
	}
}

func (a *Adjustment) set(f Field, v float64) {
	switch f {
	case OffsetX:
		a.OffsetX = v
	case OffsetY:
		a.OffsetY = v
	case ScaleFactor:
		a.ScaleFactor = v
	case RotationAngle:
		a.RotationAngle = v
	}
}

// Partial is an update that only touches the fields it sets.
type Partial struct {
	OffsetX       *float64 `json:"offsetX,omitempty"`
	OffsetY       *float64 `json:"offsetY,omitempty"`
	ScaleFactor   *float64 `json:"scaleFactor,omitempty"`
	RotationAngle *float64 `json:"rotationAngle,omitempty"`
}

// Empty reports whether the update sets no field.
func (p Partial) Empty() bool {
	return p.OffsetX == nil && p.OffsetY == nil && p.ScaleFactor == nil && p.RotationAngle == nil
}

func (p Partial) applyTo(a Adjustment) Adjustment {
	if p.OffsetX != nil {
		a.OffsetX = *p.OffsetX
	}
	if p.OffsetY != nil {
		a.OffsetY = *p.OffsetY
	}
	if p.ScaleFactor != nil {
		a.ScaleFactor = *p.ScaleFactor
	}
	if p.RotationAngle != nil {
		a.RotationAngle = *p.RotationAngle
	}
	return a.Clamp()
}

// Field names one adjustable value.
type Field string

const (
	OffsetX       Field = "offsetX"
	OffsetY       Field = "offsetY"
	ScaleFactor   Field = "scaleFactor"
	RotationAngle Field = "rotationAngle"
)

// Bounds describes the slider range of a field.
type Bounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

func (b Bounds) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Min
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Bounds returns the range of the field.
func (f Field) Bounds() Bounds {
	switch f {
	case OffsetX, OffsetY:
		return Bounds{Min: -100, Max: 100, Step: 1}
	case ScaleFactor:
		return Bounds{Min: 0.1, Max: 1.5, Step: 0.01}
	case RotationAngle:
		return Bounds{Min: -90, Max: 90, Step: 1}
	default:
		return Bounds{}
	}
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case OffsetX, OffsetY, ScaleFactor, RotationAngle:
		return true
	}
	return false
}

// ParseField converts a field name into a Field.
func ParseField(s string) (Field, error) {
	f := Field(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
	return f, nil
}

// Mode is one page of the adjustment panel.
type Mode string

const (
	Position Mode = "Position"
	Rotation Mode = "Rotation"
	Scale    Mode = "Scale"
)

// Modes returns the panel modes in display order.
func Modes() []Mode {
	return []Mode{Position, Rotation, Scale}
}

// Fields returns the fields edited in this mode.
func (m Mode) Fields() []Field {
	switch m {
	case Position:
		return []Field{OffsetX, OffsetY}
	case Rotation:
		return []Field{RotationAngle}
	case Scale:
		return []Field{ScaleFactor}
	default:
		return nil
	}
}

// Has reports whether f belongs to the mode.
func (m Mode) Has(f Field) bool {
	for _, mf := range m.Fields() {
		if mf == f {
			return true
		}
	}
	return false
}

// ParseMode converts a mode name into a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
