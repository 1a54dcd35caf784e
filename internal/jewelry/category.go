// Package jewelry describes try-on products and loads their overlay images.
package jewelry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/tryon/internal/detector"
)

// ErrUnknownCategory is returned when a category name cannot be mapped.
var ErrUnknownCategory = errors.New("unknown jewelry category")

// Category is the body placement class of a jewelry piece.
type Category string

const (
	Earring  Category = "Earring"
	Necklace Category = "Necklace"
	Ring     Category = "Ring"
	Bracelet Category = "Bracelet"
)

// Categories returns all supported categories in display order.
func Categories() []Category {
	return []Category{Earring, Necklace, Ring, Bracelet}
}

// ParseCategory maps a catalog category name to a Category.
// Matching is case-insensitive and pendants are worn as necklaces.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "earring", "earrings":
		return Earring, nil
	case "necklace", "necklaces", "pendant", "pendants":
		return Necklace, nil
	case "ring", "rings":
		return Ring, nil
	case "bracelet", "bracelets":
		return Bracelet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ModelClass returns the landmark model needed to place this category.
func (c Category) ModelClass() detector.Class {
	switch c {
	case Ring, Bracelet:
		return detector.ClassHand
	default:
		return detector.ClassFace
	}
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case Earring, Necklace, Ring, Bracelet:
		return true
	}
	return false
}
