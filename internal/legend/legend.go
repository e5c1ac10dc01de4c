// Package legend maps defect class identifiers to display colours and names.
//
// The table is fixed and versioned. Every class the detection service can
// report must appear here; an unknown identifier is an error, never a
// fallback colour.
package legend

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Version identifies the current table. Bump it when entries change.
const Version = "v1"

// ClassID is a defect class identifier as reported by the detection service.
type ClassID int

// Class is one legend entry.
type Class struct {
	ID    ClassID `json:"id"`
	Color string  `json:"color"`
	Name  string  `json:"name"`
}

var ErrUnknownClass = errors.New("unknown defect class")

// Ids and colours match the detection model. The names are provisional
// display labels: the services only exchange numeric ids, so nothing
// downstream reads them.
var classes = []Class{
	{ID: 0, Color: "#2EC3C2", Name: "Crack"},
	{ID: 1, Color: "#34C759", Name: "Scratch"},
	{ID: 2, Color: "#5E5CE6", Name: "Dent"},
	{ID: 3, Color: "#FF9500", Name: "Corrosion"},
	{ID: 4, Color: "#EC407A", Name: "Pitting"},
	{ID: 5, Color: "#FF3B30", Name: "Inclusion"},
	{ID: 6, Color: "#007AFF", Name: "Porosity"},
	{ID: 7, Color: "#607D8B", Name: "Burr"},
	{ID: 8, Color: "#FFEA00", Name: "Stain"},
	{ID: 9, Color: "#36BAF5", Name: "Chip"},
	{ID: 10, Color: "#AF52DE", Name: "Deformation"},
	{ID: 11, Color: "#EF2E83", Name: "Contamination"},
	{ID: 12, Color: "#A6A6A6", Name: "Other"},
}

// Default is the class new rectangles get before the user picks one.
const Default ClassID = 0

// Lookup returns the legend entry for id.
func Lookup(id ClassID) (Class, error) {
	if id < 0 || int(id) >= len(classes) {
		return Class{}, fmt.Errorf("%w: %d", ErrUnknownClass, id)
	}
	return classes[id], nil
}

// Valid reports whether id is present in the legend.
func Valid(id ClassID) bool {
	_, err := Lookup(id)
	return err == nil
}

// Color returns the display colour of id, or an empty string if id is unknown.
func Color(id ClassID) string {
	c, err := Lookup(id)
	if err != nil {
		return ""
	}
	return c.Color
}

// All returns a copy of every legend entry in id order.
func All() []Class {
	out := make([]Class, len(classes))
	copy(out, classes)
	return out
}

// RGBA parses a "#RRGGBB" colour into an opaque color.RGBA.
func RGBA(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
