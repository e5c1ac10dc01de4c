package annotation

import "github.com/defectscope/annotator/internal/legend"

// Point is a position in image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an annotated defect: an axis-aligned box in image pixel space and
// the class it belongs to. Width and Height are signed while a rectangle is
// being drawn; rectangles stored in a State are always normalized.
type Rect struct {
	ID     string         `json:"id"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Class  legend.ClassID `json:"class"`
}

// Box is the two-corner form used on the wire.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Normalize returns the same rectangle with non-negative extents.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Contains checks if a point is inside the rect, edges included.
func (r Rect) Contains(p Point) bool {
	n := r.Normalize()
	return p.X >= n.X && p.X <= n.X+n.Width && p.Y >= n.Y && p.Y <= n.Y+n.Height
}

// Intersects reports whether the two rectangles overlap. Rectangles that only
// share an edge or a corner do not intersect.
func (r Rect) Intersects(other Rect) bool {
	a, b := r.Normalize(), other.Normalize()
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// IsEmpty checks if the rect has zero area.
func (r Rect) IsEmpty() bool {
	n := r.Normalize()
	return n.Width == 0 || n.Height == 0
}

// Stroke returns the legend colour of the rectangle's class.
func (r Rect) Stroke() string {
	return legend.Color(r.Class)
}

// Box converts the normalized rectangle to two-corner form.
func (r Rect) Box() Box {
	n := r.Normalize()
	return Box{X1: n.X, Y1: n.Y, X2: n.X + n.Width, Y2: n.Y + n.Height}
}

// FromBox builds a rectangle from two opposite corners.
func FromBox(b Box, class legend.ClassID) Rect {
	return Rect{
		X:      b.X1,
		Y:      b.Y1,
		Width:  b.X2 - b.X1,
		Height: b.Y2 - b.Y1,
		Class:  class,
	}
}
