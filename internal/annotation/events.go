package annotation

import "github.com/defectscope/annotator/internal/legend"

// Event is anything the reducer consumes.
type Event interface {
	isEvent()
}

type (
	// PointerDown is a primary button press at a canvas position.
	PointerDown struct{ At Point }
	// PointerMove is a pointer movement, pressed or not.
	PointerMove struct{ At Point }
	// PointerUp ends the current gesture.
	PointerUp struct{}
	// KeyDown is a key press; Key uses DOM key names ("Delete", "Backspace", "Escape").
	KeyDown struct{ Key string }
	// SetMode switches between draw and select mode.
	SetMode struct{ Mode Mode }
	// SetClass picks the class for rectangles drawn from now on.
	SetClass struct{ Class legend.ClassID }
	// Reclassify moves every selected rectangle to another class.
	Reclassify struct{ Class legend.ClassID }
	// Load replaces the rectangle list, e.g. with detection results.
	Load struct{ Rects []Rect }
)

func (PointerDown) isEvent() {}
func (PointerMove) isEvent() {}
func (PointerUp) isEvent()   {}
func (KeyDown) isEvent()     {}
func (SetMode) isEvent()     {}
func (SetClass) isEvent()    {}
func (Reclassify) isEvent()  {}
func (Load) isEvent()        {}
