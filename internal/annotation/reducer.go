package annotation

import (
	"github.com/defectscope/annotator/internal/legend"
	"github.com/defectscope/annotator/internal/typeid"
)

// DefaultMinExtent is the smallest width and height, in pixels, a drawn
// rectangle must reach to be kept.
const DefaultMinExtent = 1.0

// Reducer computes the next editor state from the current one and an event.
// It never mutates its input and never fails: events that make no sense in
// the current state are ignored.
type Reducer struct {
	// NewID assigns ids to new rectangles.
	NewID func() string
	// MinExtent is the minimum normalized width and height of a committed rectangle.
	MinExtent float64
}

// NewReducer returns a reducer with typeid rectangle ids and the default
// minimum extent.
func NewReducer() Reducer {
	return Reducer{NewID: typeid.NewRectID, MinExtent: DefaultMinExtent}
}

// Reduce applies ev to s and returns the resulting state.
func (r Reducer) Reduce(s State, ev Event) State {
	next := s.clone()

	switch e := ev.(type) {
	case PointerDown:
		r.pointerDown(&next, e.At)
	case PointerMove:
		pointerMove(&next, e.At)
	case PointerUp:
		r.pointerUp(&next)
	case KeyDown:
		keyDown(&next, e.Key)
	case SetMode:
		setMode(&next, e.Mode)
	case SetClass:
		if legend.Valid(e.Class) {
			next.Class = e.Class
		}
	case Reclassify:
		if !legend.Valid(e.Class) {
			break
		}
		for i := range next.Rects {
			if next.IsSelected(next.Rects[i].ID) {
				next.Rects[i].Class = e.Class
			}
		}
	case Load:
		next.clearGesture()
		next.Selection = nil
		next.Rects = r.prepare(e.Rects)
	}

	return next
}

func (r Reducer) pointerDown(s *State, at Point) {
	// A press while a gesture is still open means the release was lost
	// (e.g. outside the canvas). Drop the stale gesture and start over.
	if s.Phase != PhaseIdle {
		s.clearGesture()
	}

	switch s.Mode {
	case ModeDraw:
		s.Phase = PhaseDrawing
		s.Anchor = at
		s.Drawing = &Rect{X: at.X, Y: at.Y, Class: s.Class}

	case ModeSelect:
		idx := s.hitTest(at)
		if idx < 0 {
			s.Selection = nil
			s.Phase = PhaseRubberBanding
			s.Anchor = at
			s.Band = &Rect{X: at.X, Y: at.Y}
			return
		}

		hit := s.Rects[idx].ID
		if !s.IsSelected(hit) {
			s.Selection = []string{hit}
		}

		s.Phase = PhaseDraggingSelection
		s.Anchor = at
		s.Offsets = make(map[string]Point, len(s.Selection))
		for _, id := range s.Selection {
			if i := s.indexOf(id); i >= 0 {
				s.Offsets[id] = Point{X: s.Rects[i].X - at.X, Y: s.Rects[i].Y - at.Y}
			}
		}
	}
}

func pointerMove(s *State, at Point) {
	switch s.Phase {
	case PhaseDrawing:
		s.Drawing.Width = at.X - s.Anchor.X
		s.Drawing.Height = at.Y - s.Anchor.Y

	case PhaseDraggingSelection:
		for i := range s.Rects {
			off, ok := s.Offsets[s.Rects[i].ID]
			if !ok {
				continue
			}
			s.Rects[i].X = at.X + off.X
			s.Rects[i].Y = at.Y + off.Y
		}

	case PhaseRubberBanding:
		s.Band.Width = at.X - s.Anchor.X
		s.Band.Height = at.Y - s.Anchor.Y
	}
}

func (r Reducer) pointerUp(s *State) {
	switch s.Phase {
	case PhaseDrawing:
		rect := s.Drawing.Normalize()
		if rect.Width >= r.minExtent() && rect.Height >= r.minExtent() {
			rect.ID = r.newID()
			s.Rects = append(s.Rects, rect)
		}

	case PhaseRubberBanding:
		band := s.Band.Normalize()
		s.Selection = nil
		for _, rect := range s.Rects {
			if rect.Intersects(band) {
				s.Selection = append(s.Selection, rect.ID)
			}
		}
	}

	s.clearGesture()
}

func keyDown(s *State, key string) {
	switch key {
	case "Delete", "Backspace":
		if len(s.Selection) == 0 {
			return
		}
		kept := make([]Rect, 0, len(s.Rects))
		for _, rect := range s.Rects {
			if !s.IsSelected(rect.ID) {
				kept = append(kept, rect)
			}
		}
		s.Rects = kept
		s.Selection = nil
		if s.Phase == PhaseDraggingSelection {
			s.clearGesture()
		}

	case "Escape":
		s.clearGesture()
	}
}

func setMode(s *State, m Mode) {
	switch m {
	case ModeDraw:
		s.Selection = nil
		if s.Phase != PhaseDrawing {
			s.clearGesture()
		}
	case ModeSelect:
		s.Drawing = nil
		if s.Phase == PhaseDrawing {
			s.clearGesture()
		}
	default:
		return
	}
	s.Mode = m
}

// prepare normalizes incoming rectangles and gives every one a unique id.
func (r Reducer) prepare(in []Rect) []Rect {
	out := make([]Rect, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, rect := range in {
		rect = rect.Normalize()
		if rect.ID == "" || seen[rect.ID] {
			rect.ID = r.newID()
		}
		seen[rect.ID] = true
		out = append(out, rect)
	}
	return out
}

func (r Reducer) newID() string {
	if r.NewID == nil {
		return typeid.NewRectID()
	}
	return r.NewID()
}

func (r Reducer) minExtent() float64 {
	if r.MinExtent <= 0 {
		return DefaultMinExtent
	}
	return r.MinExtent
}
