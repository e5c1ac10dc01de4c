package annotation

import (
	"fmt"

	"github.com/defectscope/annotator/internal/legend"
)

// Mode is the editor's interaction mode.
type Mode int

const (
	ModeDraw Mode = iota
	ModeSelect
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "draw"
	case ModeSelect:
		return "select"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "draw":
		*m = ModeDraw
	case "select":
		*m = ModeSelect
	default:
		return fmt.Errorf("unknown mode %q", string(b))
	}
	return nil
}

// Phase is the pointer gesture currently in progress.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDrawing
	PhaseDraggingSelection
	PhaseRubberBanding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDrawing:
		return "drawing"
	case PhaseDraggingSelection:
		return "dragging"
	case PhaseRubberBanding:
		return "rubberbanding"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseDrawing, PhaseDraggingSelection, PhaseRubberBanding} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// State is everything the editor needs to render and to handle the next
// event. Rects is in insertion order, which is also the draw order.
// Selection holds rectangle ids, never positions.
type State struct {
	Mode      Mode           `json:"mode"`
	Phase     Phase          `json:"phase"`
	Class     legend.ClassID `json:"class"`
	Rects     []Rect         `json:"rects"`
	Selection []string       `json:"selection"`

	// Gesture state, only meaningful while Phase != PhaseIdle.
	Anchor  Point            `json:"-"`
	Drawing *Rect            `json:"drawing,omitempty"`
	Band    *Rect            `json:"band,omitempty"`
	Offsets map[string]Point `json:"-"`
}

// NewState returns an empty state in draw mode with the default class.
func NewState() State {
	return State{Mode: ModeDraw, Class: legend.Default}
}

// IsSelected reports whether the rectangle with the given id is selected.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selection {
		if sel == id {
			return true
		}
	}
	return false
}

// SelectedIndices translates the selection into current list positions.
func (s State) SelectedIndices() []int {
	var out []int
	for i, r := range s.Rects {
		if s.IsSelected(r.ID) {
			out = append(out, i)
		}
	}
	return out
}

// Boxes returns every rectangle in two-corner form, in list order.
func (s State) Boxes() []Box {
	out := make([]Box, len(s.Rects))
	for i, r := range s.Rects {
		out[i] = r.Box()
	}
	return out
}

func (s State) indexOf(id string) int {
	for i, r := range s.Rects {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// hitTest returns the index of the topmost rectangle containing p, or -1.
func (s State) hitTest(p Point) int {
	for i := len(s.Rects) - 1; i >= 0; i-- {
		if s.Rects[i].Contains(p) {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	c := s
	if s.Rects != nil {
		c.Rects = make([]Rect, len(s.Rects))
		copy(c.Rects, s.Rects)
	}
	if s.Selection != nil {
		c.Selection = make([]string, len(s.Selection))
		copy(c.Selection, s.Selection)
	}
	if s.Drawing != nil {
		d := *s.Drawing
		c.Drawing = &d
	}
	if s.Band != nil {
		b := *s.Band
		c.Band = &b
	}
	if s.Offsets != nil {
		c.Offsets = make(map[string]Point, len(s.Offsets))
		for k, v := range s.Offsets {
			c.Offsets[k] = v
		}
	}
	return c
}

func (s *State) clearGesture() {
	s.Phase = PhaseIdle
	s.Anchor = Point{}
	s.Drawing = nil
	s.Band = nil
	s.Offsets = nil
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	return s.clone()
}
