package annotation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectscope/annotator/internal/legend"
)

// newTestReducer returns a reducer with predictable ids: r1, r2, ...
func newTestReducer() Reducer {
	n := 0
	return Reducer{
		NewID: func() string {
			n++
			return fmt.Sprintf("r%d", n)
		},
		MinExtent: DefaultMinExtent,
	}
}

func run(r Reducer, s State, events ...Event) State {
	for _, ev := range events {
		s = r.Reduce(s, ev)
	}
	return s
}

func drag(from, to Point) []Event {
	return []Event{PointerDown{At: from}, PointerMove{At: to}, PointerUp{}}
}

// fiveRects returns a select-mode state holding five well separated rectangles.
func fiveRects(r Reducer) State {
	s := NewState()
	var rects []Rect
	for i := 0; i < 5; i++ {
		rects = append(rects, Rect{X: float64(i * 100), Y: 0, Width: 50, Height: 50, Class: legend.ClassID(i)})
	}
	s = r.Reduce(s, Load{Rects: rects})
	return r.Reduce(s, SetMode{Mode: ModeSelect})
}

func TestDraw_CommitsNormalizedRect(t *testing.T) {
	r := newTestReducer()
	s := NewState()
	s = r.Reduce(s, SetClass{Class: 3})

	s = r.Reduce(s, PointerDown{At: Point{X: 80, Y: 90}})
	require.Equal(t, PhaseDrawing, s.Phase)
	require.NotNil(t, s.Drawing)
	assert.Equal(t, 0.0, s.Drawing.Width)

	s = r.Reduce(s, PointerMove{At: Point{X: 20, Y: 30}})
	assert.Equal(t, -60.0, s.Drawing.Width)
	assert.Equal(t, -60.0, s.Drawing.Height)

	raw := *s.Drawing
	s = r.Reduce(s, PointerUp{})

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Nil(t, s.Drawing)
	require.Len(t, s.Rects, 1)

	want := raw.Normalize()
	want.ID = "r1"
	assert.Equal(t, want, s.Rects[0])
	assert.Equal(t, Rect{ID: "r1", X: 20, Y: 30, Width: 60, Height: 60, Class: 3}, s.Rects[0])
}

func TestDraw_RejectsBelowMinimumExtent(t *testing.T) {
	tests := []struct {
		name string
		to   Point
	}{
		{"click without move", Point{X: 10, Y: 10}},
		{"sub-pixel", Point{X: 10.5, Y: 10.5}},
		{"zero height line", Point{X: 50, Y: 10}},
		{"thin sliver", Point{X: 10.9, Y: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReducer()
			s := run(r, NewState(), drag(Point{X: 10, Y: 10}, tt.to)...)
			assert.Empty(t, s.Rects)
			assert.Equal(t, PhaseIdle, s.Phase)
		})
	}

	r := newTestReducer()
	s := run(r, NewState(), drag(Point{X: 10, Y: 10}, Point{X: 11, Y: 11})...)
	assert.Len(t, s.Rects, 1, "exactly 1x1 is kept")
}

func TestDraw_UsesConfiguredMinimum(t *testing.T) {
	r := newTestReducer()
	r.MinExtent = 5
	s := run(r, NewState(), drag(Point{X: 0, Y: 0}, Point{X: 4, Y: 40})...)
	assert.Empty(t, s.Rects)
	s = run(r, s, drag(Point{X: 0, Y: 0}, Point{X: 5, Y: 5})...)
	assert.Len(t, s.Rects, 1)
}

func TestMalformedSequencesAreNoOps(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)

	assert.Equal(t, s, r.Reduce(s, PointerUp{}))
	assert.Equal(t, s, r.Reduce(s, PointerMove{At: Point{X: 5, Y: 5}}))
	assert.Equal(t, s, r.Reduce(s, KeyDown{Key: "Delete"}), "delete with empty selection")
	assert.Equal(t, s, r.Reduce(s, KeyDown{Key: "a"}))
	assert.Equal(t, s, r.Reduce(s, SetClass{Class: 99}))
	assert.Equal(t, s, r.Reduce(s, SetMode{Mode: Mode(7)}))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	s = r.Reduce(s, PointerDown{At: Point{X: 10, Y: 10}})
	before := s.clone()

	_ = r.Reduce(s, PointerMove{At: Point{X: 300, Y: 300}})
	_ = r.Reduce(s, KeyDown{Key: "Delete"})

	assert.Equal(t, before, s)
}

func TestSelect_ClickSelectsExactlyOne(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)

	s = run(r, s, PointerDown{At: Point{X: 110, Y: 10}}, PointerUp{})
	assert.Equal(t, []string{"r2"}, s.Selection)

	s = run(r, s, PointerDown{At: Point{X: 310, Y: 10}}, PointerUp{})
	assert.Equal(t, []string{"r4"}, s.Selection, "plain click replaces the previous selection")
}

func TestSelect_ClickOnEmptyCanvasClearsSelection(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	s = run(r, s, PointerDown{At: Point{X: 110, Y: 10}}, PointerUp{})
	require.NotEmpty(t, s.Selection)

	s = r.Reduce(s, PointerDown{At: Point{X: 75, Y: 200}})
	assert.Equal(t, PhaseRubberBanding, s.Phase)
	assert.Empty(t, s.Selection)
	s = r.Reduce(s, PointerUp{})
	assert.Empty(t, s.Selection)
}

func TestSelect_TopmostWins(t *testing.T) {
	r := newTestReducer()
	s := r.Reduce(NewState(), Load{Rects: []Rect{
		{X: 0, Y: 0, Width: 100, Height: 100},
		{X: 50, Y: 50, Width: 100, Height: 100},
	}})
	s = r.Reduce(s, SetMode{Mode: ModeSelect})
	s = run(r, s, PointerDown{At: Point{X: 75, Y: 75}}, PointerUp{})
	assert.Equal(t, []string{"r2"}, s.Selection)
}

func TestRubberBand_SelectsExactlyIntersecting(t *testing.T) {
	r := newTestReducer()
	s := r.Reduce(NewState(), Load{Rects: []Rect{
		{X: 20, Y: 20, Width: 10, Height: 10},   // r1 fully inside
		{X: 500, Y: 500, Width: 10, Height: 10}, // r2 fully outside
		{X: 60, Y: -20, Width: 30, Height: 30},  // r3 partial overlap across the top edge
		{X: 100, Y: 0, Width: 10, Height: 10},   // r4 touches right edge only
		{X: 0, Y: 100, Width: 10, Height: 10},   // r5 touches bottom edge only
	}})
	s = r.Reduce(s, SetMode{Mode: ModeSelect})

	// Drag from bottom-right to top-left; the band must be normalized.
	s = r.Reduce(s, PointerDown{At: Point{X: 100, Y: 100}})
	s = r.Reduce(s, PointerMove{At: Point{X: 0, Y: 0}})
	require.NotNil(t, s.Band)
	assert.Equal(t, -100.0, s.Band.Width)
	s = r.Reduce(s, PointerUp{})

	assert.Equal(t, []string{"r1", "r3"}, s.Selection)
	assert.Nil(t, s.Band)
	assert.Equal(t, PhaseIdle, s.Phase)
}

func TestGroupDrag_TranslatesSelectedOnly(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	before := s.Rects

	// Band-select r1..r3 (x 0..250).
	s = run(r, s, drag(Point{X: -10, Y: -10}, Point{X: 210, Y: 60})...)
	require.Equal(t, []string{"r1", "r2", "r3"}, s.Selection)

	// Grab r2 somewhere inside and move by (+37, +15).
	s = r.Reduce(s, PointerDown{At: Point{X: 120, Y: 20}})
	require.Equal(t, PhaseDraggingSelection, s.Phase)
	s = r.Reduce(s, PointerMove{At: Point{X: 140, Y: 25}})
	s = r.Reduce(s, PointerMove{At: Point{X: 157, Y: 35}})
	s = r.Reduce(s, PointerUp{})

	for i, rect := range s.Rects {
		if i < 3 {
			assert.Equal(t, before[i].X+37, rect.X, "rect %d", i)
			assert.Equal(t, before[i].Y+15, rect.Y, "rect %d", i)
		} else {
			assert.Equal(t, before[i], rect, "rect %d must not move", i)
		}
		assert.Equal(t, before[i].Width, rect.Width)
		assert.Equal(t, before[i].Height, rect.Height)
	}
	assert.Equal(t, []string{"r1", "r2", "r3"}, s.Selection, "selection survives the drag")
	assert.Nil(t, s.Offsets)
}

func TestDragUnselectedRect_ReplacesSelection(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	s = run(r, s, drag(Point{X: -10, Y: -10}, Point{X: 110, Y: 60})...)
	require.Equal(t, []string{"r1", "r2"}, s.Selection)

	s = run(r, s, drag(Point{X: 410, Y: 10}, Point{X: 420, Y: 110})...)
	assert.Equal(t, []string{"r5"}, s.Selection)
	assert.Equal(t, 410.0, s.Rects[4].X)
	assert.Equal(t, 100.0, s.Rects[4].Y)
	assert.Equal(t, 0.0, s.Rects[0].X)
	assert.Equal(t, 100.0, s.Rects[1].X)
}

func TestDelete_RemovesExactlySelected(t *testing.T) {
	for _, key := range []string{"Delete", "Backspace"} {
		t.Run(key, func(t *testing.T) {
			r := newTestReducer()
			s := fiveRects(r)
			original := s.Rects

			s.Selection = []string{original[3].ID, original[1].ID}
			s = r.Reduce(s, KeyDown{Key: key})

			assert.Equal(t, []Rect{original[0], original[2], original[4]}, s.Rects)
			assert.Empty(t, s.Selection)
		})
	}
}

func TestDelete_ThenIndicesStayValid(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	s.Selection = []string{"r2", "r4"}
	s = r.Reduce(s, KeyDown{Key: "Delete"})

	// Select the last remaining rectangle; its index shifted from 4 to 2.
	s = run(r, s, PointerDown{At: Point{X: 410, Y: 10}}, PointerUp{})
	assert.Equal(t, []string{"r5"}, s.Selection)
	assert.Equal(t, []int{2}, s.SelectedIndices())
}

func TestModeSwitch_SelectDiscardsInProgressDraw(t *testing.T) {
	r := newTestReducer()
	s := run(r, NewState(), PointerDown{At: Point{X: 0, Y: 0}}, PointerMove{At: Point{X: 50, Y: 50}})
	require.NotNil(t, s.Drawing)

	s = r.Reduce(s, SetMode{Mode: ModeSelect})
	assert.Equal(t, ModeSelect, s.Mode)
	assert.Nil(t, s.Drawing)
	assert.Equal(t, PhaseIdle, s.Phase)

	s = r.Reduce(s, PointerUp{})
	assert.Empty(t, s.Rects)
}

func TestModeSwitch_DrawClearsSelectionKeepsRects(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	s = run(r, s, drag(Point{X: -10, Y: -10}, Point{X: 500, Y: 60})...)
	require.Len(t, s.Selection, 5)

	s = r.Reduce(s, SetMode{Mode: ModeDraw})
	assert.Equal(t, ModeDraw, s.Mode)
	assert.Empty(t, s.Selection)
	assert.Len(t, s.Rects, 5)
}

func TestEscape_CancelsGesture(t *testing.T) {
	r := newTestReducer()
	s := run(r, NewState(), PointerDown{At: Point{X: 0, Y: 0}}, PointerMove{At: Point{X: 50, Y: 50}}, KeyDown{Key: "Escape"}, PointerUp{})
	assert.Empty(t, s.Rects)
	assert.Equal(t, PhaseIdle, s.Phase)
}

func TestPointerDownDuringGesture_StartsOver(t *testing.T) {
	r := newTestReducer()
	s := run(r, NewState(),
		PointerDown{At: Point{X: 0, Y: 0}},
		PointerMove{At: Point{X: 50, Y: 50}},
		PointerDown{At: Point{X: 100, Y: 100}},
		PointerMove{At: Point{X: 120, Y: 130}},
		PointerUp{},
	)
	require.Len(t, s.Rects, 1)
	assert.Equal(t, Rect{ID: "r1", X: 100, Y: 100, Width: 20, Height: 30}, s.Rects[0])
}

func TestReclassify_ChangesSelectedOnly(t *testing.T) {
	r := newTestReducer()
	s := fiveRects(r)
	s.Selection = []string{"r1", "r5"}
	s = r.Reduce(s, Reclassify{Class: 8})

	assert.Equal(t, legend.ClassID(8), s.Rects[0].Class)
	assert.Equal(t, "#FFEA00", s.Rects[0].Stroke())
	assert.Equal(t, legend.ClassID(1), s.Rects[1].Class)
	assert.Equal(t, legend.ClassID(8), s.Rects[4].Class)

	unchanged := r.Reduce(s, Reclassify{Class: 42})
	assert.Equal(t, s, unchanged)
}

func TestLoad_AssignsIDsAndNormalizes(t *testing.T) {
	r := newTestReducer()
	s := NewState()
	s.Selection = []string{"stale"}
	s = r.Reduce(s, Load{Rects: []Rect{
		{ID: "keep", X: 10, Y: 10, Width: 5, Height: 5},
		{ID: "keep", X: 10, Y: 10, Width: -5, Height: 5},
		{X: 0, Y: 0, Width: 1, Height: 1},
	}})

	require.Len(t, s.Rects, 3)
	assert.Equal(t, "keep", s.Rects[0].ID)
	assert.Equal(t, "r1", s.Rects[1].ID, "duplicate ids are replaced")
	assert.Equal(t, 5.0, s.Rects[1].X)
	assert.Equal(t, "r2", s.Rects[2].ID)
	assert.Empty(t, s.Selection)
}

func TestNewReducer_UsesTypeIDs(t *testing.T) {
	r := NewReducer()
	s := run(r, NewState(), drag(Point{X: 0, Y: 0}, Point{X: 10, Y: 10})...)
	require.Len(t, s.Rects, 1)
	assert.Contains(t, s.Rects[0].ID, "rect_")
}
