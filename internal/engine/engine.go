// Package engine runs the annotation reducer inside the browser. It owns the
// editor state between frames and answers render queries, so the page only
// forwards input and draws what it is told.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/defects"
	"github.com/defectscope/annotator/internal/render"
	"github.com/defectscope/annotator/internal/report"
)

type Engine struct {
	reducer annotation.Reducer
	state   annotation.State
	image   render.ImageInfo

	// Dirty flag - set when the state changed since the last render
	dirty bool
}

// NewEngine creates an engine in draw mode with no rectangles.
func NewEngine(reducer annotation.Reducer) *Engine {
	return &Engine{
		reducer: reducer,
		state:   annotation.NewState(),
		dirty:   true,
	}
}

// --- Commands (frontend → engine) ---

// SetImage records the background image once its natural size is known.
func (e *Engine) SetImage(url string, width, height int) {
	e.image = render.ImageInfo{URL: url, Width: width, Height: height}
	e.dirty = true
}

// LoadDefects replaces the rectangles with a detection-service response.
func (e *Engine) LoadDefects(jsonData string) error {
	res, err := defects.Parse(strings.NewReader(jsonData))
	if err != nil {
		return err
	}
	rects, err := res.Rects()
	if err != nil {
		return err
	}
	e.apply(annotation.Load{Rects: rects})
	return nil
}

// Dispatch applies one JSON-encoded editor event.
func (e *Engine) Dispatch(eventJSON string) error {
	ev, err := annotation.DecodeEvent([]byte(eventJSON))
	if err != nil {
		return err
	}
	e.apply(ev)
	return nil
}

func (e *Engine) apply(ev annotation.Event) {
	e.state = e.reducer.Reduce(e.state, ev)
	e.dirty = true
}

// --- Queries (frontend ← engine) ---

// Render returns the draw commands for the current frame as JSON.
func (e *Engine) Render() (string, error) {
	e.dirty = false
	return render.DrawCommandsToJSON(render.CompileDrawCommands(e.image, e.state))
}

// Dirty reports whether the state changed since the last Render.
func (e *Engine) Dirty() bool {
	return e.dirty
}

// StateJSON returns the serializable part of the editor state.
func (e *Engine) StateJSON() (string, error) {
	data, err := json.Marshal(e.state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// RectsJSON returns the rectangles in the two-corner form used for report
// submission.
func (e *Engine) RectsJSON() (string, error) {
	data, err := json.Marshal(report.ToWire(e.state.Rects))
	if err != nil {
		return "", fmt.Errorf("marshal rects: %w", err)
	}
	return string(data), nil
}

func (e *Engine) State() annotation.State {
	return e.state.Clone()
}
