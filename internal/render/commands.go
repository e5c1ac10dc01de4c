// Package render turns editor state into something a screen or a report can
// show: draw commands for the browser canvas, and flattened rasters.
package render

import (
	"encoding/json"

	"github.com/defectscope/annotator/internal/annotation"
)

const (
	OpImage = "image"
	OpRect  = "rect"
)

// Overlay styles, matching what the canvas editor has always shown.
const (
	SelectedStroke      = "blue"
	SelectedStrokeWidth = 3.0
	RectStrokeWidth     = 2.0
	DrawingStroke       = "green"
	BandStroke          = "black"
	BandFill            = "rgba(0, 0, 255, 0.1)"
)

var dash = []float64{4, 4}

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string    `json:"op"`               // "image" or "rect"
	RectID      string    `json:"rectId,omitempty"` // For hit correlation
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	Dash        []float64 `json:"dash,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
}

// ImageInfo describes the background image. The canvas is sized to the
// image's natural dimensions.
type ImageInfo struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CompileDrawCommands generates the draw command buffer for one editor frame.
// Commands are in painter's order (back to front): image, stored rectangles,
// the rectangle being drawn, then the rubber band.
func CompileDrawCommands(img ImageInfo, s annotation.State) []DrawCommand {
	commands := make([]DrawCommand, 0, len(s.Rects)+3)

	if img.URL != "" {
		commands = append(commands, DrawCommand{
			Op:       OpImage,
			Width:    float64(img.Width),
			Height:   float64(img.Height),
			ImageURL: img.URL,
		})
	}

	for _, r := range s.Rects {
		cmd := DrawCommand{
			Op:          OpRect,
			RectID:      r.ID,
			X:           r.X,
			Y:           r.Y,
			Width:       r.Width,
			Height:      r.Height,
			Stroke:      r.Stroke(),
			StrokeWidth: RectStrokeWidth,
		}
		if s.IsSelected(r.ID) {
			cmd.Stroke = SelectedStroke
			cmd.StrokeWidth = SelectedStrokeWidth
			cmd.Dash = dash
		}
		commands = append(commands, cmd)
	}

	// In-progress shapes go out normalized so the canvas never sees
	// negative extents.
	if s.Drawing != nil {
		d := s.Drawing.Normalize()
		commands = append(commands, DrawCommand{
			Op:          OpRect,
			X:           d.X,
			Y:           d.Y,
			Width:       d.Width,
			Height:      d.Height,
			Stroke:      DrawingStroke,
			StrokeWidth: 1,
			Dash:        dash,
		})
	}

	if s.Band != nil {
		b := s.Band.Normalize()
		commands = append(commands, DrawCommand{
			Op:          OpRect,
			X:           b.X,
			Y:           b.Y,
			Width:       b.Width,
			Height:      b.Height,
			Stroke:      BandStroke,
			StrokeWidth: 1,
			Dash:        dash,
			Fill:        BandFill,
		})
	}

	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
