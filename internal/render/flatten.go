package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/legend"
)

// FlattenOptions controls report rasterization.
type FlattenOptions struct {
	// StrokeWidth of every rectangle outline, in pixels.
	StrokeWidth int
	// Labels draws each rectangle's class name above its top-left corner.
	Labels bool
}

// DefaultFlattenOptions matches the on-screen look of unselected rectangles.
func DefaultFlattenOptions() FlattenOptions {
	return FlattenOptions{StrokeWidth: int(RectStrokeWidth)}
}

// Flatten draws every rectangle over a copy of base. Selection highlighting
// is never part of a flattened image; rectangles are drawn in their class
// colour. An unknown class is an error.
func Flatten(base image.Image, rects []annotation.Rect, opts FlattenOptions) (*image.RGBA, error) {
	if base == nil {
		return nil, fmt.Errorf("flatten: no base image")
	}
	if opts.StrokeWidth <= 0 {
		opts.StrokeWidth = int(RectStrokeWidth)
	}

	bounds := base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), base, bounds.Min, xdraw.Src)

	for _, r := range rects {
		class, err := legend.Lookup(r.Class)
		if err != nil {
			return nil, fmt.Errorf("flatten rect %s: %w", r.ID, err)
		}
		c, err := legend.RGBA(class.Color)
		if err != nil {
			return nil, fmt.Errorf("flatten rect %s: %w", r.ID, err)
		}

		strokeRect(dst, r.Normalize(), opts.StrokeWidth, c)
		if opts.Labels {
			drawLabel(dst, r.Normalize(), class.Name, c)
		}
	}

	return dst, nil
}

// strokeRect outlines r with a stroke centred on its edges, the way a
// canvas strokes a rectangle path.
func strokeRect(dst *image.RGBA, r annotation.Rect, width int, c color.RGBA) {
	half := float64(width) / 2
	x0 := int(math.Round(r.X - half))
	y0 := int(math.Round(r.Y - half))
	x1 := int(math.Round(r.X + r.Width + half))
	y1 := int(math.Round(r.Y + r.Height + half))

	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(x0, y0, x1, y0+width), // top
		image.Rect(x0, y1-width, x1, y1), // bottom
		image.Rect(x0, y0, x0+width, y1), // left
		image.Rect(x1-width, y0, x1, y1), // right
	}
	for _, e := range edges {
		e = e.Intersect(dst.Bounds())
		if e.Empty() {
			continue
		}
		xdraw.Draw(dst, e, src, image.Point{}, xdraw.Over)
	}
}

func drawLabel(dst *image.RGBA, r annotation.Rect, text string, c color.RGBA) {
	face := basicfont.Face7x13
	x := int(math.Round(r.X))
	y := int(math.Round(r.Y)) - 4
	if y-face.Ascent < 0 {
		// No room above the box; put the caption inside it.
		y = int(math.Round(r.Y)) + face.Ascent + 2
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
