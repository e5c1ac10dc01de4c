package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/legend"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestFlatten_DrawsClassColouredOutline(t *testing.T) {
	base := whiteImage(100, 100)
	rects := []annotation.Rect{{ID: "a", X: 20, Y: 20, Width: 40, Height: 40, Class: 3}}

	out, err := Flatten(base, rects, DefaultFlattenOptions())
	require.NoError(t, err)

	orange := color.RGBA{R: 0xff, G: 0x95, B: 0x00, A: 0xff}
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	assert.Equal(t, orange, rgbaAt(out, 20, 40), "left edge")
	assert.Equal(t, orange, rgbaAt(out, 19, 40), "stroke is centred on the edge")
	assert.Equal(t, orange, rgbaAt(out, 60, 40), "right edge")
	assert.Equal(t, orange, rgbaAt(out, 40, 20), "top edge")
	assert.Equal(t, orange, rgbaAt(out, 40, 60), "bottom edge")
	assert.Equal(t, white, rgbaAt(out, 40, 40), "interior untouched")
	assert.Equal(t, white, rgbaAt(out, 5, 5), "outside untouched")

	// Base image is not modified.
	assert.Equal(t, white, base.RGBAAt(20, 40))
}

func TestFlatten_NegativeExtentsAndClipping(t *testing.T) {
	base := whiteImage(50, 50)
	rects := []annotation.Rect{{ID: "a", X: 60, Y: 60, Width: -30, Height: -30, Class: 0}}

	out, err := Flatten(base, rects, DefaultFlattenOptions())
	require.NoError(t, err)

	teal, _ := legend.RGBA("#2EC3C2")
	assert.Equal(t, teal, rgbaAt(out, 30, 40), "left edge of normalized box")
	assert.Equal(t, 50, out.Bounds().Dx())
}

func TestFlatten_UnknownClass(t *testing.T) {
	_, err := Flatten(whiteImage(10, 10), []annotation.Rect{{ID: "a", Width: 5, Height: 5, Class: 77}}, DefaultFlattenOptions())
	assert.ErrorIs(t, err, legend.ErrUnknownClass)
}

func TestFlatten_NilBase(t *testing.T) {
	_, err := Flatten(nil, nil, DefaultFlattenOptions())
	assert.Error(t, err)
}

func TestFlatten_OffsetBounds(t *testing.T) {
	// Sub-images keep their parent's coordinates; the flattened copy starts at 0,0.
	parent := whiteImage(100, 100)
	sub := parent.SubImage(image.Rect(50, 50, 100, 100))

	out, err := Flatten(sub, nil, DefaultFlattenOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 50), out.Bounds())
}

func TestFlatten_Labels(t *testing.T) {
	base := whiteImage(200, 200)
	rects := []annotation.Rect{{ID: "a", X: 50, Y: 50, Width: 80, Height: 80, Class: 5}}

	plain, err := Flatten(base, rects, DefaultFlattenOptions())
	require.NoError(t, err)
	labelled, err := Flatten(base, rects, FlattenOptions{StrokeWidth: 2, Labels: true})
	require.NoError(t, err)

	assert.NotEqual(t, plain.Pix, labelled.Pix, "caption pixels differ")
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(whiteImage(8, 8))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}
