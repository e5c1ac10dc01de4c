package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectscope/annotator/internal/legend"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		in   string
		want Event
	}{
		{`{"type":"pointerdown","x":10,"y":20.5}`, PointerDown{At: Point{X: 10, Y: 20.5}}},
		{`{"type":"pointermove","x":-1,"y":3}`, PointerMove{At: Point{X: -1, Y: 3}}},
		{`{"type":"pointerup"}`, PointerUp{}},
		{`{"type":"keydown","key":"Backspace"}`, KeyDown{Key: "Backspace"}},
		{`{"type":"mode","mode":"select"}`, SetMode{Mode: ModeSelect}},
		{`{"type":"class","class":0}`, SetClass{Class: 0}},
		{`{"type":"reclassify","class":12}`, Reclassify{Class: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)

			data, err := EncodeEvent(ev)
			require.NoError(t, err)
			again, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, again)
		})
	}
}

func TestDecodeEvent_Errors(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"type":"wiggle"}`,
		`{"type":"keydown"}`,
		`{"type":"mode"}`,
		`{"type":"mode","mode":"erase"}`,
		`{"type":"class"}`,
	} {
		_, err := DecodeEvent([]byte(in))
		assert.Error(t, err, in)
	}

	_, err := DecodeEvent([]byte(`{"type":"class","class":13}`))
	assert.ErrorIs(t, err, legend.ErrUnknownClass)
}

func TestDecodeEvent_Load(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"load","rects":[{"x":1,"y":2,"width":3,"height":4,"class":5}]}`))
	require.NoError(t, err)
	assert.Equal(t, Load{Rects: []Rect{{X: 1, Y: 2, Width: 3, Height: 4, Class: 5}}}, ev)
}
