package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectscope/annotator/internal/annotation"
)

func TestToWire(t *testing.T) {
	rects := []annotation.Rect{
		{ID: "a", X: 10, Y: 20, Width: 30, Height: 40, Class: 2},
		{ID: "b", X: 50, Y: 50, Width: -10, Height: -20, Class: 7},
	}

	wire := ToWire(rects)
	require.Len(t, wire, 2)
	assert.Equal(t, annotation.Box{X1: 10, Y1: 20, X2: 40, Y2: 60}, wire[0].Box)
	assert.Equal(t, annotation.Box{X1: 40, Y1: 30, X2: 50, Y2: 50}, wire[1].Box)

	data, err := json.Marshal(wire[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"x1":10,"y1":20,"x2":40,"y2":60,"className":2}`, string(data))
}

func TestSubmit_Success(t *testing.T) {
	image := []byte("\x89PNG fake image bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/replace-image", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		assert.Equal(t, "user_123", r.FormValue("userId"))
		assert.Equal(t, "part.png", r.FormValue("filename"))
		assert.JSONEq(t, `[{"x1":1,"y1":2,"x2":4,"y2":6,"className":3}]`, r.FormValue("rects"))

		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer f.Close()
			assert.Equal(t, "part.png", hdr.Filename)
			got, _ := io.ReadAll(f)
			assert.Equal(t, image, got)
		}

		w.Write([]byte(`{"user":{"id":"user_123","images":["part.png"],"reports":["part.pdf"]}}`))
	}))
	defer server.Close()

	res, err := New(server.URL, time.Second).Submit(context.Background(), Submission{
		Image:    image,
		Filename: "part.png",
		UserID:   "user_123",
		Rects:    []annotation.Rect{{ID: "r1", X: 1, Y: 2, Width: 3, Height: 4, Class: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"part.png"}, res.Images)
	assert.Equal(t, []string{"part.pdf"}, res.Reports)
}

func TestSubmit_ReplyWithoutUser(t *testing.T) {
	for name, body := range map[string]string{
		"empty object": `{}`,
		"null user":    `{"user":null}`,
		"flat record":  `{"images":["a.png"],"reports":["a.pdf"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			res, err := New(server.URL, time.Second).Submit(context.Background(), Submission{Filename: "x.png"})
			assert.ErrorIs(t, err, ErrMissingUser)
			assert.Nil(t, res)
		})
	}
}

func TestSubmit_ServiceErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"image not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Submit(context.Background(), Submission{Filename: "x.png"})

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.Status)
	assert.Equal(t, "image not found", svcErr.Detail)
}

func TestSubmit_ServiceErrorWithoutDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Submit(context.Background(), Submission{Filename: "x.png"})

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "Internal Server Error", svcErr.Detail)
}

func TestSubmit_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url, time.Second).Submit(context.Background(), Submission{Filename: "x.png"})
	require.Error(t, err)

	var svcErr *ServiceError
	assert.False(t, errors.As(err, &svcErr))
}
