// Package report submits flattened annotation images to the report service.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/legend"
)

// ErrMissingUser is returned when a successful reply carries no user record.
var ErrMissingUser = errors.New("report response has no user")

// WireRect is a rectangle in the two-corner form the report service expects.
type WireRect struct {
	annotation.Box
	ClassName legend.ClassID `json:"className"`
}

// Submission is everything the report service needs to produce a report.
type Submission struct {
	Image    []byte
	Filename string
	UserID   string
	Rects    []annotation.Rect
}

// Result is the user record returned after a successful submission.
type Result struct {
	UserID  string   `json:"id"`
	Images  []string `json:"images"`
	Reports []string `json:"reports"`
}

// ServiceError is a failure reported by the report service itself.
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("report service: %d: %s", e.Status, e.Detail)
}

// Client posts submissions to the report service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ToWire converts rectangles to two-corner form, preserving order.
func ToWire(rects []annotation.Rect) []WireRect {
	out := make([]WireRect, len(rects))
	for i, r := range rects {
		out[i] = WireRect{Box: r.Box(), ClassName: r.Class}
	}
	return out
}

// Submit uploads the image and its rectangles and returns the updated user.
func (c *Client) Submit(ctx context.Context, sub Submission) (*Result, error) {
	body, contentType, err := encodeForm(sub)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/replace-image", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeServiceError(resp)
	}

	var payload struct {
		User *Result `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode report response: %w", err)
	}
	if payload.User == nil {
		return nil, ErrMissingUser
	}
	return payload.User, nil
}

func encodeForm(sub Submission) (io.Reader, string, error) {
	rects, err := json.Marshal(ToWire(sub.Rects))
	if err != nil {
		return nil, "", fmt.Errorf("encode rects: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", sub.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(sub.Image); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	fields := []struct{ name, value string }{
		{"userId", sub.UserID},
		{"filename", sub.Filename},
		{"rects", string(rects)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func decodeServiceError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Detail == "" {
		payload.Detail = http.StatusText(resp.StatusCode)
	}
	return &ServiceError{Status: resp.StatusCode, Detail: payload.Detail}
}
