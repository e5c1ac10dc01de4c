// Package defects talks to the external defect-detection service.
package defects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/legend"
)

var ErrMalformedResponse = errors.New("malformed defect response")

// Client fetches detection results for uploaded images.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the detection service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Result is the detection service's answer: boxes as two opposite corners
// (x1, y1, x2, y2) and a parallel list of class ids.
type Result struct {
	Boxes   [][]float64
	Classes []legend.ClassID
}

type defectsResponse struct {
	User *struct {
		Defects *struct {
			Instances *struct {
				PredBoxes   [][]float64      `json:"pred_boxes"`
				PredClasses []legend.ClassID `json:"pred_classes"`
			} `json:"instances"`
		} `json:"defects"`
	} `json:"user"`
}

// Defects requests the detections for the named image.
func (c *Client) Defects(ctx context.Context, image string) (*Result, error) {
	u := c.baseURL + "/defects?" + url.Values{"image": {image}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch defects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch defects: status %d", resp.StatusCode)
	}

	return Parse(resp.Body)
}

// Parse decodes a detection response body.
func Parse(r io.Reader) (*Result, error) {
	var body defectsResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode defects: %w", err)
	}
	if body.User == nil || body.User.Defects == nil || body.User.Defects.Instances == nil {
		return nil, fmt.Errorf("%w: missing instances", ErrMalformedResponse)
	}

	inst := body.User.Defects.Instances
	return &Result{Boxes: inst.PredBoxes, Classes: inst.PredClasses}, nil
}

// Rects maps the result onto annotation rectangles in detection order.
// Every class must be present in the legend.
func (r *Result) Rects() ([]annotation.Rect, error) {
	if len(r.Boxes) != len(r.Classes) {
		return nil, fmt.Errorf("%w: %d boxes but %d classes", ErrMalformedResponse, len(r.Boxes), len(r.Classes))
	}

	rects := make([]annotation.Rect, 0, len(r.Boxes))
	for i, b := range r.Boxes {
		if len(b) != 4 {
			return nil, fmt.Errorf("%w: box %d has %d values", ErrMalformedResponse, i, len(b))
		}
		if !legend.Valid(r.Classes[i]) {
			return nil, fmt.Errorf("box %d: %w: %d", i, legend.ErrUnknownClass, r.Classes[i])
		}
		box := annotation.Box{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}
		rects = append(rects, annotation.FromBox(box, r.Classes[i]))
	}
	return rects, nil
}

// CheckHealth reports whether the detection service is reachable.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detection service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Load fetches the detections for image as annotation rectangles.
func (c *Client) Load(ctx context.Context, image string) ([]annotation.Rect, error) {
	res, err := c.Defects(ctx, image)
	if err != nil {
		return nil, err
	}
	return res.Rects()
}
