// Package editor binds the annotation reducer to one image and to the
// detection and report services.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/render"
	"github.com/defectscope/annotator/internal/report"
	"github.com/defectscope/annotator/internal/session"
)

// DefaultMinReportBytes is the smallest flattened image accepted for a report.
const DefaultMinReportBytes = 1000

var (
	ErrReportInFlight = errors.New("report generation in progress")
	ErrSessionClosed  = errors.New("editor session closed")
	ErrCorruptCapture = errors.New("flattened image is too small")
	ErrStaleResult    = errors.New("result arrived for a superseded request")
)

// DefectSource returns the initial rectangles for a stored image.
type DefectSource interface {
	Load(ctx context.Context, image string) ([]annotation.Rect, error)
}

// ReportSubmitter delivers a flattened image and its rectangles.
type ReportSubmitter interface {
	Submit(ctx context.Context, sub report.Submission) (*report.Result, error)
}

// ReportHook is called after a successful submission, before the session's
// host context is reset.
type ReportHook func(ctx context.Context, userID string, res *report.Result) error

type Options struct {
	UserID    string
	ImageName string
	ImageURL  string
	Image     image.Image

	Defects  DefectSource
	Reports  ReportSubmitter
	Sessions session.Store
	OnReport ReportHook

	Reducer        annotation.Reducer
	Flatten        render.FlattenOptions
	MinReportBytes int
	Logger         *slog.Logger
}

// Session is one user's editor on one image. All methods are safe for
// concurrent use.
type Session struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	state      annotation.State
	generation uint64
	inFlight   bool
	closed     bool
}

func New(opts Options) *Session {
	if opts.Reducer.NewID == nil {
		opts.Reducer = annotation.NewReducer()
	}
	if opts.Flatten.StrokeWidth <= 0 {
		opts.Flatten.StrokeWidth = render.DefaultFlattenOptions().StrokeWidth
	}
	if opts.MinReportBytes <= 0 {
		opts.MinReportBytes = DefaultMinReportBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		opts:   opts,
		logger: logger.With("user", opts.UserID, "image", opts.ImageName),
		state:  annotation.NewState(),
	}
}

func (s *Session) UserID() string    { return s.opts.UserID }
func (s *Session) ImageName() string { return s.opts.ImageName }

// Load replaces the rectangles with the detection service's results. A
// failing service leaves the editor empty rather than failing the load. If
// another Load started meanwhile, or the session closed, the result is
// dropped and ErrStaleResult or ErrSessionClosed is returned.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrReportInFlight
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	var rects []annotation.Rect
	if s.opts.Defects != nil {
		var err error
		rects, err = s.opts.Defects.Load(ctx, s.opts.ImageName)
		if err != nil {
			s.logger.Warn("load defects failed, starting empty", "error", err)
			rects = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if gen != s.generation {
		s.logger.Debug("dropping stale defect load", "generation", gen)
		return ErrStaleResult
	}
	s.state = s.opts.Reducer.Reduce(s.state, annotation.Load{Rects: rects})
	s.logger.Info("defects loaded", "count", len(s.state.Rects))
	return nil
}

// Dispatch feeds one event through the reducer and returns the new state.
// Edits are refused while a report is being generated.
func (s *Session) Dispatch(ev annotation.Event) (annotation.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return annotation.State{}, ErrSessionClosed
	}
	if s.inFlight {
		return s.state.Clone(), ErrReportInFlight
	}
	s.state = s.opts.Reducer.Reduce(s.state, ev)
	return s.state.Clone(), nil
}

// State returns a copy of the current editor state.
func (s *Session) State() annotation.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Processing reports whether a report submission is outstanding.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the session down. Outstanding loads and submissions will not
// touch it once they return.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.generation++
	s.mu.Unlock()
}

// View is what a client needs to draw one frame.
type View struct {
	Image      render.ImageInfo     `json:"image"`
	Commands   []render.DrawCommand `json:"commands"`
	Mode       annotation.Mode      `json:"mode"`
	Phase      annotation.Phase     `json:"phase"`
	Class      int                  `json:"class"`
	Selection  []string             `json:"selection"`
	RectCount  int                  `json:"rectCount"`
	Processing bool                 `json:"processing"`
}

func (s *Session) View() View {
	s.mu.Lock()
	st := s.state.Clone()
	processing := s.inFlight
	s.mu.Unlock()

	img := s.imageInfo()
	sel := st.Selection
	if sel == nil {
		sel = []string{}
	}
	return View{
		Image:      img,
		Commands:   render.CompileDrawCommands(img, st),
		Mode:       st.Mode,
		Phase:      st.Phase,
		Class:      int(st.Class),
		Selection:  sel,
		RectCount:  len(st.Rects),
		Processing: processing,
	}
}

func (s *Session) imageInfo() render.ImageInfo {
	info := render.ImageInfo{URL: s.opts.ImageURL}
	if s.opts.Image != nil {
		b := s.opts.Image.Bounds()
		info.Width, info.Height = b.Dx(), b.Dy()
	}
	return info
}

// Flatten renders the image with every rectangle drawn in its class colour
// and returns it PNG-encoded. The selection is not drawn.
func (s *Session) Flatten() ([]byte, error) {
	rects := s.State().Rects
	return s.flatten(rects)
}

func (s *Session) flatten(rects []annotation.Rect) ([]byte, error) {
	img, err := render.Flatten(s.opts.Image, rects, s.opts.Flatten)
	if err != nil {
		return nil, err
	}
	return render.EncodePNG(img)
}

// GenerateReport flattens and submits the current annotation. Only one
// submission runs at a time. On success the session is closed and the host
// session's image path is cleared; on failure the session is left as it was
// so the user can retry.
func (s *Session) GenerateReport(ctx context.Context) (*report.Result, error) {
	return s.GenerateReportNotify(ctx, nil)
}

// GenerateReportNotify is GenerateReport with a callback that runs once the
// submission has been accepted and the session is marked as processing. It
// does not run when the request is rejected.
func (s *Session) GenerateReportNotify(ctx context.Context, accepted func()) (*report.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrReportInFlight
	}
	if s.opts.Reports == nil {
		s.mu.Unlock()
		return nil, errors.New("no report service configured")
	}
	s.inFlight = true
	gen := s.generation
	rects := s.state.Clone().Rects
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()
	if accepted != nil {
		accepted()
	}

	data, err := s.flatten(rects)
	if err != nil {
		return nil, fmt.Errorf("flatten image: %w", err)
	}
	if len(data) < s.opts.MinReportBytes {
		s.logger.Warn("flattened image below threshold", "bytes", len(data), "min", s.opts.MinReportBytes)
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptCapture, len(data))
	}

	res, err := s.opts.Reports.Submit(ctx, report.Submission{
		Image:    data,
		Filename: s.opts.ImageName,
		UserID:   s.opts.UserID,
		Rects:    rects,
	})
	if err != nil {
		s.logger.Error("submit report", "error", err)
		return nil, fmt.Errorf("submit report: %w", err)
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Info("report finished after session ended", "reports", len(res.Reports))
		return res, ErrStaleResult
	}
	s.closed = true
	s.mu.Unlock()

	if s.opts.OnReport != nil {
		if err := s.opts.OnReport(ctx, s.opts.UserID, res); err != nil {
			s.logger.Error("record report result", "error", err)
		}
	}
	if s.opts.Sessions != nil {
		if err := s.opts.Sessions.Save(ctx, session.Context{UserID: s.opts.UserID}); err != nil {
			s.logger.Error("reset host session", "error", err)
		}
	}

	s.logger.Info("report generated", "rects", len(rects), "bytes", len(data))
	return res, nil
}
