package account

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/defectscope/annotator/internal/auth"
	"github.com/defectscope/annotator/internal/db/dbgen"
	"github.com/defectscope/annotator/internal/report"
	"github.com/defectscope/annotator/internal/session"
)

var ErrNotFound = errors.New("user not found")

// Queries is the subset of dbgen.Queries used for account management.
type Queries interface {
	ListUsers(ctx context.Context) ([]dbgen.User, error)
	GetUserByID(ctx context.Context, id string) (dbgen.User, error)
	DeleteUser(ctx context.Context, id string) (int64, error)
	AppendUserImage(ctx context.Context, arg dbgen.AppendUserImageParams) (dbgen.User, error)
	SetUserFiles(ctx context.Context, arg dbgen.SetUserFilesParams) (dbgen.User, error)
}

type Service struct {
	queries         Queries
	sessions        session.Store
	reportPublicURL string
}

func NewService(queries Queries, sessions session.Store, reportPublicURL string) *Service {
	return &Service{
		queries:         queries,
		sessions:        sessions,
		reportPublicURL: strings.TrimRight(reportPublicURL, "/"),
	}
}

// ReportLink is a generated report the user can download.
type ReportLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Service) List(ctx context.Context) ([]auth.User, error) {
	rows, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]auth.User, len(rows))
	for i, u := range rows {
		users[i] = auth.FromDB(u)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*auth.User, error) {
	row, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u := auth.FromDB(row)
	return &u, nil
}

// Delete removes the account and its host session.
func (s *Service) Delete(ctx context.Context, userID string) error {
	n, err := s.queries.DeleteUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear host session: %w", err)
	}
	return nil
}

// AddImage appends an uploaded image to the user's images.
func (s *Service) AddImage(ctx context.Context, userID, name string) error {
	_, err := s.queries.AppendUserImage(ctx, dbgen.AppendUserImageParams{ID: userID, Image: name})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("append image: %w", err)
	}
	return nil
}

// RecordReport stores the image and report lists returned by the report
// service after a submission.
func (s *Service) RecordReport(ctx context.Context, userID string, res *report.Result) error {
	_, err := s.queries.SetUserFiles(ctx, dbgen.SetUserFilesParams{
		ID:      userID,
		Images:  nonNil(res.Images),
		Reports: nonNil(res.Reports),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("set user files: %w", err)
	}
	return nil
}

// Reports lists the user's reports, newest first.
func (s *Service) Reports(ctx context.Context, userID string) ([]ReportLink, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	links := make([]ReportLink, 0, len(u.Reports))
	for i := len(u.Reports) - 1; i >= 0; i-- {
		name := u.Reports[i]
		links = append(links, ReportLink{Name: name, URL: s.reportPublicURL + "/reports/" + url.PathEscape(name)})
	}
	return links, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
