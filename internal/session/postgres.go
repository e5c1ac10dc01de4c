package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/defectscope/annotator/internal/db/dbgen"
)

// PostgresStore keeps host sessions in the host_sessions table.
type PostgresStore struct {
	queries *dbgen.Queries
}

func NewPostgresStore(queries *dbgen.Queries) *PostgresStore {
	return &PostgresStore{queries: queries}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (Context, error) {
	if userID == "" {
		return Context{}, ErrNoUser
	}
	row, err := s.queries.GetHostSession(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Context{UserID: userID}, nil
		}
		return Context{}, fmt.Errorf("get host session: %w", err)
	}
	return Context{UserID: row.UserID, UploadedImagePath: row.UploadedImagePath.String}, nil
}

func (s *PostgresStore) Save(ctx context.Context, sc Context) error {
	if sc.UserID == "" {
		return ErrNoUser
	}
	err := s.queries.UpsertHostSession(ctx, dbgen.UpsertHostSessionParams{
		UserID:            sc.UserID,
		UploadedImagePath: pgtype.Text{String: sc.UploadedImagePath, Valid: sc.UploadedImagePath != ""},
	})
	if err != nil {
		return fmt.Errorf("save host session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	if err := s.queries.DeleteHostSession(ctx, userID); err != nil {
		return fmt.Errorf("clear host session: %w", err)
	}
	return nil
}
