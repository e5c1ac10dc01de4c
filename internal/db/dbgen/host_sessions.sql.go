package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getHostSession = `-- name: GetHostSession :one
SELECT user_id, uploaded_image_path, updated_at FROM host_sessions
WHERE user_id = $1`

func (q *Queries) GetHostSession(ctx context.Context, userID string) (HostSession, error) {
	row := q.db.QueryRow(ctx, getHostSession, userID)
	var i HostSession
	err := row.Scan(&i.UserID, &i.UploadedImagePath, &i.UpdatedAt)
	return i, err
}

const upsertHostSession = `-- name: UpsertHostSession :exec
INSERT INTO host_sessions (user_id, uploaded_image_path, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE
SET uploaded_image_path = EXCLUDED.uploaded_image_path, updated_at = now()`

type UpsertHostSessionParams struct {
	UserID            string      `json:"user_id"`
	UploadedImagePath pgtype.Text `json:"uploaded_image_path"`
}

func (q *Queries) UpsertHostSession(ctx context.Context, arg UpsertHostSessionParams) error {
	_, err := q.db.Exec(ctx, upsertHostSession, arg.UserID, arg.UploadedImagePath)
	return err
}

const deleteHostSession = `-- name: DeleteHostSession :exec
DELETE FROM host_sessions WHERE user_id = $1`

func (q *Queries) DeleteHostSession(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, deleteHostSession, userID)
	return err
}
