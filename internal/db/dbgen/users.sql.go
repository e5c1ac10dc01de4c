package dbgen

import (
	"context"
)

const userColumns = `id, email, password, full_name, status, images, reports, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Password,
		&i.FullName,
		&i.Status,
		&i.Images,
		&i.Reports,
		&i.CreatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, email, password, full_name, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Status   string `json:"status"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.Password,
		arg.FullName,
		arg.Status,
	)
	return scanUser(row)
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users ORDER BY created_at`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = $1`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const appendUserImage = `-- name: AppendUserImage :one
UPDATE users SET images = array_append(images, $2)
WHERE id = $1
RETURNING ` + userColumns

type AppendUserImageParams struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

func (q *Queries) AppendUserImage(ctx context.Context, arg AppendUserImageParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, appendUserImage, arg.ID, arg.Image))
}

const setUserFiles = `-- name: SetUserFiles :one
UPDATE users SET images = $2, reports = $3
WHERE id = $1
RETURNING ` + userColumns

type SetUserFilesParams struct {
	ID      string   `json:"id"`
	Images  []string `json:"images"`
	Reports []string `json:"reports"`
}

func (q *Queries) SetUserFiles(ctx context.Context, arg SetUserFilesParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, setUserFiles, arg.ID, arg.Images, arg.Reports))
}
