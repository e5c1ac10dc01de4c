package dbgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type HostSession struct {
	UserID            string             `json:"user_id"`
	UploadedImagePath pgtype.Text        `json:"uploaded_image_path"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

type User struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	Password  string             `json:"password"`
	FullName  string             `json:"full_name"`
	Status    string             `json:"status"`
	Images    []string           `json:"images"`
	Reports   []string           `json:"reports"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
