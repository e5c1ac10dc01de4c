package asset

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/defectscope/annotator/internal/auth"
	"github.com/defectscope/annotator/internal/session"
)

const maxUploadSize = 100 << 20 // 100MB

// ImageRecorder attaches a stored image to a user's account.
type ImageRecorder interface {
	AddImage(ctx context.Context, userID, name string) error
}

// Handler serves image upload and retrieval endpoints.
type Handler struct {
	store    *Store
	users    ImageRecorder
	sessions session.Store

	// OnUpload runs after an upload becomes the user's current image.
	OnUpload func(userID string)
}

func NewHandler(store *Store, users ImageRecorder, sessions session.Store) *Handler {
	return &Handler{store: store, users: users, sessions: sessions}
}

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	Stored
	URL string `json:"url"`
}

// Upload handles POST /api/images (multipart form with "file" field). The
// image becomes the user's current editor image.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 100MB)"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/png") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrNotPNG.Error()})
		return
	}

	stored, err := h.store.Save(file, header.Filename)
	if err != nil {
		if errors.Is(err, ErrNotPNG) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrNotPNG.Error()})
			return
		}
		slog.Error("save image", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	if err := h.users.AddImage(r.Context(), userID, stored.Name); err != nil {
		slog.Error("record image", "error", err, "user", userID)
		h.store.Delete(stored.Name)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if err := h.sessions.Save(r.Context(), session.Context{UserID: userID, UploadedImagePath: stored.Name}); err != nil {
		slog.Error("save host session", "error", err, "user", userID)
	} else if h.OnUpload != nil {
		h.OnUpload(userID)
	}

	slog.Info("image uploaded", "user", userID, "image", stored.Name, "width", stored.Width, "height", stored.Height)
	writeJSON(w, http.StatusCreated, UploadResponse{Stored: *stored, URL: URL(stored.Name)})
}

// URL is the public path of a stored image.
func URL(name string) string {
	return "/images/" + name
}

// Serve returns an http.Handler that serves stored images with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.store.Dir()))
	return http.StripPrefix("/images/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Image names are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
