package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/defectscope/annotator/internal/auth"
	"github.com/defectscope/annotator/internal/session"
	"github.com/defectscope/annotator/internal/typeid"
)

type Handler struct {
	service  *Service
	sessions session.Store
	// ImageURL maps a stored image name to its public path.
	ImageURL func(name string) string
}

func NewHandler(service *Service, sessions session.Store) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		ImageURL: func(name string) string { return "/images/" + name },
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list users failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := typeid.Validate(userID, typeid.PrefixUser); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}
	slog.Info("account deleted", "user", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.Reports(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

type sessionResponse struct {
	session.Context
	ImageURL string `json:"imageUrl,omitempty"`
}

// GetSession returns the host session so a client can resume its editor.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sc, err := h.sessions.Load(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		slog.Error("load host session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	resp := sessionResponse{Context: sc}
	if sc.HasImage() {
		resp.ImageURL = h.ImageURL(sc.UploadedImagePath)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearSession forgets the user's current image, e.g. on logout.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), auth.UserIDFromContext(r.Context())); err != nil {
		slog.Error("clear host session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
