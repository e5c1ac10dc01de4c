// Package export lets a user download the current annotation as an image
// without submitting it for a report.
package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/defectscope/annotator/internal/auth"
	"github.com/defectscope/annotator/internal/editor"
)

// EditorFinder returns a user's live editor session.
type EditorFinder interface {
	Editor(userID string) (*editor.Session, bool)
}

type Handler struct {
	editors EditorFinder
}

func NewHandler(editors EditorFinder) *Handler {
	return &Handler{editors: editors}
}

// ExportPNG handles GET /api/editor/export.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	ed, ok := h.editors.Editor(userID)
	if !ok {
		http.Error(w, "no image open for editing", http.StatusNotFound)
		return
	}

	data, err := ed.Flatten()
	if err != nil {
		slog.Error("flatten for export", "error", err, "user", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(ed.ImageName())))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)

	slog.Info("export complete", "user", userID, "size", len(data))
}

func exportName(imageName string) string {
	base := strings.TrimSuffix(imageName, filepath.Ext(imageName))
	// Sanitize filename
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	if base == "" {
		base = "annotation"
	}
	return base + "-annotated.png"
}
