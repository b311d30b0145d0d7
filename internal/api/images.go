package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mmynk/mamachef/internal/api/respond"
	"github.com/mmynk/mamachef/internal/middleware"
	"github.com/mmynk/mamachef/internal/storage"
)

// imageHandler serves the photo of a saved meal to the session that owns it.
type imageHandler struct {
	store storage.Store
}

func (h *imageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	digest := mux.Vars(r)["digest"]
	sessionID := middleware.GetSessionID(r.Context())

	img, err := h.store.GetImage(r.Context(), sessionID, digest)
	if errors.Is(err, storage.ErrNotFound) {
		respond.WriteNotFound(w, "image not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load image", "session_id", sessionID, "digest", digest, "error", err)
		respond.WriteErrorDetails(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Header().Set("ETag", `"`+img.Digest+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
