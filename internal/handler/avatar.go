package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stacksignal/lms-accounts/internal/avatar"
	"github.com/stacksignal/lms-accounts/internal/domain"
)

// AvatarHandler serves avatar bytes when avatars are stored in the
// database. With the S3 backend the avatar URL points at the bucket and
// this handler is not mounted.
type AvatarHandler struct {
	blobs *avatar.BlobStore
}

// NewAvatarHandler creates a new AvatarHandler.
func NewAvatarHandler(blobs *avatar.BlobStore) *AvatarHandler {
	return &AvatarHandler{blobs: blobs}
}

// HandleServe serves avatar bytes with the stored Content-Type.
// GET /api/v1/users/avatar/{key}
func (h *AvatarHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.blobs.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		slog.Error("serve avatar", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
