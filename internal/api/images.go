package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/service"
	"github.com/digkill/magicpic/internal/storage"
)

// ImageSource reads stored objects for the proxy.
type ImageSource interface {
	Get(ctx context.Context, key string) (*storage.Object, error)
}

// handleImage streams a stored object. Old clients still request legacy
// thumbnail paths, so several candidate keys are tried in order.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimLeft(chi.URLParam(r, "*"), "/")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusNotFound, service.CodeNotFound, "Image not found")
		return
	}

	var (
		obj     *storage.Object
		found   string
		lastErr error
	)
	for _, candidate := range storage.ThumbnailCandidates(key) {
		o, err := s.deps.Images.Get(r.Context(), candidate)
		if err == nil {
			obj, found = o, candidate
			break
		}
		lastErr = err
		if !errors.Is(err, storage.ErrNotFound) {
			break
		}
	}

	if obj == nil {
		switch {
		case errors.Is(lastErr, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, service.CodeNotFound, "Image not found")
		case errors.Is(lastErr, storage.ErrAccessDenied):
			writeError(w, http.StatusForbidden, service.CodeUnauthorized, "Access denied")
		default:
			s.log.Error("image proxy", zap.String("key", key), zap.Error(lastErr))
			writeError(w, http.StatusInternalServerError, service.CodeInternal, "Failed to load image")
		}
		return
	}

	contentType := obj.ContentType
	if contentType == "" || contentType == "application/octet-stream" || contentType == "binary/octet-stream" {
		contentType = storage.ContentTypeFromKey(found)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Body)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Body)
}
