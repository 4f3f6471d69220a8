package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-signup-presence/internal/domain"
	s3infra "github.com/go-signup-presence/internal/infrastructure/s3"
)

// ObjectOpener reads a static asset by key.
type ObjectOpener interface {
	Open(ctx context.Context, key string) (*s3infra.Object, error)
}

// NewStaticHandler serves assets from store when it is non-nil, otherwise from dir.
func NewStaticHandler(store ObjectOpener, dir string) http.Handler {
	if store == nil {
		return http.FileServer(http.Dir(dir))
	}
	return &bucketHandler{store: store}
}

type bucketHandler struct {
	store ObjectOpener
}

func (h *bucketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if key == "" || strings.HasSuffix(r.URL.Path, "/") {
		key = path.Join(key, "index.html")
	}
	obj, err := h.store.Open(r.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		httpError(w, r, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.LastModified.IsZero() {
		w.Header().Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.Debug("static asset copy interrupted", "key", key, "err", err)
	}
}
