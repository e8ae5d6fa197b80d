package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-academy/internal/logger"
	"github.com/mind-engage/mindengage-academy/internal/storage"
)

// Lesson media lives under this blob prefix; other prefixes are never served.
const assetPrefix = "lessons/"

// AssetsDownload serves lesson media from the blob store: GET /assets/*
func AssetsDownload(bs storage.BlobStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := assetKey(w, r)
		if !ok {
			return
		}
		rc, err := bs.Get(r.Context(), assetPrefix+key)
		if errors.Is(err, storage.ErrNotExist) {
			writeErr(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			log.Warn("asset read failed", "key", key, "error", err)
			writeErr(w, http.StatusBadRequest, "bad key")
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	}
}

func assetKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" || strings.Contains(key, "..") {
		writeErr(w, http.StatusBadRequest, "bad key")
		return "", false
	}
	return key, true
}
