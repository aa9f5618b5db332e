package server

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"moodwave/storage"
)

// MediaHandler serves uploaded objects under MEDIA_URL with range support.
func (s *Server) MediaHandler(w http.ResponseWriter, r *http.Request) error {
	key := strings.TrimPrefix(r.URL.Path, s.cfg.MediaURL)

	obj, err := s.media.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return errNotFound
		}
		return err
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	http.ServeContent(w, r, path.Base(key), obj.ModTime, obj.Body)
	return nil
}
