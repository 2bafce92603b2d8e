package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maanas1234/Celestia-Hackathon/media"
)

// ImageServer serves stored alert images at GET /image/{name}.
// Remote stores (cloudinary) hand out direct URLs instead, so requests
// against them answer 404.
type ImageServer struct {
	Store media.Store
	Log   *zap.SugaredLogger
}

func (is *ImageServer) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !media.ValidKey(name) {
		is.Log.Warnf("handlers.image: SECURITY: rejected image name %q from %s", name, r.RemoteAddr)
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Image not found")
		return
	}

	body, info, err := is.Store.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidKey) {
			WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Image not found")
			return
		}
		// an unreachable image store is reported as missing, not as a server error
		is.Log.Errorf("handlers.image: Error opening image %s from %s store: %v", name, is.Store.Name(), err)
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "Image not found")
		return
	}
	defer body.Close()

	cacheDuration := 24 * time.Hour
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
	w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))
	contentType := info.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)

	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.ModTime, rs)
		return
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		is.Log.Warnf("handlers.image: Error streaming image %s: %v", name, err)
	}
}
