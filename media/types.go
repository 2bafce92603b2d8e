// media/types.go
package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an asset does not exist or cannot be served
	// by this process.
	ErrNotFound = errors.New("media: asset not found")
	// ErrInvalidKey is returned for keys that could escape the store root.
	ErrInvalidKey = errors.New("media: invalid asset key")
)

// SavedImage describes a stored alert image. Key identifies it inside the
// store; URL is what readers use to fetch it.
type SavedImage struct {
	Key string
	URL string
}

// AssetInfo carries what an HTTP handler needs to serve an asset.
type AssetInfo struct {
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store defines the interface for saving, retrieving, and deleting alert images
type Store interface {
	// Save stores data under filename and returns where it ended up.
	Save(ctx context.Context, filename string, data io.Reader, size int64) (SavedImage, error)
	// Get opens an asset for serving. Stores whose assets are served
	// elsewhere return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, AssetInfo, error)
	// Delete removes an asset; missing assets are not an error.
	Delete(ctx context.Context, key string) error
	Name() string
}

// ValidKey reports whether key is a plain file name without path components.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.Contains(key, "..")
}

// imageURL joins a public base URL with the backend's image route.
func imageURL(publicBaseURL, key string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/image/" + key
}
