package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath      string // absolute path to ALERT_IMAGE_DIR
	publicBaseURL string
	log           *zap.SugaredLogger
}

// NewLocalStorage creates a new local filesystem store rooted at basePath
func NewLocalStorage(basePath, publicBaseURL string, log *zap.SugaredLogger) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	log.Infof("media.store: Initialized LocalStorage at %s", absBasePath)
	return &LocalStorage{
		basePath:      absBasePath,
		publicBaseURL: publicBaseURL,
		log:           log,
	}, nil
}

func (ls *LocalStorage) Name() string { return "local" }

// BasePath returns the absolute directory images are written to.
func (ls *LocalStorage) BasePath() string { return ls.basePath }

// Save writes data to basePath/filename
func (ls *LocalStorage) Save(_ context.Context, filename string, data io.Reader, _ int64) (SavedImage, error) {
	fullSavePath, err := ls.GetFullPath(filename)
	if err != nil {
		return SavedImage{}, err
	}

	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return SavedImage{}, fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return SavedImage{}, fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}

	ls.log.Debugf("media.store: Saved asset to %s", fullSavePath)
	return SavedImage{Key: filename, URL: imageURL(ls.publicBaseURL, filename)}, nil
}

func (ls *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, AssetInfo, error) {
	fullPath, err := ls.GetFullPath(key)
	if err != nil {
		return nil, AssetInfo{}, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, AssetInfo{}, fmt.Errorf("asset not found at '%s': %w", key, ErrNotFound)
		}
		return nil, AssetInfo{}, fmt.Errorf("failed to open asset '%s': %w", key, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, AssetInfo{}, fmt.Errorf("failed to stat asset '%s': %w", key, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, AssetInfo{}, fmt.Errorf("asset '%s' is a directory: %w", key, ErrNotFound)
	}

	return file, AssetInfo{Size: info.Size(), ModTime: info.ModTime(), ContentType: "image/jpeg"}, nil
}

// Delete removes an asset file
func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := ls.GetFullPath(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) { // Ignore "not exist" errors
		return fmt.Errorf("failed to delete asset '%s': %w", key, err)
	}
	if err == nil {
		ls.log.Debugf("media.store: Deleted asset %s", fullPath)
	}
	return nil
}

// GetFullPath calculates the absolute path and performs security check
func (ls *LocalStorage) GetFullPath(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid path '%s': %w", key, ErrInvalidKey)
	}

	absFullPath, err := filepath.Abs(filepath.Join(ls.basePath, key))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", key, err)
	}

	if !strings.HasPrefix(absFullPath, ls.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid path: access denied for '%s': %w", key, ErrInvalidKey)
	}

	return absFullPath, nil
}
