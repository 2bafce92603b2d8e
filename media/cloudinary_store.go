package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps alert images in Cloudinary. Readers fetch them from
// the returned secure URL, so Get always reports ErrNotFound.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore configures the client from a cloudinary:// URL.
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is empty")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Name() string { return "cloudinary" }

func (s *CloudinaryStore) Save(ctx context.Context, filename string, data io.Reader, _ int64) (SavedImage, error) {
	publicID := strings.TrimSuffix(filename, filepath.Ext(filename))
	res, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		PublicID: publicID,
		Folder:   s.folder,
	})
	if err != nil {
		return SavedImage{}, fmt.Errorf("cloudinary upload of %s failed: %w", filename, err)
	}
	if res.Error.Message != "" {
		return SavedImage{}, fmt.Errorf("cloudinary rejected %s: %s", filename, res.Error.Message)
	}
	return SavedImage{Key: res.PublicID, URL: res.SecureURL}, nil
}

func (s *CloudinaryStore) Get(_ context.Context, key string) (io.ReadCloser, AssetInfo, error) {
	return nil, AssetInfo{}, fmt.Errorf("cloudinary asset '%s' is served by its secure URL: %w", key, ErrNotFound)
}

func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("cloudinary destroy of %s failed: %w", key, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary refused to destroy %s: %s", key, res.Error.Message)
	}
	return nil
}
