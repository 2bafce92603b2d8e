package media

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures an S3-compatible bucket for alert images.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicURL, when set, is where the bucket is reachable by browsers
	// (URL = PublicURL/bucket/key). Otherwise images are proxied through
	// the backend's /image route.
	PublicURL     string
	PublicBaseURL string
}

// MinioStore keeps alert images in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	opts   MinioOptions
}

// NewMinioStore connects and creates the bucket when it does not exist.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", opts.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &MinioStore{client: client, opts: opts}, nil
}

func (s *MinioStore) Name() string { return "minio" }

func (s *MinioStore) Save(ctx context.Context, filename string, data io.Reader, size int64) (SavedImage, error) {
	if !ValidKey(filename) {
		return SavedImage{}, fmt.Errorf("invalid object name '%s': %w", filename, ErrInvalidKey)
	}
	_, err := s.client.PutObject(ctx, s.opts.Bucket, filename, data, size, minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return SavedImage{}, fmt.Errorf("failed to put object %s/%s: %w", s.opts.Bucket, filename, err)
	}

	url := imageURL(s.opts.PublicBaseURL, filename)
	if s.opts.PublicURL != "" {
		url = fmt.Sprintf("%s/%s/%s", s.opts.PublicURL, s.opts.Bucket, filename)
	}
	return SavedImage{Key: filename, URL: url}, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, AssetInfo, error) {
	if !ValidKey(key) {
		return nil, AssetInfo{}, fmt.Errorf("invalid object name '%s': %w", key, ErrInvalidKey)
	}
	obj, err := s.client.GetObject(ctx, s.opts.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, AssetInfo{}, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, AssetInfo{}, fmt.Errorf("object %s: %w", key, ErrNotFound)
		}
		return nil, AssetInfo{}, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return obj, AssetInfo{Size: st.Size, ModTime: st.LastModified, ContentType: st.ContentType}, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.opts.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}
