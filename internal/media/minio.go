// Package media stores uploaded images (blog covers, profile photos)
// in S3-compatible object storage and hands back public URLs.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pasinduf/blog-platform/internal/util"
)

// MaxUploadSize caps a single image upload at 5 MiB.
const MaxUploadSize = 5 << 20

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base for stored objects,
	// e.g. https://cdn.example.com/blog-media.
	PublicURL string
}

type Store struct {
	client *minio.Client
	config Config
}

func NewStore(config Config) (*Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Store{client: client, config: config}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload stores an image under a random name below prefix ("covers" or
// "profiles") and returns its public URL.
func (s *Store) Upload(ctx context.Context, reader io.Reader, size int64, contentType, prefix string) (string, error) {
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if size > MaxUploadSize {
		return "", fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}

	objectName := path.Join(prefix, util.NewID("img")+ext)
	_, err := s.client.PutObject(ctx, s.config.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return strings.TrimRight(s.config.PublicURL, "/") + "/" + objectName, nil
}

// Remove deletes an object previously returned by Upload. Unknown URLs
// are ignored.
func (s *Store) Remove(ctx context.Context, publicURL string) error {
	base := strings.TrimRight(s.config.PublicURL, "/") + "/"
	if !strings.HasPrefix(publicURL, base) {
		return nil
	}
	objectName := strings.TrimPrefix(publicURL, base)
	if err := s.client.RemoveObject(ctx, s.config.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
