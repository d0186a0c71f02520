// Package docstore stores uploaded documents outside the form state. Only
// object references and public URLs flow back into the wizard; raw bytes
// never touch the keyed store.
package docstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/stepgate/stepgate/pkg/api"
)

// MinioConfig configures the S3-compatible document store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// PublicBaseURL overrides the URL prefix for uploaded objects. When
	// empty, a URL is derived from the endpoint and bucket.
	PublicBaseURL string
}

// MinioStore is a BlobStore backed by an S3-compatible object store.
type MinioStore struct {
	client *minio.Client
	bucket string
	base   string
}

var _ api.BlobStore = (*MinioStore)(nil)

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	base = strings.TrimSuffix(base, "/")

	return &MinioStore{client: client, bucket: cfg.Bucket, base: base}, nil
}

// Upload stores the document under a session-scoped object name and returns
// its reference. The object name embeds a random id so repeated uploads of
// the same file never collide.
func (s *MinioStore) Upload(ctx context.Context, scopeID, name, mimeType string, r io.Reader, size int64) (api.StoredObject, error) {
	objectName := fmt.Sprintf("%s/%d-%s-%s", scopeID, time.Now().Unix(), uuid.NewString()[:8], sanitizeName(name))

	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return api.StoredObject{}, fmt.Errorf("upload %q: %w", name, err)
	}

	return api.StoredObject{
		StorageRef: objectName,
		PublicURL:  s.base + "/" + objectName,
	}, nil
}

// Delete removes the object. Deleting an absent object is not an error.
func (s *MinioStore) Delete(ctx context.Context, storageRef string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storageRef, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %q: %w", storageRef, err)
	}
	return nil
}

// sanitizeName keeps object names URL-safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
