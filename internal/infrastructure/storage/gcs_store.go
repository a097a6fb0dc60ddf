package storage

import (
	"context"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/oksasatya/prevently-api/pkg/helpers"
)

// GCSStore uploads user files into a single bucket.
type GCSStore struct {
	Client *gcs.Client
	Bucket string
}

func NewGCSStore(client *gcs.Client, bucket string) *GCSStore {
	return &GCSStore{Client: client, Bucket: bucket}
}

func (s *GCSStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, s.Client, s.Bucket, objectPath, contentType, r)
}

// DeleteURL removes an object previously returned by Upload. URLs outside the bucket are ignored.
func (s *GCSStore) DeleteURL(ctx context.Context, url string) error {
	prefix := helpers.PublicURL(s.Bucket, "")
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	return helpers.DeleteObject(ctx, s.Client, s.Bucket, strings.TrimPrefix(url, prefix))
}
