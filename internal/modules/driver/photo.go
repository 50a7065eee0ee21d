// README: Driver photo URLs: a whitelist of schemes, and the blob-store adapter that uploads to Firebase Storage.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

type PhotoURLKind string

const (
	PhotoPreview PhotoURLKind = "preview"
	PhotoHosted  PhotoURLKind = "hosted"
)

var hostedPrefixes = []string{
	"https://firebasestorage.googleapis.com/",
	"https://storage.googleapis.com/",
}

// ClassifyPhotoURL accepts local previews (blob:) and permanently hosted storage URLs only.
func ClassifyPhotoURL(raw string) (PhotoURLKind, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "blob:") {
		return PhotoPreview, nil
	}
	for _, p := range hostedPrefixes {
		if strings.HasPrefix(raw, p) {
			if _, err := url.Parse(raw); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidPhotoURL, err)
			}
			return PhotoHosted, nil
		}
	}
	return "", ErrInvalidPhotoURL
}

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// PhotoStore writes driver photos into the configured bucket.
type PhotoStore struct {
	bucket *gcs.BucketHandle
	name   string
}

func NewPhotoStore(bucket *gcs.BucketHandle, bucketName string) *PhotoStore {
	return &PhotoStore{bucket: bucket, name: bucketName}
}

// Upload stores the object and returns its permanent download URL.
func (s *PhotoStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return DownloadURL(s.name, path), nil
}

func (s *PhotoStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func DownloadURL(bucket, path string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media", bucket, url.PathEscape(path))
}
