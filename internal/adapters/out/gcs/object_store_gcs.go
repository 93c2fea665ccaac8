// internal/adapters/out/gcs/object_store_gcs.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"ayyooya/internal/domain/media"
)

// ObjectStoreGCS implements media.Store on Google Cloud Storage. Buckets
// are expected to be publicly readable (slips, product-images).
type ObjectStoreGCS struct {
	Client *storage.Client

	// PublicBase overrides https://storage.googleapis.com (emulators, CDN).
	PublicBase string
}

func NewObjectStoreGCS(client *storage.Client, publicBase string) *ObjectStoreGCS {
	return &ObjectStoreGCS{Client: client, PublicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/")}
}

var errNilClient = errors.New("gcs: nil storage client")

// Put uploads body unconditionally; existing objects are not replaced.
func (s *ObjectStoreGCS) Put(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	bucket, objectPath, err := cleanTarget(bucket, objectPath)
	if err != nil {
		return err
	}
	if body == nil {
		return media.ErrEmptyBody
	}

	obj := s.Client.Bucket(bucket).Object(objectPath).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	w.CacheControl = "public, max-age=3600"

	n, err := io.Copy(w, body)
	if err != nil {
		_ = w.CloseWithError(err)
		return fmt.Errorf("gcs: write %s/%s: %w", bucket, objectPath, err)
	}
	if n == 0 {
		_ = w.CloseWithError(media.ErrEmptyBody)
		return media.ErrEmptyBody
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			return fmt.Errorf("gcs: object %s/%s already exists", bucket, objectPath)
		}
		return fmt.Errorf("gcs: upload %s/%s: %w", bucket, objectPath, err)
	}
	return nil
}

// Delete removes an object. A missing object is not an error.
func (s *ObjectStoreGCS) Delete(ctx context.Context, bucket, objectPath string) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	bucket, objectPath, err := cleanTarget(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := s.Client.Bucket(bucket).Object(objectPath).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("gcs: delete %s/%s: %w", bucket, objectPath, err)
	}
	return nil
}

// PublicURL builds the public URL for an object. Empty inputs give "".
func (s *ObjectStoreGCS) PublicURL(bucket, objectPath string) string {
	bucket, objectPath, err := cleanTarget(bucket, objectPath)
	if err != nil {
		return ""
	}
	base := "https://storage.googleapis.com"
	if s != nil && s.PublicBase != "" {
		base = s.PublicBase
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, escapeObjectPath(objectPath))
}

// ---- helpers ----

func cleanTarget(bucket, objectPath string) (string, string, error) {
	b := strings.TrimSpace(bucket)
	if b == "" {
		return "", "", media.ErrEmptyBucket
	}
	p := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if p == "" {
		return "", "", media.ErrEmptyPath
	}
	return b, p, nil
}

func escapeObjectPath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
