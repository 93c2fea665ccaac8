// internal/domain/media/object.go
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

var (
	ErrEmptyBucket = errors.New("media: bucket is empty")
	ErrEmptyPath   = errors.New("media: object path is empty")
	ErrEmptyBody   = errors.New("media: body is empty")
	ErrNotFound    = errors.New("media: object not found")
)

// Upload is one file sent by the shopper or admin.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

func (u *Upload) Valid() bool {
	return u != nil && u.Body != nil && (strings.TrimSpace(u.FileName) != "" || strings.TrimSpace(u.ContentType) != "")
}

// Store is a public-readable object store.
type Store interface {
	Put(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error
	Delete(ctx context.Context, bucket, objectPath string) error
	PublicURL(bucket, objectPath string) string
}

// SlipObjectName returns "<unixmillis>-<suffix>.<ext>".
func SlipObjectName(now time.Time, suffix string, u Upload) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), sanitizePathSegment(suffix), Extension(u))
}

// ImageObjectName returns "<id>.<ext>".
func ImageObjectName(id string, u Upload) string {
	return sanitizePathSegment(id) + Extension(u)
}

// Extension picks ".ext" from the file name, falling back to the MIME type.
func Extension(u Upload) string {
	if ext := strings.ToLower(path.Ext(strings.TrimSpace(u.FileName))); ext != "" && len(ext) <= 6 {
		return ext
	}
	switch strings.ToLower(strings.TrimSpace(u.ContentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	}
	if exts, _ := mime.ExtensionsByType(u.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// ContentTypeOf returns u.ContentType or a guess from the extension.
func ContentTypeOf(u Upload) string {
	if ct := strings.TrimSpace(u.ContentType); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(Extension(u)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func sanitizePathSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "/")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "..", "_")
	return s
}
