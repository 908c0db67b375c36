// Package storage saves uploaded images to a local directory or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/config"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 10 << 20

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds 10 MB")
	ErrBadExtension    = errors.New("allowed extensions: jpg, jpeg, png, gif, webp")
	ErrContentMismatch = errors.New("file content does not match its extension")
)

// Storage persists a file and returns the URL clients should use for it.
type Storage interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

var extTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ValidateImage checks size, extension and the sniffed content type, and
// returns the normalised extension with its content type.
func ValidateImage(filename string, data []byte) (ext, contentType string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if len(data) > MaxImageSize {
		return "", "", ErrTooLarge
	}
	ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	want, ok := extTypes[ext]
	if !ok {
		return "", "", ErrBadExtension
	}
	if got := http.DetectContentType(data); got != want {
		return "", "", ErrContentMismatch
	}
	return ext, want, nil
}

// ObjectName generates a unique stored name keeping the extension.
func ObjectName(ext string) string {
	return fmt.Sprintf("%s_%d.%s", uuid.NewString(), time.Now().Unix(), ext)
}

// New returns the backend selected by cfg.  S3 needs AWS credentials from
// the default chain; failures to load them are returned.
func New(ctx context.Context, cfg config.UploadConfig, localDir string) (Storage, error) {
	if cfg.Backend == "s3" {
		return NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
	}
	return NewLocalStorage(localDir, cfg.PublicURL)
}
