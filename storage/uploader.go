package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// NewObjectKey builds a collision-free key like "tournaments/banners/<uuid>.png".
func NewObjectKey(prefix, ext string) string {
	prefix = strings.Trim(prefix, "/")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
}

// ExtensionFromContentType maps supported image content types to a file extension.
func ExtensionFromContentType(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported content type: '%s'", contentType)
	}
}
