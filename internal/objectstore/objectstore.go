// Package objectstore issues short-lived upload URLs for an S3-compatible
// bucket. The server never proxies file bytes; clients PUT directly against
// the presigned URL.
package objectstore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload is a presigned PUT grant.
type Upload struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

type Presigner interface {
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeFileName collapses whitespace runs to single dashes so keys stay
// URL-safe.
func SanitizeFileName(name string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(name), "-")
}

// BuildKey places the object under its folder with a fresh UUID prefix, so
// identical filenames never collide.
func BuildKey(folder, fileName string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "uploads"
	}
	return folder + "/" + uuid.NewString() + "-" + SanitizeFileName(fileName)
}
