// Package storage keeps generated files in a local directory or a Google
// Cloud Storage bucket behind one interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
	URL     string    `json:"url"`
}

// Client stores and reads objects by slash-separated name.
type Client interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns objects under prefix, newest name first.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Location is a human readable address for name.
	Location(name string) string
	Close() error
}

// New returns a GCS client when bucket is set, otherwise a local one rooted at dir.
func New(ctx context.Context, dir, bucket string) (Client, error) {
	if strings.TrimSpace(bucket) != "" {
		c, err := NewGCS(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return c, nil
	}
	if strings.TrimSpace(dir) == "" {
		dir = "snapshots"
	}
	c, err := NewLocal(dir)
	if err != nil {
		return nil, fmt.Errorf("init local storage: %w", err)
	}
	return c, nil
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri needs bucket and object: %q", uri)
	}
	return bucket, object, nil
}

// ContentType picks a MIME type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".md":
		return "text/markdown"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(name))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return cleaned, nil
}
