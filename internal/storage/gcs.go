package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a client using application default credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Close() error { return g.client.Close() }

func (g *GCS) Location(name string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, name)
}

func (g *GCS) Put(ctx context.Context, name string, data []byte) error {
	cleaned, err := cleanName(name)
	if err != nil {
		return err
	}
	w := g.client.Bucket(g.bucket).Object(cleaned).NewWriter(ctx)
	w.ContentType = ContentType(cleaned)
	w.CacheControl = "public, max-age=3600"
	w.Metadata = map[string]string{"generated-at": time.Now().UTC().Format(time.RFC3339)}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", g.Location(cleaned), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", g.Location(cleaned), err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, name string) ([]byte, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(g.bucket).Object(cleaned).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, g.Location(cleaned))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", g.Location(cleaned), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", g.Location(cleaned), err)
	}
	return data, nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", g.bucket, prefix, err)
		}
		out = append(out, Object{
			Name:    attrs.Name,
			Size:    attrs.Size,
			Updated: attrs.Updated,
			URL:     g.Location(attrs.Name),
		})
	}
	sortNewestFirst(out)
	return out, nil
}
