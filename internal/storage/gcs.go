package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
)

// GCSConfig configures a Google Cloud Storage location.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string // optional; application default credentials otherwise
}

// GCSBackend stores blobs as objects in a GCS bucket.
type GCSBackend struct {
	cfg    GCSConfig
	client *gcs.Client
}

// NewGCSBackend creates a GCS client for cfg.
func NewGCSBackend(ctx context.Context, cfg GCSConfig) (*GCSBackend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCSBackend{cfg: cfg, client: client}, nil
}

// Close releases the client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}

func (b *GCSBackend) Describe() string {
	return "gs://" + path.Join(b.cfg.Bucket, b.cfg.Prefix)
}

func (b *GCSBackend) object(key string) *gcs.ObjectHandle {
	name := key
	if b.cfg.Prefix != "" {
		name = strings.TrimSuffix(b.cfg.Prefix, "/") + "/" + key
	}
	return b.client.Bucket(b.cfg.Bucket).Object(name)
}

func (b *GCSBackend) Ensure(ctx context.Context) error {
	if _, err := b.client.Bucket(b.cfg.Bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s not accessible: %w", b.cfg.Bucket, err)
	}
	return nil
}

func (b *GCSBackend) Put(ctx context.Context, key string, data []byte) error {
	w := b.object(key).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", key, err)
	}
	return nil
}

func (b *GCSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *GCSBackend) List(ctx context.Context) ([]Object, error) {
	prefix := ""
	if b.cfg.Prefix != "" {
		prefix = strings.TrimSuffix(b.cfg.Prefix, "/") + "/"
	}
	it := b.client.Bucket(b.cfg.Bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gs://%s: %w", b.cfg.Bucket, err)
		}
		key := strings.TrimPrefix(attrs.Name, prefix)
		if key == "" || strings.Contains(key, "/") {
			continue
		}
		out = append(out, Object{
			Key:      key,
			Size:     attrs.Size,
			Created:  CreatedFromName(key, attrs.Created),
			Modified: attrs.Updated,
		})
	}
	sortNewestFirst(out)
	return out, nil
}
