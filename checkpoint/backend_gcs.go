package checkpoint

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// GCSBackend uploads shards as objects in a single Google Cloud
// Storage bucket.
type GCSBackend struct {
	Bucket string
	client *storage.Client
}

func NewGCSBackend(client *storage.Client, bucket string) *GCSBackend {
	return &GCSBackend{Bucket: bucket, client: client}
}

func (b *GCSBackend) Put(ctx context.Context, key string, data []byte) error {
	w := b.client.Bucket(b.Bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "checkpoint: gcs write %s/%s", b.Bucket, key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "checkpoint: gcs close %s/%s", b.Bucket, key)
	}
	return nil
}

func (b *GCSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.client.Bucket(b.Bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint: gcs open %s/%s", b.Bucket, key)
	}
	defer r.Close()
	return io.ReadAll(r)
}
