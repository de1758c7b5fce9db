package checkpoint

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3Backend uploads shards as objects in a single bucket, using the
// manager package's multipart uploader so large shards don't need a
// single-request size cap.
type S3Backend struct {
	Bucket   string
	client   *s3.Client
	uploader *manager.Uploader
}

func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{Bucket: bucket, client: client, uploader: manager.NewUploader(client)}
}

func (b *S3Backend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrapf(err, "checkpoint: s3 put %s/%s", b.Bucket, key)
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.Bucket), Key: aws.String(key)})
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint: s3 get %s/%s", b.Bucket, key)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
