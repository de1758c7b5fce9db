package checkpoint

import (
	"bytes"
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/pkg/errors"
)

// AzureBackend uploads shards as block blobs in a single container
// (in the Azure sense - unrelated to a dash team or segment).
type AzureBackend struct {
	ContainerName string
	client        *azblob.Client
}

func NewAzureBackend(client *azblob.Client, containerName string) *AzureBackend {
	return &AzureBackend{ContainerName: containerName, client: client}
}

func (b *AzureBackend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.UploadBuffer(ctx, b.ContainerName, key, data, nil)
	if err != nil {
		return errors.Wrapf(err, "checkpoint: azure upload %s/%s", b.ContainerName, key)
	}
	return nil
}

func (b *AzureBackend) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := b.client.DownloadStream(ctx, b.ContainerName, key, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint: azure download %s/%s", b.ContainerName, key)
	}
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return nil, errors.Wrapf(err, "checkpoint: azure read %s/%s", b.ContainerName, key)
	}
	return buf.Bytes(), nil
}
