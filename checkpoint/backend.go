package checkpoint

import "context"

// Backend is the storage target a snapshot's shards are uploaded to.
// Implementations live in their own files (backend_local.go,
// backend_s3.go, backend_gcs.go, backend_azure.go, backend_hdfs.go).
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
