package checkpoint

import (
	"context"
	"io"
	"path"

	"github.com/colinmarc/hdfs/v2"
	"github.com/pkg/errors"
)

// HDFSBackend writes shards as files under a root directory in an
// HDFS cluster, for deployments where the team already runs on a
// Hadoop-adjacent storage layer.
type HDFSBackend struct {
	Root   string
	client *hdfs.Client
}

func NewHDFSBackend(client *hdfs.Client, root string) *HDFSBackend {
	return &HDFSBackend{Root: root, client: client}
}

func (b *HDFSBackend) Put(_ context.Context, key string, data []byte) error {
	p := path.Join(b.Root, key)
	if err := b.client.MkdirAll(path.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "checkpoint: hdfs mkdir for %s", key)
	}
	w, err := b.client.Create(p)
	if err != nil {
		return errors.Wrapf(err, "checkpoint: hdfs create %s", key)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "checkpoint: hdfs write %s", key)
	}
	return errors.Wrapf(w.Close(), "checkpoint: hdfs close %s", key)
}

func (b *HDFSBackend) Get(_ context.Context, key string) ([]byte, error) {
	r, err := b.client.Open(path.Join(b.Root, key))
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint: hdfs open %s", key)
	}
	defer r.Close()
	return io.ReadAll(r)
}
