package checkpoint

import (
	"context"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// LocalBackend writes shards under a root directory, one file per
// key. It exists for single-node development and for deployments that
// export to a shared filesystem mount rather than an object store.
type LocalBackend struct {
	Root string
}

func NewLocalBackend(root string) *LocalBackend { return &LocalBackend{Root: root} }

func (b *LocalBackend) Put(_ context.Context, key string, data []byte) error {
	p := filepath.Join(b.Root, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "checkpoint: mkdir for %s", key)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrapf(err, "checkpoint: write %s", key)
	}
	return nil
}

func (b *LocalBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.Root, key))
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint: read %s", key)
	}
	return data, nil
}

// ExistingKeys walks the backend's root and returns every shard key
// already present, used to pre-seed an Exporter's dedup filter before
// a re-export of a mostly-unchanged container.
func (b *LocalBackend) ExistingKeys() ([]string, error) {
	var keys []string
	err := godirwalk.Walk(b.Root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(b.Root, path)
			if err != nil {
				return err
			}
			keys = append(keys, rel)
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: walk local backend root")
	}
	return keys, nil
}
