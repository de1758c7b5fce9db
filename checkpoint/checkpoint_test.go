package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rodario/dash/checkpoint"
	"github.com/Rodario/dash/container"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

func TestExportRoundTrip(t *testing.T) {
	units := transport.NewLoopbackTeam(1)
	tm := team.NewRoot(units[0], 1)
	arr, err := container.NewArray[int64](tm, 100, pattern.DistBlocked(), transport.DtypeInt64)
	require.NoError(t, err)
	for it := arr.Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int64(it.Index())))
	}

	dir := t.TempDir()
	backend := checkpoint.NewLocalBackend(dir)
	exp := checkpoint.NewExporter(backend, checkpoint.Options{ShardBytes: 64})

	manifest, err := checkpoint.Export[int64, *container.Iterator[int64]](context.Background(), exp, arr, "snap-1")
	require.NoError(t, err)
	require.Equal(t, "snap-1", manifest.SnapshotID)
	require.Equal(t, 100, manifest.ElementCount)
	require.NotEmpty(t, manifest.DataShards)
	require.Empty(t, manifest.ParityShards)

	shards, err := checkpoint.FetchDataShards(context.Background(), backend, manifest, nil)
	require.NoError(t, err)
	require.Len(t, shards, len(manifest.DataShards))

	var all []byte
	for _, s := range shards {
		all = append(all, s...)
	}
	require.Len(t, all, 100*8)
}

func TestExportWithErasureCoding(t *testing.T) {
	units := transport.NewLoopbackTeam(1)
	tm := team.NewRoot(units[0], 1)
	arr, err := container.NewArray[int32](tm, 40, pattern.DistBlocked(), transport.DtypeInt32)
	require.NoError(t, err)
	for it := arr.Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int32(it.Index())))
	}

	backend := checkpoint.NewLocalBackend(t.TempDir())
	exp := checkpoint.NewExporter(backend, checkpoint.Options{ShardBytes: 32, ECDataShards: 2, ECParityShards: 1})

	manifest, err := checkpoint.Export[int32, *container.Iterator[int32]](context.Background(), exp, arr, "snap-ec")
	require.NoError(t, err)
	require.NotEmpty(t, manifest.DataShards)
	require.NotEmpty(t, manifest.ParityShards)
}
