package transport_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Rodario/dash/transport"
)

func TestLoopbackPutGet(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	_, err := units[0].TeamMemallocAligned(0, 64)
	require.NoError(t, err)

	var src [8]byte
	binary.LittleEndian.PutUint64(src[:], 42)
	gptr := transport.GPtr{Segment: 1, Unit: 1, Offset: 0}
	require.NoError(t, units[0].PutBlockingLocal(gptr, src[:], 1, transport.DtypeUint64))

	var dst [8]byte
	require.NoError(t, units[1].GetBlocking(dst[:], gptr, 1, transport.DtypeUint64))
	require.Equal(t, uint64(42), binary.LittleEndian.Uint64(dst[:]))
}

func TestLoopbackBarrier(t *testing.T) {
	units := transport.NewLoopbackTeam(4)
	var g errgroup.Group
	for _, u := range units {
		u := u
		g.Go(func() error { return u.Barrier(0, 4) })
	}
	require.NoError(t, g.Wait())
}

func TestLoopbackAllreduceSum(t *testing.T) {
	units := transport.NewLoopbackTeam(3)
	results := make([][]byte, len(units))
	var g errgroup.Group
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			send := make([]byte, 8)
			binary.LittleEndian.PutUint64(send, uint64(i+1)) // 1,2,3
			recv := make([]byte, 8)
			if err := u.Allreduce(send, recv, 1, transport.DtypeUint64, transport.OpSum, 0, 3, nil); err != nil {
				return err
			}
			results[i] = recv
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, r := range results {
		require.Equal(t, uint64(6), binary.LittleEndian.Uint64(r))
	}
}
