package container_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rodario/dash/container"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

// S1 - BLOCKED rows/cols: Matrix(8,6) over 2 units, (NONE,BLOCKED):
// unit 0 owns cols [0,3), unit 1 owns cols [3,6). A write by either
// unit followed by a barrier is visible to both (spec §8 invariant 4).
func TestMatrixBlockedWriteVisibleAfterBarrier(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	teams := make([]*team.Team, 2)
	mats := make([]*container.Matrix[int64], 2)
	for i, u := range units {
		teams[i] = team.NewRoot(u, 2)
		spec := team.Spec{Grid: []uint64{1, 2}}
		m, err := container.NewMatrix[int64](teams[i], 8, 6, pattern.DistNone(), pattern.DistBlocked(), spec, transport.DtypeInt64)
		require.NoError(t, err)
		mats[i] = m
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, mats[0].At(2, 4).Store(77))
	}()
	wg.Wait()

	var wg2 sync.WaitGroup
	for _, tm := range teams {
		wg2.Add(1)
		go func(tm *team.Team) {
			defer wg2.Done()
			require.NoError(t, tm.Barrier())
		}(tm)
	}
	wg2.Wait()

	for i, m := range mats {
		v, err := m.At(2, 4).Load()
		require.NoError(t, err, "unit %d", i)
		require.Equal(t, int64(77), v, "unit %d", i)
	}
}

func TestArrayLocalSliceInvariant(t *testing.T) {
	units := transport.NewLoopbackTeam(3)
	for _, u := range units {
		tm := team.NewRoot(u, 3)
		arr, err := container.NewArray[int32](tm, 20, pattern.DistBlocked(), transport.DtypeInt32)
		require.NoError(t, err)
		local := arr.LBegin()
		require.Len(t, local, int(arr.LocalSize()))
	}
}

func TestArrayCanonicalIteration(t *testing.T) {
	units := transport.NewLoopbackTeam(1)
	tm := team.NewRoot(units[0], 1)
	arr, err := container.NewArray[int64](tm, 5, pattern.DistBlocked(), transport.DtypeInt64)
	require.NoError(t, err)
	for it := arr.Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int64(it.Index()*10)))
	}
	var got []int64
	for it := arr.Begin(); !it.Done(); it.Next() {
		v, err := it.Deref().Load()
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []int64{0, 10, 20, 30, 40}, got)
}
