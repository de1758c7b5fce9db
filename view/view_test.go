package view_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Rodario/dash/container"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
	"github.com/Rodario/dash/view"
)

func newTestMatrix(t *testing.T, rows, cols uint64, distRows, distCols pattern.Dist, grid []uint64, nunits uint64) (*container.Matrix[int64], *team.Team) {
	units := transport.NewLoopbackTeam(nunits)
	tm := team.NewRoot(units[0], nunits)
	spec := team.Spec{Grid: grid}
	m, err := container.NewMatrix[int64](tm, rows, cols, distRows, distCols, spec, transport.DtypeInt64)
	require.NoError(t, err)
	return m, tm
}

// S2 - view equivalence: sub<0> and sub<1> composed in either order on
// an (8,6) (NONE,BLOCKED) matrix yield identical extents.
func TestSubCompositionLaw(t *testing.T) {
	m, _ := newTestMatrix(t, 8, 6, pattern.DistNone(), pattern.DistBlocked(), []uint64{1, 2}, 2)

	base := view.New[int64](m)
	require.Equal(t, []uint64{2, 6}, base.Sub(0, 1, 3).Extents())
	require.Equal(t, []uint64{8, 3}, base.Sub(1, 2, 5).Extents())

	ab := base.Sub(0, 1, 3).Sub(1, 2, 5)
	ba := base.Sub(1, 2, 5).Sub(0, 1, 3)
	require.Equal(t, []uint64{2, 3}, ab.Extents())
	require.Equal(t, ab.Extents(), ba.Extents())
	require.Equal(t, ab.Offsets(), ba.Offsets())
}

// S3 - local view: for (N,M) under (NONE,BLOCKED) over U units, each
// unit's local(sub<0>(0,N,mat)).size() == N*(M/U) when M%U==0.
func TestLocalViewSize(t *testing.T) {
	const n, m, u = 6, 4, 2
	units := transport.NewLoopbackTeam(u)
	for _, unit := range units {
		tm := team.NewRoot(unit, u)
		mat, err := container.NewMatrix[int64](tm, n, m, pattern.DistNone(), pattern.DistBlocked(), team.Spec{Grid: []uint64{1, 2}}, transport.DtypeInt64)
		require.NoError(t, err)

		v := view.New[int64](mat).Sub(0, 0, n)
		local := v.Local()
		require.Equal(t, uint64(n*(m/u)), local.Size())
	}
}

func TestViewIteratesInCanonicalOrder(t *testing.T) {
	m, tm := newTestMatrix(t, 2, 3, pattern.DistNone(), pattern.DistNone(), []uint64{1, 1}, 1)
	for it := m.Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int64(it.Index())))
	}
	require.NoError(t, tm.Barrier())

	v := view.New[int64](m)
	var got []int64
	for it := v.Begin(); !it.Done(); it.Next() {
		val, err := it.Deref().Load()
		require.NoError(t, err)
		got = append(got, val)
	}
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5}, got)
}
