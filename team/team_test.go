package team_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

func TestRootTeamBarrier(t *testing.T) {
	units := transport.NewLoopbackTeam(3)
	teams := make([]*team.Team, 3)
	for i, u := range units {
		teams[i] = team.NewRoot(u, 3)
		require.True(t, teams[i].IsMember())
		require.Equal(t, i, teams[i].MyRank())
	}

	var g errgroup.Group
	for _, tm := range teams {
		tm := tm
		g.Go(tm.Barrier)
	}
	require.NoError(t, g.Wait())
}

func TestSubTeam(t *testing.T) {
	units := transport.NewLoopbackTeam(4)
	root := team.NewRoot(units[0], 4)
	child, err := root.Sub([]int{1, 3})
	require.NoError(t, err)
	require.Equal(t, 2, child.Size())
	// units[0] (global unit 0) is not in the child team.
	require.False(t, child.IsMember())
}

// TestSubTeamBarrier builds the same child team independently on every
// one of its members and barriers it concurrently, proving the child's
// collective is sized to its own 2-member roster rather than the
// 4-unit arena (it must not wait on units 0 and 2, which never call
// Sub or Barrier at all).
func TestSubTeamBarrier(t *testing.T) {
	units := transport.NewLoopbackTeam(4)
	memberUnits := []int{1, 3}

	children := make([]*team.Team, 0, len(memberUnits))
	for _, ord := range memberUnits {
		root := team.NewRoot(units[ord], 4)
		child, err := root.Sub(memberUnits)
		require.NoError(t, err)
		require.True(t, child.IsMember())
		children = append(children, child)
	}

	var g errgroup.Group
	for _, c := range children {
		c := c
		g.Go(c.Barrier)
	}
	require.NoError(t, g.Wait())
}

func TestBalancedSpec(t *testing.T) {
	s := team.BalancedSpec(6, 2)
	prod := uint64(1)
	for _, g := range s.Grid {
		prod *= g
	}
	require.Equal(t, uint64(6), prod)
	require.Len(t, s.Grid, 2)
}
