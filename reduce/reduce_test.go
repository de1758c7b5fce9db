package reduce_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/Rodario/dash/container"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/reduce"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

// S4 - accumulate with init: Array<int64> holding 1..20 across any
// number of units, accumulate(+, init=10) returns 220.
func TestAccumulateSumWithInit(t *testing.T) {
	const n, nunits = 20, 3
	units := transport.NewLoopbackTeam(nunits)
	teams := make([]*team.Team, nunits)
	arrs := make([]*container.Array[int64], nunits)
	for i, u := range units {
		teams[i] = team.NewRoot(u, nunits)
		a, err := container.NewArray[int64](teams[i], n, pattern.DistBlocked(), transport.DtypeInt64)
		require.NoError(t, err)
		arrs[i] = a
	}

	for it := arrs[0].Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int64(it.Index())+1))
	}

	var wg sync.WaitGroup
	for _, tm := range teams {
		wg.Add(1)
		go func(tm *team.Team) {
			defer wg.Done()
			require.NoError(t, tm.Barrier())
		}(tm)
	}
	wg.Wait()

	results := make([]int64, nunits)
	var wg2 sync.WaitGroup
	for i, a := range arrs {
		wg2.Add(1)
		go func(i int, a *container.Array[int64]) {
			defer wg2.Done()
			v, err := reduce.Accumulate[int64](a, 10, transport.OpSum, transport.DtypeInt64)
			require.NoError(t, err)
			results[i] = v
		}(i, a)
	}
	wg2.Wait()

	for i, v := range results {
		require.Equal(t, int64(220), v, "unit %d", i)
	}
}

func TestAccumulateMaxNative(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	teams := make([]*team.Team, 2)
	arrs := make([]*container.Array[int32], 2)
	for i, u := range units {
		teams[i] = team.NewRoot(u, 2)
		a, err := container.NewArray[int32](teams[i], 6, pattern.DistBlocked(), transport.DtypeInt32)
		require.NoError(t, err)
		arrs[i] = a
	}
	for it := arrs[0].Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int32(it.Index())))
	}
	var wg sync.WaitGroup
	for _, tm := range teams {
		wg.Add(1)
		go func(tm *team.Team) { defer wg.Done(); require.NoError(t, tm.Barrier()) }(tm)
	}
	wg.Wait()

	results := make([]int32, 2)
	errs := make([]error, 2)
	var wg2 sync.WaitGroup
	for i, a := range arrs {
		wg2.Add(1)
		go func(i int, a *container.Array[int32]) {
			defer wg2.Done()
			results[i], errs[i] = reduce.Accumulate[int32](a, -100, transport.OpMax, transport.DtypeInt32)
		}(i, a)
	}
	wg2.Wait()
	for i, v := range results {
		require.NoError(t, errs[i])
		require.Equal(t, int32(5), v, "unit %d", i)
	}
}

// AccumulateCustom with the binop passed as an arbitrary Go function
// (here an int64 max) rather than a native transport.Op, so the
// (value, valid) fallback payload is exercised, encoded with msgp's
// primitive appenders rather than a full code-generated marshaler.
func TestAccumulateCustomFallback(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	teams := make([]*team.Team, 2)
	arrs := make([]*container.Array[int64], 2)
	for i, u := range units {
		teams[i] = team.NewRoot(u, 2)
		a, err := container.NewArray[int64](teams[i], 4, pattern.DistBlocked(), transport.DtypeInt64)
		require.NoError(t, err)
		arrs[i] = a
	}
	for it := arrs[0].Begin(); !it.Done(); it.Next() {
		require.NoError(t, it.Deref().Store(int64(it.Index())+1))
	}
	var wg sync.WaitGroup
	for _, tm := range teams {
		wg.Add(1)
		go func(tm *team.Team) { defer wg.Done(); require.NoError(t, tm.Barrier()) }(tm)
	}
	wg.Wait()

	marshal := func(v int64) ([]byte, error) { return msgp.AppendInt64(nil, v), nil }
	unmarshal := func(b []byte) (int64, error) {
		v, _, err := msgp.ReadInt64Bytes(b)
		return v, err
	}
	binopMax := func(a, b int64) int64 {
		if a > b {
			return a
		}
		return b
	}

	results := make([]int64, 2)
	errs := make([]error, 2)
	var wg2 sync.WaitGroup
	for i, a := range arrs {
		wg2.Add(1)
		go func(i int, a *container.Array[int64]) {
			defer wg2.Done()
			results[i], errs[i] = reduce.AccumulateCustom[int64](a, 0, binopMax, marshal, unmarshal)
		}(i, a)
	}
	wg2.Wait()
	for i, v := range results {
		require.NoError(t, errs[i])
		require.Equal(t, int64(4), v, "unit %d", i)
	}
}
