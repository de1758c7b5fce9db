package reduce_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tinylib/msgp/msgp"
	"golang.org/x/sync/errgroup"

	"github.com/Rodario/dash/container"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/reduce"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

func TestReduce(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Collective Reductions Suite")
}

// barrierAll is the Ginkgo suite's equivalent of the testify tests'
// per-unit goroutine fan-out, bounded via errgroup as elsewhere in the
// package (spec §2's "collective all-reduce fan-out over the loopback
// transport").
func barrierAll(teams []*team.Team) error {
	var g errgroup.Group
	for _, tm := range teams {
		tm := tm
		g.Go(tm.Barrier)
	}
	return g.Wait()
}

// newFilledInt64Array builds n int64s blocked across nunits loopback
// units, filling unit 0's view with 1..n before any Barrier.
func newFilledInt64Array(nunits uint64, n uint64) ([]*team.Team, []*container.Array[int64]) {
	units := transport.NewLoopbackTeam(nunits)
	teams := make([]*team.Team, nunits)
	arrs := make([]*container.Array[int64], nunits)
	for i, u := range units {
		teams[i] = team.NewRoot(u, nunits)
		a, err := container.NewArray[int64](teams[i], n, pattern.DistBlocked(), transport.DtypeInt64)
		Expect(err).To(BeNil())
		arrs[i] = a
	}
	for it := arrs[0].Begin(); !it.Done(); it.Next() {
		Expect(it.Deref().Store(int64(it.Index()) + 1)).To(BeNil())
	}
	return teams, arrs
}

// §8: reduce.Accumulate dispatches a native transport op for a
// recognized (op, dtype) pair, and every member of the team observes
// the identical combined result - the cross-cutting invariant a
// single-unit testify test can't exercise on its own.
var _ = Describe("Accumulate", func() {
	Context("with a native (op, dtype) pair", func() {
		It("returns the same sum to every unit, offset by init", func() {
			const n, nunits = 20, 3
			teams, arrs := newFilledInt64Array(nunits, n)
			Expect(barrierAll(teams)).To(BeNil())

			var g errgroup.Group
			results := make([]int64, nunits)
			for i, a := range arrs {
				i, a := i, a
				g.Go(func() error {
					v, err := reduce.Accumulate[int64](a, 10, transport.OpSum, transport.DtypeInt64)
					results[i] = v
					return err
				})
			}
			Expect(g.Wait()).To(BeNil())

			for _, v := range results {
				Expect(v).To(BeEquivalentTo(220))
			}
		})

		It("tolerates a unit with an empty local range", func() {
			// A team with more units than elements leaves the last unit
			// with zero local elements under blocked distribution (spec
			// §4.5's "empty local range" edge case); Accumulate must still
			// converge for every unit, including that one, using op's
			// identity element in place of folding nothing.
			const n, nunits = 2, 3
			teams, arrs := newFilledInt64Array(nunits, n)
			Expect(barrierAll(teams)).To(BeNil())
			Expect(arrs[nunits-1].LocalSize()).To(BeEquivalentTo(0))

			var g errgroup.Group
			results := make([]int64, nunits)
			for i, a := range arrs {
				i, a := i, a
				g.Go(func() error {
					v, err := reduce.Accumulate[int64](a, 100, transport.OpSum, transport.DtypeInt64)
					results[i] = v
					return err
				})
			}
			Expect(g.Wait()).To(BeNil())

			for _, v := range results {
				Expect(v).To(BeEquivalentTo(103)) // init 100 + (1+2) contributed by the non-empty units
			}
		})
	})
})

// §8/§9: AccumulateCustom is the fallback path for a binop/type with no
// native (op, dtype) entry - it exchanges an explicit (value, valid)
// frame over Allreduce's raw path instead, so every unit still
// converges on the same combined value even though the transport never
// sees the value's real type.
var _ = Describe("AccumulateCustom", func() {
	It("combines every unit's local max through the msgp fallback frame", func() {
		const n, nunits = 4, 2
		teams, arrs := newFilledInt64Array(nunits, n)
		Expect(barrierAll(teams)).To(BeNil())

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

		var g errgroup.Group
		results := make([]int64, nunits)
		for i, a := range arrs {
			i, a := i, a
			g.Go(func() error {
				v, err := reduce.AccumulateCustom[int64](a, 0, binopMax, marshal, unmarshal)
				results[i] = v
				return err
			})
		}
		Expect(g.Wait()).To(BeNil())

		for _, v := range results {
			Expect(v).To(BeEquivalentTo(4))
		}
	})
})
