package container

import (
	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

// Array is the rank-1 distributed container of spec §6.1.
type Array[T any] struct {
	*base[T]
}

// NewArray collectively constructs a 1-D array of n elements over tm,
// distributed per dist (default team.RowSpec: every unit owns a
// contiguous/cyclic share along the one dimension there is).
func NewArray[T any](tm *team.Team, n uint64, dist pattern.Dist, dtype transport.Dtype) (*Array[T], error) {
	spec := team.RowSpec(uint64(tm.Size()), 1)
	b, err := newBase[T](tm, []uint64{n}, []pattern.Dist{dist}, spec, dtype)
	if err != nil {
		return nil, err
	}
	return &Array[T]{base: b}, nil
}

// At returns a GlobalRef to element i (spec: "c[i]").
func (a *Array[T]) At(i uint64) gptr.Ref[T] { return a.RefAt([]uint64{i}) }

// AsyncAt returns a GlobalAsyncRef to element i (spec: "c.async[i]").
func (a *Array[T]) AsyncAt(i uint64) gptr.AsyncRef[T] { return a.asyncRefAt([]uint64{i}) }

// Extents returns []uint64{n}.
func (a *Array[T]) Extents() []uint64 { return a.pat.Extents() }

// Extent returns n (d must be 0).
func (a *Array[T]) Extent(d int) uint64 { return a.pat.Extent(d) }

// Begin/End yield a canonical-order iterator over every global index,
// dereferencing through the pattern regardless of which unit owns
// each element (spec §3, §4.3).
func (a *Array[T]) Begin() *Iterator[T] { return newIterator[T](a.base, 0, a.pat.Size()) }
func (a *Array[T]) End() *Iterator[T]   { return newIterator[T](a.base, a.pat.Size(), a.pat.Size()) }

// LBegin/LEnd expose the local storage as a native slice
// (lend()-lbegin() == local_size(), spec §4.3).
func (a *Array[T]) LBegin() []T { return a.LSlice() }
