// Package container implements the distributed Array and Matrix
// containers of spec §4.3: each owns a pattern, a region of global
// memory backed by the transport, and a team handle; iteration is
// linear over the global element sequence in canonical (row-major)
// order, dispatching per element through the pattern.
package container

import (
	"fmt"
	"unsafe"

	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/internal/debug"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

// base holds everything common to Array[T] and Matrix[T]; both are
// thin, rank-specialized wrappers around it (spec's own container
// taxonomy is "Array, Matrix" - two ranks of one underlying design,
// not two unrelated implementations).
type base[T any] struct {
	tm      *team.Team
	pat     *pattern.Pattern
	segment uint64
	dtype   transport.Dtype
	elem    uintptr

	localBytes []byte // nil if the transport has no LocalAddresser
}

func newBase[T any](tm *team.Team, extents []uint64, dists []pattern.Dist, spec team.Spec, dtype transport.Dtype) (*base[T], error) {
	if !tm.IsMember() {
		return nil, fmt.Errorf("container: calling unit is not a member of the team")
	}
	nunits := uint64(tm.Size())
	p, err := pattern.New(extents, dists, spec.Grid, nunits)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	var zero T
	elemSize := unsafe.Sizeof(zero)

	// Segments are symmetric (every unit contributes equal local
	// storage, per the GLOSSARY); patterns can be imbalanced, so the
	// allocated capacity per unit is the maximum local_size over all
	// units, not this unit's own (possibly smaller) local_size.
	var maxLocal uint64
	for u := uint64(0); u < nunits; u++ {
		if sz := p.LocalSize(u); sz > maxLocal {
			maxLocal = sz
		}
	}

	gp, err := tm.MemallocAligned(maxLocal * uint64(elemSize))
	if err != nil {
		return nil, fmt.Errorf("container: memalloc: %w", err)
	}

	b := &base[T]{tm: tm, pat: p, segment: gp.Segment, dtype: dtype, elem: elemSize}
	if la, ok := tm.Transport().(transport.LocalAddresser); ok {
		lb, err := la.LocalBytes(gp.Segment)
		if err != nil {
			return nil, fmt.Errorf("container: local bytes: %w", err)
		}
		b.localBytes = lb
	}
	return b, nil
}

func (b *base[T]) localPtr(localElemOffset uint64) unsafe.Pointer {
	if b.localBytes == nil {
		return nil
	}
	byteOff := localElemOffset * uint64(b.elem)
	return unsafe.Pointer(&b.localBytes[byteOff])
}

// RefAt builds a GlobalRef for global coordinates coords. Exported so
// the view package can dereference through an origin container
// without needing its own copy of the coordinate-mapping logic.
func (b *base[T]) RefAt(coords []uint64) gptr.Ref[T] {
	unit := b.pat.UnitAt(coords)
	localOff := b.pat.LocalAt(coords)
	var local unsafe.Pointer
	if unit == b.tm.Transport().MyUnit() {
		local = b.localPtr(localOff)
	}
	p := gptr.NewPointer(b.segment, unit, localOff*uint64(b.elem), b.tm.Transport().MyUnit(), b.elem, local)
	return gptr.NewRef[T](p, b.tm.Transport(), b.dtype)
}

func (b *base[T]) asyncRefAt(coords []uint64) gptr.AsyncRef[T] {
	unit := b.pat.UnitAt(coords)
	localOff := b.pat.LocalAt(coords)
	var local unsafe.Pointer
	if unit == b.tm.Transport().MyUnit() {
		local = b.localPtr(localOff)
	}
	p := gptr.NewPointer(b.segment, unit, localOff*uint64(b.elem), b.tm.Transport().MyUnit(), b.elem, local)
	return gptr.NewAsyncRef[T](p, b.tm.Transport(), b.dtype)
}

// LSlice returns the calling unit's local storage as a native []T,
// sized to the unit's logical local_size (not the padded allocation
// capacity). lend()-lbegin() == local_size() (spec §4.3 guarantee).
func (b *base[T]) LSlice() []T {
	myUnit := b.tm.Transport().MyUnit()
	n := b.pat.LocalSize(myUnit)
	if b.localBytes == nil || n == 0 {
		return nil
	}
	debug.Assertf(uint64(len(b.localBytes)) >= n*uint64(b.elem), "container: local capacity smaller than local_size")
	return unsafe.Slice((*T)(unsafe.Pointer(&b.localBytes[0])), n)
}

// Pattern exposes the container's pattern (read-only use: the
// container owns it).
func (b *base[T]) Pattern() *pattern.Pattern { return b.pat }

// Team exposes the owning team.
func (b *base[T]) Team() *team.Team { return b.tm }

// MyUnit exposes the calling unit's global id, needed by view.Local
// to decide ownership without reaching into the team/transport.
func (b *base[T]) MyUnit() uint64 { return b.tm.Transport().MyUnit() }

func (b *base[T]) Size() uint64 { return b.pat.Size() }

func (b *base[T]) LocalSize() uint64 { return b.pat.LocalSize(b.tm.Transport().MyUnit()) }

// Barrier is sugar for Team().Barrier().
func (b *base[T]) Barrier() error { return b.tm.Barrier() }

// Release frees the container's global memory segment. Collective;
// every unit must call it (spec §4.3: "destructor is collective").
func (b *base[T]) Release() error {
	return b.tm.Memfree(b.segment)
}

// Segment exposes the raw segment id, for anything that must name the
// container's memory outside this package.
func (b *base[T]) Segment() uint64 { return b.segment }

// Dtype exposes the element wire type.
func (b *base[T]) Dtype() transport.Dtype { return b.dtype }
