// Package view implements the lazy sub/local/index view algebra of
// spec §4.4. A View never copies element data; it stores a window
// (an absolute offset/extent per dimension of its origin container)
// plus, after Local on a non-rectangular distribution, a flattened
// list of owned global linear indices. Composition of sub ranges
// commutes because each dimension's window is independent of the
// others, which is the composition law spec §4.4 requires.
package view

import (
	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/internal/debug"
	"github.com/Rodario/dash/pattern"
)

// Origin is anything a View can be built over: container.Array[T] and
// container.Matrix[T] satisfy it via their embedded base methods.
type Origin[T any] interface {
	Pattern() *pattern.Pattern
	MyUnit() uint64
	RefAt(coords []uint64) gptr.Ref[T]
}

// View is the tagged-variant chain of transformations described in
// spec §4.4's "implementation at design level": a rectangular window
// (offsets/extents), optionally collapsed by Local into an explicit
// index enumeration when the origin's distribution is not locally
// contiguous.
type View[T any] struct {
	origin  Origin[T]
	offsets []uint64
	extents []uint64

	flat    bool
	flatIdx []uint64
}

// New constructs the full view over origin: every global index, one
// window per dimension spanning [0, extent).
func New[T any](origin Origin[T]) *View[T] {
	ext := origin.Pattern().Extents()
	return &View[T]{origin: origin, offsets: make([]uint64, len(ext)), extents: append([]uint64(nil), ext...)}
}

func (v *View[T]) clone() *View[T] {
	nv := &View[T]{
		origin:  v.origin,
		offsets: append([]uint64(nil), v.offsets...),
		extents: append([]uint64(nil), v.extents...),
		flat:    v.flat,
	}
	if v.flat {
		nv.flatIdx = append([]uint64(nil), v.flatIdx...)
	}
	return nv
}

// Sub narrows dimension d to [a, b), preserving rank. Out-of-range
// ranges are a precondition violation (spec §4.4 "Failure"), asserted
// only in debug builds.
func (v *View[T]) Sub(d int, a, b uint64) *View[T] {
	debug.Assertf(!v.flat, "view: Sub after Local flattening is undefined")
	debug.Assertf(d >= 0 && d < len(v.extents), "view: dim %d out of range [0,%d)", d, len(v.extents))
	debug.Assertf(a <= b && b <= v.extents[d], "view: sub<%d>(%d,%d) out of [0,%d)", d, a, b, v.extents[d])
	nv := v.clone()
	nv.offsets[d] += a
	nv.extents[d] = b - a
	return nv
}

// isFlattening reports whether dimension d's distribution makes a
// unit's local share of it non-contiguous (Cyclic/BlockCyclic): spec
// §4.4 says Local's extents flatten to a 1-D sequence for these,
// staying rectangular for None/Blocked/Tile.
func isFlattening(tag pattern.Tag) bool {
	return tag == pattern.Cyclic || tag == pattern.BlockCyclic
}

// Local restricts the view to indices owned by the calling unit. For
// None/Blocked/Tile dimensions the result stays a rectangle
// (intersected with the current window via Pattern.BoundingBox; for a
// Tile dimension in which the unit owns several tiles, that box also
// spans the other units' tiles lying between them); if
// any dimension is Cyclic/BlockCyclic the whole view collapses to an
// explicit, sorted-by-canonical-index 1-D sequence, per spec §4.4. A
// unit that owns nothing in the current window gets a zero-extent
// view, which is well-defined.
func (v *View[T]) Local() *View[T] {
	if v.flat {
		return v.clone()
	}
	p := v.origin.Pattern()
	myUnit := v.origin.MyUnit()

	cyclicLike := false
	for d := 0; d < p.Rank(); d++ {
		if isFlattening(p.DistAt(d).Tag) {
			cyclicLike = true
			break
		}
	}
	if !cyclicLike {
		nv := v.clone()
		for d := 0; d < p.Rank(); d++ {
			boxOff, boxExt := p.BoundingBox(d, myUnit)
			lo := max64(nv.offsets[d], boxOff)
			hi := min64(nv.offsets[d]+nv.extents[d], boxOff+boxExt)
			if hi < lo {
				hi = lo
			}
			nv.offsets[d] = lo
			nv.extents[d] = hi - lo
		}
		return nv
	}

	ext := p.Extents()
	var idx []uint64
	forEachInWindow(v.offsets, v.extents, func(coords []uint64) {
		if p.UnitAt(coords) == myUnit {
			idx = append(idx, pattern.CanonicalIndex(coords, ext))
		}
	})
	return &View[T]{origin: v.origin, offsets: []uint64{0}, extents: []uint64{uint64(len(idx))}, flat: true, flatIdx: idx}
}

// Index returns the view's index-set as global linear indices in
// canonical order.
func (v *View[T]) Index() []uint64 {
	if v.flat {
		return append([]uint64(nil), v.flatIdx...)
	}
	ext := v.origin.Pattern().Extents()
	var idx []uint64
	forEachInWindow(v.offsets, v.extents, func(coords []uint64) {
		idx = append(idx, pattern.CanonicalIndex(coords, ext))
	})
	return idx
}

// Extents returns the view's per-dimension extents (length 1 after a
// flattening Local).
func (v *View[T]) Extents() []uint64 { return append([]uint64(nil), v.extents...) }

// Extent returns the extent of dimension d.
func (v *View[T]) Extent(d int) uint64 { return v.extents[d] }

// Offsets returns the view's per-dimension offsets into the origin's
// global coordinate space.
func (v *View[T]) Offsets() []uint64 { return append([]uint64(nil), v.offsets...) }

// Size returns the number of indices the view names.
func (v *View[T]) Size() uint64 {
	n := uint64(1)
	for _, e := range v.extents {
		n *= e
	}
	return n
}

// Ndim returns the view's current rank.
func (v *View[T]) Ndim() int { return len(v.extents) }

func forEachInWindow(offsets, extents []uint64, fn func(coords []uint64)) {
	r := len(extents)
	coords := make([]uint64, r)
	var rec func(d int)
	rec = func(d int) {
		if d == r {
			fn(append([]uint64(nil), coords...))
			return
		}
		for i := uint64(0); i < extents[d]; i++ {
			coords[d] = offsets[d] + i
			rec(d + 1)
		}
	}
	rec(0)
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
