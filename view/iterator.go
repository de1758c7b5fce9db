package view

import (
	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/pattern"
)

// Iterator walks a View's index-set in canonical order, dereferencing
// through the origin container (spec §4.4 begin/end).
type Iterator[T any] struct {
	v   *View[T]
	idx []uint64
	pos int
}

// Begin returns an iterator at the view's first index.
func (v *View[T]) Begin() *Iterator[T] { return &Iterator[T]{v: v, idx: v.Index(), pos: 0} }

// End returns an iterator one past the view's last index.
func (v *View[T]) End() *Iterator[T] {
	idx := v.Index()
	return &Iterator[T]{v: v, idx: idx, pos: len(idx)}
}

// Done reports whether the iterator has reached its end.
func (it *Iterator[T]) Done() bool { return it.pos >= len(it.idx) }

// Next advances the iterator by one canonical-order position.
func (it *Iterator[T]) Next() { it.pos++ }

// Deref resolves the current index to a GlobalRef on the origin.
func (it *Iterator[T]) Deref() gptr.Ref[T] {
	linear := it.idx[it.pos]
	coords := pattern.CanonicalCoords(linear, it.v.origin.Pattern().Extents())
	return it.v.origin.RefAt(coords)
}

// Index returns the current global linear index (into the origin's
// full coordinate space, not the view's own window).
func (it *Iterator[T]) Index() uint64 { return it.idx[it.pos] }

// Equal reports whether two iterators over the same view are at the
// same position.
func (it *Iterator[T]) Equal(o *Iterator[T]) bool { return it.pos == o.pos }
