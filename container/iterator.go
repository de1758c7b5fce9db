package container

import (
	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/pattern"
)

// Iterator walks a container's (or, via view, a view's) index set in
// canonical order; dereferencing resolves the current global index
// through the pattern to a GlobalRef, which may be a local or a
// remote reference (spec §1 item 2, §4.4).
type Iterator[T any] struct {
	b       *base[T]
	extents []uint64
	cur     uint64
	end     uint64
}

func newIterator[T any](b *base[T], start, end uint64) *Iterator[T] {
	return &Iterator[T]{b: b, extents: b.pat.Extents(), cur: start, end: end}
}

// Done reports whether the iterator has reached its end.
func (it *Iterator[T]) Done() bool { return it.cur >= it.end }

// Next advances the iterator by one canonical-order position.
func (it *Iterator[T]) Next() { it.cur++ }

// Deref returns the GlobalRef at the current position.
func (it *Iterator[T]) Deref() gptr.Ref[T] {
	coords := pattern.CanonicalCoords(it.cur, it.extents)
	return it.b.RefAt(coords)
}

// Index returns the current canonical linear index.
func (it *Iterator[T]) Index() uint64 { return it.cur }

// Equal reports whether two iterators over the same container are at
// the same position (the idiomatic `it == end` loop guard).
func (it *Iterator[T]) Equal(o *Iterator[T]) bool { return it.cur == o.cur }
