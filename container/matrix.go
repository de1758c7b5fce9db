package container

import (
	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

// Matrix is the rank-2 distributed container of spec §6.1. Go has no
// operator[][], so c[i][j] from the spec becomes c.At(i, j).
type Matrix[T any] struct {
	*base[T]
}

// NewMatrix collectively constructs a rows x cols matrix over tm, with
// a per-dimension distribution and an explicit team grid (spec
// §6.1: "Matrix<T,R>(extents, dist, team, teamspec)").
func NewMatrix[T any](tm *team.Team, rows, cols uint64, distRows, distCols pattern.Dist, spec team.Spec, dtype transport.Dtype) (*Matrix[T], error) {
	b, err := newBase[T](tm, []uint64{rows, cols}, []pattern.Dist{distRows, distCols}, spec, dtype)
	if err != nil {
		return nil, err
	}
	return &Matrix[T]{base: b}, nil
}

// At returns a GlobalRef to element (i,j).
func (m *Matrix[T]) At(i, j uint64) gptr.Ref[T] { return m.RefAt([]uint64{i, j}) }

// AsyncAt returns a GlobalAsyncRef to element (i,j).
func (m *Matrix[T]) AsyncAt(i, j uint64) gptr.AsyncRef[T] { return m.asyncRefAt([]uint64{i, j}) }

// Extents returns {rows, cols}.
func (m *Matrix[T]) Extents() []uint64 { return m.pat.Extents() }

// Extent returns rows (d==0) or cols (d==1).
func (m *Matrix[T]) Extent(d int) uint64 { return m.pat.Extent(d) }

func (m *Matrix[T]) Begin() *Iterator[T] { return newIterator[T](m.base, 0, m.pat.Size()) }
func (m *Matrix[T]) End() *Iterator[T]   { return newIterator[T](m.base, m.pat.Size(), m.pat.Size()) }

func (m *Matrix[T]) LBegin() []T { return m.LSlice() }
