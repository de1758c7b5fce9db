// Package gptr implements the global-memory access layer of spec §4.2:
// GlobalPointer, GlobalRef, GlobalAsyncRef and Future. These translate
// a (unit, offset) pair into either a direct local memory access or a
// transport.Transport call (spec §1 item 3).
package gptr

import (
	"fmt"
	"unsafe"

	"github.com/Rodario/dash/internal/debug"
	"github.com/Rodario/dash/transport"
)

// Pointer is the logical (segment, unit, offset) triple of spec §3.
// It is a value type: cheap to copy, comparable with ==.
type Pointer struct {
	raw    transport.GPtr
	myUnit uint64 // the calling unit's id, needed for IsLocal/ToLocal
	local  unsafe.Pointer
	elem   uintptr // element size in bytes, needed for arithmetic
}

// Null is the distinguished null pointer value (spec §3).
func Null(myUnit uint64) Pointer {
	return Pointer{raw: transport.NullGPtr, myUnit: myUnit}
}

// NewPointer builds a pointer into segment at (unit, offset), with
// local caching the native address when unit==myUnit (nil otherwise).
func NewPointer(segment, unit, offset, myUnit uint64, elemSize uintptr, local unsafe.Pointer) Pointer {
	return Pointer{
		raw:    transport.GPtr{Segment: segment, Unit: unit, Offset: offset},
		myUnit: myUnit,
		local:  local,
		elem:   elemSize,
	}
}

func (p Pointer) IsNull() bool { return p.raw.IsNull() }

// IsLocal reports whether p's unit is the calling unit's own id.
func (p Pointer) IsLocal() bool { return !p.IsNull() && p.raw.Unit == p.myUnit }

// ToLocal returns a native address if IsLocal, else nil.
func (p Pointer) ToLocal() unsafe.Pointer {
	if !p.IsLocal() {
		return nil
	}
	return p.local
}

func (p Pointer) Segment() uint64 { return p.raw.Segment }
func (p Pointer) Unit() uint64    { return p.raw.Unit }
func (p Pointer) Offset() uint64  { return p.raw.Offset }
func (p Pointer) Raw() transport.GPtr { return p.raw }

// Equal reports field-wise equality of the logical triple (spec §3:
// "Two global pointers are equal iff all three fields agree").
func (p Pointer) Equal(o Pointer) bool { return p.raw == o.raw }

// Add advances the pointer by k elements in pattern order within its
// segment. Loopback's (and any real transport's) flattening is
// row-major-canonical-order over a team's segment, so within a
// dash-managed segment "pattern order" coincides with linear byte
// offset; advancing may cross a unit boundary, so callers must re-
// derive unit/offset via the owning container's pattern rather than
// assume Add stays on one unit. linearIndex maps the current (unit,
// local element offset) to its linear index; ownerAt resolves the
// (unit, localOffset) for the new linear index.
func (p Pointer) Add(k int64, linearIndex func(unit, offset uint64) int64, ownerAt func(linear int64) (unit, offset uint64)) Pointer {
	debug.Assert(!p.IsNull(), "gptr: Add on null pointer")
	cur := linearIndex(p.raw.Unit, p.raw.Offset/p.elem)
	next := cur + k
	unit, localElemOffset := ownerAt(next)
	np := p
	np.raw.Unit = unit
	np.raw.Offset = localElemOffset * uint64(p.elem)
	if unit != p.myUnit {
		np.local = nil
	}
	return np
}

// IncrementAddress rebinds the pointer to a struct member at a fixed
// byte offset within the pointed-to element (spec §4.2
// increment_address). The caller supplies the member's size.
func (p Pointer) IncrementAddress(byteOffset uintptr, memberSize uintptr) Pointer {
	np := p
	np.raw.Offset += uint64(byteOffset)
	np.elem = memberSize
	if np.local != nil {
		np.local = unsafe.Add(np.local, byteOffset)
	}
	return np
}

func (p Pointer) String() string {
	if p.IsNull() {
		return "gptr(null)"
	}
	return fmt.Sprintf("gptr(seg=%d,unit=%d,off=%d)", p.raw.Segment, p.raw.Unit, p.raw.Offset)
}
