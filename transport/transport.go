// Package transport defines the one-sided transport interface
// consumed (not implemented) by the rest of dash per spec §6.2, plus
// one concrete in-process implementation (Loopback, in loopback.go)
// good enough to develop and test against.
//
// The real backend - RDMA/verbs, DMAPP, MPI one-sided, whatever a
// given deployment uses - is an external collaborator per spec §1;
// dash only ever talks to it through this interface.
package transport

import "errors"

// Dtype names a primitive element type recognized by the transport's
// native put/get/allreduce paths. Values outside this set must go
// through the byte-slice (raw) path.
type Dtype int

const (
	DtypeByte Dtype = iota
	DtypeInt32
	DtypeInt64
	DtypeUint32
	DtypeUint64
	DtypeFloat32
	DtypeFloat64
	DtypeRaw // opaque bytes, length carried out of band
)

// Op names a recognized reduction operator with a native all-reduce
// fast path (spec §4.5).
type Op int

const (
	OpSum Op = iota
	OpProd
	OpMin
	OpMax
	OpBAnd
	OpBOr
	OpBXor
	OpLAnd
	OpLOr
	OpCustom // user binop; requires a custom (type, op) pair
)

// Handle identifies an in-flight non-blocking transport operation.
type Handle uint64

// GPtr is the wire-level (segment, unit, offset) triple. It is
// intentionally untyped (bytes only) at the transport boundary; the
// gptr package's Pointer adds element size and element-wise arithmetic
// on top of this.
type GPtr struct {
	Segment uint64
	Unit    uint64
	Offset  uint64
}

// NullGPtr is the required GPTR_NULL sentinel (§6.2).
var NullGPtr = GPtr{Segment: ^uint64(0), Unit: ^uint64(0), Offset: ^uint64(0)}

func (g GPtr) IsNull() bool { return g == NullGPtr }

var ErrTransport = errors.New("transport: fatal transport error")

// Transport is the minimal one-sided layer enumerated in spec §6.2.
// Every method not explicitly documented as non-blocking is locally
// blocking: it returns once the source buffer may be reused, not once
// the write is remotely visible (see spec §5).
type Transport interface {
	// PutBlockingLocal issues a blocking put from src into the element(s)
	// at gptr. Locally blocking: returns once src may be reused.
	PutBlockingLocal(gptr GPtr, src []byte, nelem int, dtype Dtype) error

	// GetBlocking issues a blocking get of nelem elements at gptr into dst.
	GetBlocking(dst []byte, gptr GPtr, nelem int, dtype Dtype) error

	// Put issues a non-blocking put, returning a handle. The source
	// buffer may be reused once Put returns (the transport takes
	// ownership by copy or descriptor), but remote visibility is
	// established only by Flush or a team Barrier.
	Put(gptr GPtr, src []byte, nelem int, dtype Dtype) (Handle, error)

	// GetHandle issues a non-blocking get, returning a handle; dst is
	// populated once the handle completes (Test/Wait).
	GetHandle(dst []byte, gptr GPtr, nelem int, dtype Dtype) (Handle, error)

	// TestLocal polls handle for completion without blocking.
	TestLocal(h Handle) (done bool, err error)

	// Wait blocks until handle completes.
	Wait(h Handle) error

	// Flush drains all outstanding operations on gptr's segment at
	// gptr's target unit and establishes remote visibility.
	Flush(gptr GPtr) error

	// Barrier performs a collective synchronization across the nunits
	// members of the team named by teamID; also establishes remote
	// visibility. nunits is the team's own membership count, not
	// necessarily every unit known to the transport - a nested child
	// team barriers independently of units outside it.
	Barrier(teamID uint64, nunits uint64) error

	// Allreduce combines count elements of dtype from sendbuf into
	// recvbuf across the nunits members of teamID using op. For
	// OpCustom, binop must be supplied and is applied to whole
	// contributions (all count elements of one unit's buffer at a time);
	// dtype must still describe the element's wire width.
	Allreduce(sendbuf, recvbuf []byte, count int, dtype Dtype, op Op, teamID uint64, nunits uint64, binop func(dst, a, b []byte)) error

	// TeamMemallocAligned collectively allocates bytes of page-aligned
	// local storage per unit of teamID and returns a GPtr naming the new
	// segment on the calling unit (offset 0).
	TeamMemallocAligned(teamID uint64, bytes uint64) (GPtr, error)

	// TeamMemfree collectively releases a segment allocated by
	// TeamMemallocAligned.
	TeamMemfree(segment uint64) error

	// MyUnit returns the calling unit's id.
	MyUnit() uint64
}

// LocalAddresser is an optional capability a Transport may implement:
// direct access to the calling unit's own backing bytes for a
// segment, letting callers cache a native address for the GlobalRef
// local fast path (spec §4.2). Not every conceivable backend can
// expose this cheaply, so callers must type-assert for it rather than
// relying on it being part of the core Transport interface.
type LocalAddresser interface {
	LocalBytes(segment uint64) ([]byte, error)
}

// GptrSetUnit, GptrSetAddr, GptrIncAddr, GptrGetAddr are the §6.2
// pointer-manipulation primitives, expressed here as free functions
// over the value type GPtr rather than as transport methods (GPtr
// arithmetic needs no communication).
func GptrSetUnit(g GPtr, unit uint64) GPtr   { g.Unit = unit; return g }
func GptrSetAddr(g GPtr, offset uint64) GPtr { g.Offset = offset; return g }
func GptrIncAddr(g GPtr, delta uint64) GPtr  { g.Offset += delta; return g }
func GptrGetAddr(g GPtr) uint64              { return g.Offset }
