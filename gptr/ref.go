package gptr

import (
	"unsafe"

	"github.com/Rodario/dash/transport"
)

// Ref is GlobalRef<T>: a global pointer with synchronous read/write
// semantics (spec §4.2). It behaves like a reference but is a cheap-
// to-copy value type (spec DESIGN NOTES: "global references as
// values, not objects") - assignment and conversion are explicit
// methods (Store/Load) rather than language reference machinery.
type Ref[T any] struct {
	Ptr   Pointer
	tr    transport.Transport
	dtype transport.Dtype
}

// NewRef constructs a GlobalRef<T> over ptr. dtype must describe T's
// wire representation for the non-local path.
func NewRef[T any](ptr Pointer, tr transport.Transport, dtype transport.Dtype) Ref[T] {
	return Ref[T]{Ptr: ptr, tr: tr, dtype: dtype}
}

func sizeofT[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Load reads the referent: a direct local load if Ptr.IsLocal, else a
// blocking get through the transport (spec §4.2).
func (r Ref[T]) Load() (T, error) {
	var out T
	if local := r.Ptr.ToLocal(); local != nil {
		return *(*T)(local), nil
	}
	n := sizeofT[T]()
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&out)), n)
	if err := r.tr.GetBlocking(buf, r.Ptr.Raw(), 1, r.dtype); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Store writes v to the referent: a direct local store if Ptr.IsLocal,
// else a blocking-from-the-caller's-perspective put (the transport
// guarantees source-buffer reuse, not remote visibility - spec §4.2).
func (r Ref[T]) Store(v T) error {
	if local := r.Ptr.ToLocal(); local != nil {
		*(*T)(local) = v
		return nil
	}
	n := sizeofT[T]()
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&v)), n)
	return r.tr.PutBlockingLocal(r.Ptr.Raw(), buf, 1, r.dtype)
}

// Member rebinds r to a GlobalRef<M> at byteOffset within T, per spec
// §4.2 "member(offset)". Go methods can't add their own type
// parameters, so this is a free function rather than a Ref[T] method.
func Member[T, M any](r Ref[T], byteOffset uintptr, dtype transport.Dtype) Ref[M] {
	var zero M
	return Ref[M]{
		Ptr:   r.Ptr.IncrementAddress(byteOffset, unsafe.Sizeof(zero)),
		tr:    r.tr,
		dtype: dtype,
	}
}

// Swap exchanges the referents of a and b through a temporary of the
// value type (spec §4.2: "swap(a,b) uses a temporary through the
// value type"). Copy of Ref itself is otherwise cheap and allowed
// (only the *container* is non-copyable through the reference, not
// the reference value).
func Swap[T any](a, b Ref[T]) error {
	va, err := a.Load()
	if err != nil {
		return err
	}
	vb, err := b.Load()
	if err != nil {
		return err
	}
	if err := a.Store(vb); err != nil {
		return err
	}
	return b.Store(va)
}
