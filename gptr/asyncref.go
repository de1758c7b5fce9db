package gptr

import (
	"unsafe"

	"github.com/Rodario/dash/transport"
)

// AsyncRef is GlobalAsyncRef<T>: write-only, non-blocking (spec
// §4.2). Assignment issues a non-blocking put; reads go through
// Future (future.go). Flush drains all outstanding operations on the
// referent's segment at its target unit and establishes remote
// visibility - until then, even a same-unit read of the same location
// is unspecified (spec §4.2, §9 Open Question (b)).
type AsyncRef[T any] struct {
	Ptr   Pointer
	tr    transport.Transport
	dtype transport.Dtype
}

func NewAsyncRef[T any](ptr Pointer, tr transport.Transport, dtype transport.Dtype) AsyncRef[T] {
	return AsyncRef[T]{Ptr: ptr, tr: tr, dtype: dtype}
}

// Store issues a non-blocking put of v. The source is copied
// internally by the transport so v may be reused/go out of scope
// immediately on return; remote visibility still requires Flush.
func (r AsyncRef[T]) Store(v T) (transport.Handle, error) {
	n := sizeofT[T]()
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&v)), n)
	return r.tr.Put(r.Ptr.Raw(), buf, 1, r.dtype)
}

// Flush drains all outstanding writes on this referent's segment at
// its target unit and establishes remote visibility.
func (r AsyncRef[T]) Flush() error {
	return r.tr.Flush(r.Ptr.Raw())
}

// MemberAsync is the async analogue of gptr.Member.
func MemberAsync[T, M any](r AsyncRef[T], byteOffset uintptr, dtype transport.Dtype) AsyncRef[M] {
	var zero M
	return AsyncRef[M]{
		Ptr:   r.Ptr.IncrementAddress(byteOffset, unsafe.Sizeof(zero)),
		tr:    r.tr,
		dtype: dtype,
	}
}
