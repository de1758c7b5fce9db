package gptr

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"github.com/Rodario/dash/transport"
)

var errFutureDrained = errors.New("gptr: future already drained")

// Future is Future<GlobalRef<T>>: a transport handle plus a value
// buffer and a completion flag (spec §4.2). Constructed from a
// pointer (typically a GlobalRef's or GlobalAsyncRef's), it issues a
// handle-returning get immediately. test polls, wait blocks, get
// implies wait and returns the buffered value.
//
// Futures are conceptually move-only (spec: "not copyable"); Go can't
// enforce that, so callers must simply not copy a *Future after first
// use. Destruction of an incomplete future drains the handle (the
// "wait on drop" contract of spec §9) via a finalizer, so a future let
// go out of scope without an explicit Wait doesn't leak the
// transport's handle table entry.
type Future[T any] struct {
	mu      sync.Mutex
	tr      transport.Transport
	ptr     Pointer
	dtype   transport.Dtype
	handle  transport.Handle
	local   bool
	value   T
	done    bool
	drained bool
	err     error
}

// NewFuture issues a non-blocking read of ptr's referent immediately.
func NewFuture[T any](ptr Pointer, tr transport.Transport, dtype transport.Dtype) *Future[T] {
	f := &Future[T]{tr: tr, ptr: ptr, dtype: dtype}
	if local := ptr.ToLocal(); local != nil {
		f.local = true
		f.value = *(*T)(local)
		f.done = true
	} else {
		n := sizeofT[T]()
		buf := unsafe.Slice((*byte)(unsafe.Pointer(&f.value)), n)
		h, err := tr.GetHandle(buf, ptr.Raw(), 1, dtype)
		f.handle = h
		f.err = err
	}
	runtime.SetFinalizer(f, func(f *Future[T]) { _ = f.drain() })
	return f
}

// Test polls for completion without blocking.
func (f *Future[T]) Test() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done || f.local {
		return true, f.err
	}
	done, err := f.tr.TestLocal(f.handle)
	if err != nil {
		f.err = err
	}
	if done {
		f.done = true
	}
	return done, f.err
}

// Wait blocks until the future completes.
func (f *Future[T]) Wait() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitLocked()
}

func (f *Future[T]) waitLocked() error {
	if f.done || f.local {
		return f.err
	}
	if err := f.tr.Wait(f.handle); err != nil {
		f.err = err
	}
	f.done = true
	return f.err
}

// Get implies Wait and returns the buffered value. Once drained (see
// drain) Get returns errFutureDrained rather than stale state.
func (f *Future[T]) Get() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.drained {
		var zero T
		return zero, errFutureDrained
	}
	if err := f.waitLocked(); err != nil {
		var zero T
		return zero, err
	}
	return f.value, nil
}

// drain implements "wait on drop": it ensures the underlying handle is
// not left outstanding even if the caller never called Wait/Get.
func (f *Future[T]) drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.drained {
		return nil
	}
	err := f.waitLocked()
	f.drained = true
	return err
}
