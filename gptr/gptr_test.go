package gptr_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/transport"
)

func TestRefLocalAndRemote(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	raw, err := units[0].TeamMemallocAligned(0, 64)
	require.NoError(t, err)
	seg := raw.Segment

	// unit 0's ref to its own local element
	var local0 int64
	p0 := gptr.NewPointer(seg, 0, 0, 0, unsafe.Sizeof(local0), unsafe.Pointer(&local0))
	r0 := gptr.NewRef[int64](p0, units[0], transport.DtypeInt64)
	require.NoError(t, r0.Store(7))
	v, err := r0.Load()
	require.NoError(t, err)
	require.Equal(t, int64(7), v)
	require.Equal(t, int64(7), local0) // local store really did write through

	// unit 1 writes to unit 0's element remotely
	p1 := gptr.NewPointer(seg, 0, 0, 1, unsafe.Sizeof(local0), nil)
	r1 := gptr.NewRef[int64](p1, units[1], transport.DtypeInt64)
	require.NoError(t, r1.Store(99))
	got, err := r1.Load()
	require.NoError(t, err)
	require.Equal(t, int64(99), got)
}

func TestFutureRoundTrip(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	raw, err := units[0].TeamMemallocAligned(0, 64)
	require.NoError(t, err)
	seg := raw.Segment

	var local0 int64 = 123
	p0 := gptr.NewPointer(seg, 0, 0, 0, unsafe.Sizeof(local0), unsafe.Pointer(&local0))
	require.NoError(t, units[0].PutBlockingLocal(p0.Raw(), int64Bytes(123), 1, transport.DtypeInt64))

	// unit 1 reads unit 0's element asynchronously
	p1 := gptr.NewPointer(seg, 0, 0, 1, 8, nil)
	f := gptr.NewFuture[int64](p1, units[1], transport.DtypeInt64)
	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, int64(123), v)
}

func int64Bytes(v int64) []byte {
	return (*[8]byte)(unsafe.Pointer(&v))[:]
}

func TestAsyncRefFlushVisibility(t *testing.T) {
	units := transport.NewLoopbackTeam(2)
	raw, err := units[0].TeamMemallocAligned(0, 64)
	require.NoError(t, err)
	seg := raw.Segment

	p1 := gptr.NewPointer(seg, 0, 0, 1, 8, nil)
	ar := gptr.NewAsyncRef[int64](p1, units[1], transport.DtypeInt64)
	h, err := ar.Store(55)
	require.NoError(t, err)
	require.NoError(t, units[1].Wait(h))
	require.NoError(t, ar.Flush())

	p0 := gptr.NewPointer(seg, 0, 0, 0, 8, nil)
	r0 := gptr.NewRef[int64](p0, units[0], transport.DtypeInt64)
	v, err := r0.Load()
	require.NoError(t, err)
	require.Equal(t, int64(55), v)
}
