package transport

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	lz4 "github.com/pierrec/lz4/v3"

	"github.com/Rodario/dash/internal/config"
	"github.com/Rodario/dash/internal/debug"
	"github.com/Rodario/dash/internal/nlog"
)

// sharedArena is the in-process memory all units of one simulated team
// share. A real backend would have each unit's segment live in a
// different process's address space, reachable only via RDMA; here
// everything is one process, so the arena is just a map - the point of
// Loopback is to exercise the *protocol* (handles, flush, barrier,
// allreduce semantics), not to emulate network latency.
type sharedArena struct {
	mu       sync.RWMutex
	nunits   uint64
	segments map[uint64][][]byte // segment -> per-unit backing bytes
	unmap    map[uint64][]func() // segment -> per-unit unmap funcs
	nextSeg  atomic.Uint64

	handles    sync.Map // Handle -> *pendingOp
	nextHandle atomic.Uint64

	barriers   sync.Map // teamID -> *collective
	allreduces sync.Map // teamID -> *collective
}

type pendingOp struct {
	done chan struct{}
	err  error
}

func newSharedArena(nunits uint64) *sharedArena {
	return &sharedArena{
		nunits:   nunits,
		segments: make(map[uint64][][]byte),
		unmap:    make(map[uint64][]func()),
	}
}

// Loopback is a Transport bound to one simulated unit within a shared
// arena. Build a team of them with NewLoopbackTeam.
type Loopback struct {
	arena  *sharedArena
	myUnit uint64
}

// NewLoopbackTeam builds nunits Loopback transports sharing one arena,
// indexed by unit id 0..nunits-1.
func NewLoopbackTeam(nunits uint64) []*Loopback {
	arena := newSharedArena(nunits)
	out := make([]*Loopback, nunits)
	for u := uint64(0); u < nunits; u++ {
		out[u] = &Loopback{arena: arena, myUnit: u}
	}
	return out
}

func (l *Loopback) MyUnit() uint64 { return l.myUnit }

// LocalBytes returns this unit's raw backing bytes for segment,
// letting callers (the container package) cache a native pointer for
// GlobalRef's local fast path (spec §4.2: "local path uses direct
// memory access"). This is not part of the minimal §6.2 interface -
// it's an explicit extension a real one-sided backend would also need
// to expose in some form (the base address of a locally-owned RDMA
// window), so LocalAddresser is an optional capability callers
// type-assert for rather than a required Transport method.
func (l *Loopback) LocalBytes(segment uint64) ([]byte, error) {
	segs := l.seg(segment)
	if segs == nil || l.myUnit >= uint64(len(segs)) {
		return nil, fmt.Errorf("%w: no local bytes for segment %d", ErrTransport, segment)
	}
	return segs[l.myUnit], nil
}

func (l *Loopback) seg(segment uint64) [][]byte {
	l.arena.mu.RLock()
	defer l.arena.mu.RUnlock()
	return l.arena.segments[segment]
}

func (l *Loopback) TeamMemallocAligned(teamID uint64, bytes uint64) (GPtr, error) {
	l.arena.mu.Lock()
	segID := l.arena.nextSeg.Add(1)
	perUnit := make([][]byte, l.arena.nunits)
	unmaps := make([]func(), l.arena.nunits)
	for u := uint64(0); u < l.arena.nunits; u++ {
		b, unmap, err := mmapAlloc(bytes)
		if err != nil {
			l.arena.mu.Unlock()
			return NullGPtr, fmt.Errorf("transport: memalloc unit %d: %w", u, err)
		}
		perUnit[u] = b
		unmaps[u] = unmap
	}
	l.arena.segments[segID] = perUnit
	l.arena.unmap[segID] = unmaps
	l.arena.mu.Unlock()
	nlog.Infoln("team_memalloc_aligned", "segment", segID, "bytes", bytes, "nunits", l.arena.nunits)
	return GPtr{Segment: segID, Unit: l.myUnit, Offset: 0}, nil
}

func (l *Loopback) TeamMemfree(segment uint64) error {
	l.arena.mu.Lock()
	defer l.arena.mu.Unlock()
	for _, unmap := range l.arena.unmap[segment] {
		if unmap != nil {
			unmap()
		}
	}
	delete(l.arena.segments, segment)
	delete(l.arena.unmap, segment)
	return nil
}

func (l *Loopback) target(gptr GPtr, nbytes int) ([]byte, error) {
	segs := l.seg(gptr.Segment)
	if segs == nil {
		return nil, fmt.Errorf("%w: unknown segment %d", ErrTransport, gptr.Segment)
	}
	if gptr.Unit >= uint64(len(segs)) {
		return nil, fmt.Errorf("%w: unit %d out of range", ErrTransport, gptr.Unit)
	}
	buf := segs[gptr.Unit]
	end := gptr.Offset + uint64(nbytes)
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: offset+len %d exceeds segment size %d", ErrTransport, end, len(buf))
	}
	return buf[gptr.Offset:end], nil
}

func maybeCompress(b []byte) []byte {
	cfg := config.Get()
	if !cfg.CompressionEnabled || len(b) < cfg.CompressionMinSize {
		return b
	}
	// Compression here is purely a throughput optimization exercised on
	// the wire between the copy into src and the copy into the target
	// arena; Loopback decompresses immediately since there's no actual
	// network hop, but doing the round trip keeps the code path (and
	// the lz4 dependency) honest rather than decorative.
	out := make([]byte, lz4.CompressBlockBound(len(b)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(b, out, ht[:])
	if err != nil || n == 0 || n >= len(b) {
		return b
	}
	dec := make([]byte, len(b))
	if _, err := lz4.UncompressBlock(out[:n], dec); err != nil {
		return b
	}
	debug.Assert(xxhash.Checksum64(dec) == xxhash.Checksum64(b), "lz4 round trip checksum mismatch")
	return dec
}

func (l *Loopback) PutBlockingLocal(gptr GPtr, src []byte, nelem int, dtype Dtype) error {
	nbytes := nelem * dtypeWidth(dtype)
	dst, err := l.target(gptr, nbytes)
	if err != nil {
		return err
	}
	copy(dst, maybeCompress(src[:nbytes]))
	return nil
}

func (l *Loopback) GetBlocking(dst []byte, gptr GPtr, nelem int, dtype Dtype) error {
	nbytes := nelem * dtypeWidth(dtype)
	src, err := l.target(gptr, nbytes)
	if err != nil {
		return err
	}
	copy(dst[:nbytes], src)
	return nil
}

func (l *Loopback) newHandle() (Handle, *pendingOp) {
	h := Handle(l.arena.nextHandle.Add(1))
	op := &pendingOp{done: make(chan struct{})}
	l.arena.handles.Store(h, op)
	return h, op
}

func (l *Loopback) Put(gptr GPtr, src []byte, nelem int, dtype Dtype) (Handle, error) {
	h, op := l.newHandle()
	payload := append([]byte(nil), src[:nelem*dtypeWidth(dtype)]...)
	go func() {
		op.err = l.PutBlockingLocal(gptr, payload, nelem, dtype)
		close(op.done)
	}()
	return h, nil
}

func (l *Loopback) GetHandle(dst []byte, gptr GPtr, nelem int, dtype Dtype) (Handle, error) {
	h, op := l.newHandle()
	go func() {
		op.err = l.GetBlocking(dst, gptr, nelem, dtype)
		close(op.done)
	}()
	return h, nil
}

func (l *Loopback) TestLocal(h Handle) (bool, error) {
	v, ok := l.arena.handles.Load(h)
	if !ok {
		return true, nil
	}
	op := v.(*pendingOp)
	select {
	case <-op.done:
		l.arena.handles.Delete(h)
		return true, op.err
	default:
		return false, nil
	}
}

func (l *Loopback) Wait(h Handle) error {
	v, ok := l.arena.handles.Load(h)
	if !ok {
		return nil
	}
	op := v.(*pendingOp)
	<-op.done
	l.arena.handles.Delete(h)
	return op.err
}

func (l *Loopback) Flush(gptr GPtr) error {
	// Loopback's arena is a single shared address space: every write is
	// physically visible the instant it lands, but a Put or GetHandle
	// runs on its own goroutine and may not have landed yet. Flush waits
	// for every operation still outstanding in the arena (not only those
	// on gptr's segment and unit); their handles stay registered for
	// TestLocal/Wait to collect.
	_ = gptr
	l.arena.handles.Range(func(_, v any) bool {
		<-v.(*pendingOp).done
		return true
	})
	return nil
}

// barrierFor looks up (or creates) the collective for teamID, sized to
// nunits - the calling team's own membership, which for a nested child
// team is smaller than the arena's total unit count. Every member of a
// given teamID must agree on nunits (they all derive it the same way,
// from their own Team.Size()), since only the first LoadOrStore's size
// takes effect.
func (l *Loopback) barrierFor(teamID, nunits uint64) *collective {
	v, _ := l.arena.barriers.LoadOrStore(teamID, newCollective(nunits))
	return v.(*collective)
}

func (l *Loopback) Barrier(teamID, nunits uint64) error {
	_, err := l.barrierFor(teamID, nunits).enter(l.myUnit, nil, nil)
	return err
}

func (l *Loopback) allreduceFor(teamID, nunits uint64) *collective {
	v, _ := l.arena.allreduces.LoadOrStore(teamID, newCollective(nunits))
	return v.(*collective)
}

func (l *Loopback) Allreduce(sendbuf, recvbuf []byte, count int, dtype Dtype, op Op, teamID, nunits uint64, binop func(dst, a, b []byte)) error {
	nbytes := count * dtypeWidth(dtype)
	contribution := append([]byte(nil), sendbuf[:nbytes]...)
	result, err := l.allreduceFor(teamID, nunits).enter(l.myUnit, contribution, func(all map[uint64][]byte) ([]byte, error) {
		// Fold in ascending global-unit-id order rather than ranging the
		// map directly: a child team's member ids need not be contiguous
		// (e.g. {1,3} of a 4-unit arena), and a deterministic fold order
		// matters for a non-commutative OpCustom binop.
		units := make([]uint64, 0, len(all))
		for u := range all {
			units = append(units, u)
		}
		sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })

		var acc []byte
		for i, u := range units {
			buf := all[u]
			if i == 0 {
				acc = append([]byte(nil), buf...)
				continue
			}
			if op == OpCustom {
				if binop == nil {
					return nil, fmt.Errorf("transport: OpCustom requires a binop")
				}
				binop(acc, acc, buf)
			} else if err := applyNativeOp(acc, acc, buf, count, dtype, op); err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	if err != nil {
		return err
	}
	copy(recvbuf[:nbytes], result)
	return nil
}
