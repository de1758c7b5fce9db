// Package checkpoint implements an explicit, user-invoked export of a
// container's point-in-time contents (SPEC_FULL.md §9). It is not a
// replication or recovery mechanism: a unit calls Export once, walks
// its container's canonical order, shards the result, and uploads
// through a pluggable Backend. Nothing here runs automatically and
// nothing here participates in a team barrier.
package checkpoint

import (
	"context"
	"encoding/binary"
	"strconv"
	"unsafe"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
	cuckoo "github.com/seiflotfy/cuckoofilter"
	"github.com/teris-io/shortid"

	"github.com/Rodario/dash/gptr"
	"github.com/Rodario/dash/internal/nlog"
)

// Iterator is the subset of container.Iterator[T] (and view.Iterator[T])
// Export needs, letting a checkpoint export either a whole container
// or a narrowed view without this package depending on either one.
type Iterator[T any] interface {
	Done() bool
	Next()
	Deref() gptr.Ref[T]
}

// Source is anything Exporter can walk: container.Array[T] and
// container.Matrix[T] both expose Begin/End over their canonical
// order via the container package's *Iterator[T], and view.View[T]
// does the same over a narrowed window. I is carried as its own type
// parameter (rather than folded into the Iterator[T] interface)
// because Go requires a method's declared return type to match
// exactly for interface satisfaction - *container.Iterator[T] cannot
// satisfy "Begin() Iterator[T]" by itself, only "Begin() I" with I
// bound to that concrete type at instantiation.
type Source[T any, I Iterator[T]] interface {
	Begin() I
	End() I
}

// Shard is one contiguous slice of a snapshot's serialized element
// data, checksummed independently so a partial re-upload can skip
// shards that already match.
type Shard struct {
	Index    int
	Data     []byte
	Checksum uint64
	Parity   bool
}

// Manifest records what Export produced: every shard's checksum and
// storage key, plus the erasure-coding and encryption parameters
// needed to reconstruct the snapshot later.
type Manifest struct {
	SnapshotID   string
	ElementCount int
	ShardBytes   int
	DataShards   []ShardRef
	ParityShards []ShardRef
	Encrypted    bool
	DiskSample   *DiskThroughputSample
}

// ShardRef names one uploaded shard in the backend's key space.
type ShardRef struct {
	Key      string
	Checksum uint64
}

// Options configures one Export call.
type Options struct {
	ShardBytes     int  // target bytes per shard before erasure coding
	ECDataShards   int  // 0 or 1 disables erasure coding
	ECParityShards int
	Encrypt        bool
	EncryptKey     *[32]byte // required if Encrypt
	Dedup          bool      // skip shards whose checksum was already seen
}

func (o Options) withDefaults() Options {
	if o.ShardBytes <= 0 {
		o.ShardBytes = 4 << 20
	}
	return o
}

// Exporter walks a Source and uploads its sharded, optionally
// erasure-coded and encrypted content through a Backend.
type Exporter struct {
	backend Backend
	opts    Options
	seen    *cuckoo.Filter
}

// NewExporter constructs an Exporter over backend. If opts.Dedup is
// set, a cuckoo filter tracks shard checksums already uploaded in this
// Exporter's lifetime to skip redundant re-uploads of unchanged data.
func NewExporter(backend Backend, opts Options) *Exporter {
	e := &Exporter{backend: backend, opts: opts.withDefaults()}
	if e.opts.Dedup {
		e.seen = cuckoo.NewDefaultCuckooFilter()
	}
	return e
}

// Export walks src in canonical order, groups serialized elements into
// opts.ShardBytes-sized shards, optionally erasure-codes and encrypts
// them, and uploads through the Exporter's Backend. It returns a
// Manifest describing what was written; keeping the manifest is the
// caller's responsibility (checkpoint does not persist it itself).
func Export[T any, I Iterator[T]](ctx context.Context, e *Exporter, src Source[T, I], snapshotIDHint string) (Manifest, error) {
	snapshotID := snapshotIDHint
	if snapshotID == "" {
		sid, err := shortid.Generate()
		if err != nil {
			return Manifest{}, errors.Wrap(err, "checkpoint: generate snapshot id")
		}
		snapshotID = sid
	}

	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	shardElems := e.opts.ShardBytes / elemSize
	if shardElems == 0 {
		shardElems = 1
	}

	var shards []Shard
	buf := make([]byte, 0, shardElems*elemSize)
	count := 0
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		sum := xxhash.Checksum64(buf)
		shards = append(shards, Shard{Index: len(shards), Data: append([]byte(nil), buf...), Checksum: sum})
		buf = buf[:0]
		return nil
	}

	for it := src.Begin(); !it.Done(); it.Next() {
		v, err := it.Deref().Load()
		if err != nil {
			return Manifest{}, errors.Wrap(err, "checkpoint: load element")
		}
		buf = append(buf, elemBytes(v)...)
		count++
		if len(buf) >= shardElems*elemSize {
			if err := flush(); err != nil {
				return Manifest{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return Manifest{}, err
	}

	if e.opts.ECDataShards > 1 && e.opts.ECParityShards > 0 {
		var err error
		shards, err = encodeParity(shards, e.opts.ECDataShards, e.opts.ECParityShards)
		if err != nil {
			return Manifest{}, errors.Wrap(err, "checkpoint: erasure code")
		}
	}

	manifest := Manifest{SnapshotID: snapshotID, ElementCount: count, ShardBytes: e.opts.ShardBytes, Encrypted: e.opts.Encrypt}
	for _, sh := range shards {
		data := sh.Data
		if e.opts.Encrypt {
			var err error
			data, err = encrypt(data, e.opts.EncryptKey)
			if err != nil {
				return Manifest{}, errors.Wrap(err, "checkpoint: encrypt shard")
			}
		}
		if e.seen != nil {
			key := checksumKey(sh.Checksum)
			if e.seen.Lookup(key) {
				nlog.Infoln("checkpoint: skip duplicate shard", "snapshot", snapshotID, "shard", sh.Index)
				continue
			}
			e.seen.InsertUnique(key)
		}

		shardKey := shardObjectKey(snapshotID, sh.Index)
		if err := e.backend.Put(ctx, shardKey, data); err != nil {
			return Manifest{}, errors.Wrapf(err, "checkpoint: upload shard %d", sh.Index)
		}
		ref := ShardRef{Key: shardKey, Checksum: sh.Checksum}
		if sh.Parity {
			manifest.ParityShards = append(manifest.ParityShards, ref)
		} else {
			manifest.DataShards = append(manifest.DataShards, ref)
		}
	}

	if sample, ok := sampleDiskThroughput(); ok {
		manifest.DiskSample = &sample
	}

	nlog.Infoln("checkpoint: export complete", "snapshot", snapshotID, "elements", count, "shards", len(shards))
	return manifest, nil
}

func elemBytes[T any](v T) []byte {
	b := make([]byte, unsafe.Sizeof(v))
	copy(b, unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)))
	return b
}

func checksumKey(sum uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, sum)
	return b
}

func shardObjectKey(snapshotID string, index int) string {
	return snapshotID + "/shard-" + strconv.Itoa(index)
}
