package checkpoint

import (
	"context"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
)

// FetchDataShards downloads a manifest's data shards in order and
// decrypts them if the manifest says they were encrypted. It does not
// attempt parity reconstruction; a caller missing data shards needs
// reedsolomon.Reconstruct directly over FetchDataShards' gaps plus the
// manifest's ParityShards, which is deployment-specific enough that
// this package only hands back the pieces, not a policy for using them.
func FetchDataShards(ctx context.Context, backend Backend, m Manifest, key *[32]byte) ([][]byte, error) {
	out := make([][]byte, len(m.DataShards))
	for i, ref := range m.DataShards {
		raw, err := backend.Get(ctx, ref.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "checkpoint: fetch shard %s", ref.Key)
		}
		if m.Encrypted {
			raw, err = decrypt(raw, key)
			if err != nil {
				return nil, errors.Wrapf(err, "checkpoint: decrypt shard %s", ref.Key)
			}
		}
		if sum := xxhash.Checksum64(raw); sum != ref.Checksum {
			return nil, errors.Errorf("checkpoint: shard %s checksum mismatch (want %x got %x)", ref.Key, ref.Checksum, sum)
		}
		out[i] = raw
	}
	return out, nil
}
