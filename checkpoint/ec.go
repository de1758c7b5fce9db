package checkpoint

import (
	"github.com/OneOfOne/xxhash"
	"github.com/klauspost/reedsolomon"
)

// encodeParity pads dataShards' content shards to equal length and
// appends parityShards computed reed-solomon shards after them, so a
// snapshot can tolerate losing up to parityShards data or parity
// shards. Returns the data shards unchanged (aside from zero-padding)
// followed by the parity shards, indices continuing from len(shards).
func encodeParity(shards []Shard, dataShards, parityShards int) ([]Shard, error) {
	if len(shards) == 0 {
		return shards, nil
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}

	// reedsolomon.Encode requires exactly dataShards equal-length
	// slices; group the export's shards into batches of dataShards and
	// encode each batch independently, since a snapshot's shard count
	// need not be a multiple of dataShards.
	var out []Shard
	for i := 0; i < len(shards); i += dataShards {
		batch := shards[i:min(i+dataShards, len(shards))]
		width := 0
		for _, s := range batch {
			if len(s.Data) > width {
				width = len(s.Data)
			}
		}
		all := make([][]byte, dataShards+parityShards)
		for j := 0; j < dataShards; j++ {
			all[j] = make([]byte, width)
			if j < len(batch) {
				copy(all[j], batch[j].Data)
			}
		}
		for j := dataShards; j < dataShards+parityShards; j++ {
			all[j] = make([]byte, width)
		}
		if err := enc.Encode(all); err != nil {
			return nil, err
		}
		for j := range batch {
			out = append(out, Shard{Index: len(out), Data: all[j], Checksum: xxhash.Checksum64(all[j])})
		}
		for j := dataShards; j < dataShards+parityShards; j++ {
			out = append(out, Shard{Index: len(out), Data: all[j], Checksum: xxhash.Checksum64(all[j]), Parity: true})
		}
	}
	return out, nil
}
