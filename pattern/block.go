package pattern

// Block describes one block's placement in global coordinates: Offset
// is the block's first coordinate in each dimension, Extent is its
// size in each dimension.
type Block struct {
	Offset []uint64
	Extent []uint64
}

// Blocksize returns the per-dimension block extent (the "k" of
// TILE(k)/BLOCKCYCLIC(k)/CYCLIC, the ceil(E_d/U_d) of BLOCKED, or E_d
// itself for NONE).
func (p *Pattern) Blocksize(d int) uint64 {
	switch p.dist[d].Tag {
	case None:
		return p.extents[d]
	case Blocked:
		return p.blockedSize[d]
	default:
		return p.dist[d].tileSize()
	}
}

// Blockspec returns, per dimension, how many global blocks divide
// that dimension: 1 for NONE (the whole extent is one block), U_d for
// BLOCKED (one block per team coordinate), ceil(E_d/k) for
// TILE/CYCLIC/BLOCKCYCLIC (one block per tile).
func (p *Pattern) Blockspec() []uint64 {
	spec := make([]uint64, p.Rank())
	for d := 0; d < p.Rank(); d++ {
		switch p.dist[d].Tag {
		case None:
			spec[d] = 1
		case Blocked:
			spec[d] = p.team[d]
		default:
			spec[d] = ceilDiv(p.extents[d], p.dist[d].tileSize())
		}
	}
	return spec
}

// Block returns the global offsets and extents of block bi, where bi
// indexes the grid returned by Blockspec.
func (p *Pattern) Block(bi []uint64) Block {
	r := p.Rank()
	off := make([]uint64, r)
	ext := make([]uint64, r)
	for d := 0; d < r; d++ {
		bs := p.Blocksize(d)
		off[d] = bi[d] * bs
		E := p.extents[d]
		if off[d] >= E {
			ext[d] = 0
			continue
		}
		if off[d]+bs > E {
			ext[d] = E - off[d]
		} else {
			ext[d] = bs
		}
	}
	return Block{Offset: off, Extent: ext}
}

// LocalBlockspec returns, per dimension, how many contiguous local
// blocks (tiles/cycles) make up unit's local storage in that
// dimension: 1 for NONE/BLOCKED (the whole local extent is one
// block), ceil(localExtent/k) for TILE/CYCLIC/BLOCKCYCLIC; 0 in any
// dimension where the unit's local extent is 0.
func (p *Pattern) LocalBlockspec(unit uint64) []uint64 {
	localExt := p.LocalExtents(unit)
	spec := make([]uint64, p.Rank())
	for d := 0; d < p.Rank(); d++ {
		switch p.dist[d].Tag {
		case None, Blocked:
			if localExt[d] > 0 {
				spec[d] = 1
			}
		default:
			spec[d] = ceilDiv(localExt[d], p.dist[d].tileSize())
		}
	}
	return spec
}

// LocalBlock returns the offsets and extents, in unit's LOCAL storage
// coordinate space, of local block lbi (indexing the grid returned by
// LocalBlockspec). The union of all LocalBlock ranges for a fixed
// unit partitions that unit's local storage exactly once (spec §3
// invariant).
func (p *Pattern) LocalBlock(unit uint64, lbi []uint64) Block {
	localExt := p.LocalExtents(unit)
	r := p.Rank()
	off := make([]uint64, r)
	ext := make([]uint64, r)
	for d := 0; d < r; d++ {
		switch p.dist[d].Tag {
		case None, Blocked:
			off[d] = 0
			ext[d] = localExt[d]
		default:
			k := p.dist[d].tileSize()
			off[d] = lbi[d] * k
			if off[d] >= localExt[d] {
				ext[d] = 0
			} else if off[d]+k > localExt[d] {
				ext[d] = localExt[d] - off[d]
			} else {
				ext[d] = k
			}
		}
	}
	return Block{Offset: off, Extent: ext}
}
