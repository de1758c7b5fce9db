package pattern

import (
	"fmt"

	"github.com/Rodario/dash/internal/debug"
)

// Pattern is the rank-R bijection from global coordinates to (unit,
// local linear offset) described in spec §3/§4.1. It is constructed
// once from a size spec, a per-dimension distribution spec, and a
// team layout, and is thereafter a pure function of that immutable
// state - no communication, no allocation on the hot path.
type Pattern struct {
	extents []uint64 // E_0..E_{R-1}
	dist    []Dist
	team    []uint64 // U_0..U_{R-1}, team grid factorization
	nunits  uint64

	blockedSize []uint64 // ceil(E_d/U_d), meaningful only for Blocked dims
}

// New constructs a pattern. extents, dist and team must all share the
// same rank; the product of team must equal nunits.
func New(extents []uint64, dist []Dist, team []uint64, nunits uint64) (*Pattern, error) {
	r := len(extents)
	if len(dist) != r || len(team) != r {
		return nil, fmt.Errorf("pattern: rank mismatch: extents=%d dist=%d team=%d", r, len(dist), len(team))
	}
	prod := uint64(1)
	for _, u := range team {
		if u == 0 {
			return nil, fmt.Errorf("pattern: team extent must be > 0")
		}
		prod *= u
	}
	if prod != nunits {
		return nil, fmt.Errorf("pattern: team grid product %d != nunits %d", prod, nunits)
	}

	p := &Pattern{
		extents:     append([]uint64(nil), extents...),
		dist:        append([]Dist(nil), dist...),
		team:        append([]uint64(nil), team...),
		nunits:      nunits,
		blockedSize: make([]uint64, r),
	}
	for d := 0; d < r; d++ {
		switch dist[d].Tag {
		case None:
			p.blockedSize[d] = extents[d]
		case Blocked:
			p.blockedSize[d] = ceilDiv(extents[d], team[d])
		default: // Tile, Cyclic, BlockCyclic: blockedSize unused, tileSize used instead
			p.blockedSize[d] = 0
		}
	}
	return p, nil
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

// Rank returns the number of dimensions.
func (p *Pattern) Rank() int { return len(p.extents) }

// Extents returns the global extents E_0..E_{R-1}.
func (p *Pattern) Extents() []uint64 { return append([]uint64(nil), p.extents...) }

// Extent returns E_d.
func (p *Pattern) Extent(d int) uint64 { return p.extents[d] }

// TeamExtents returns U_0..U_{R-1}.
func (p *Pattern) TeamExtents() []uint64 { return append([]uint64(nil), p.team...) }

// NUnits returns the total number of units in the team the pattern was
// built over.
func (p *Pattern) NUnits() uint64 { return p.nunits }

// Size returns the product of all extents.
func (p *Pattern) Size() uint64 {
	n := uint64(1)
	for _, e := range p.extents {
		n *= e
	}
	return n
}

// dimCoord holds the per-dimension decomposition of a coordinate used
// by both UnitAt and LocalAt (spec §4.1 "Algorithm — coordinate
// mapping").
type dimCoord struct {
	blockCoord uint64 // which unit-grid coordinate in this dimension
	cycle      uint64 // cycle number (0 for None/Blocked)
	inBlock    uint64 // position within the block/tile
}

func (p *Pattern) decompose(d int, i uint64) dimCoord {
	dist := p.dist[d]
	switch dist.Tag {
	case None:
		return dimCoord{blockCoord: 0, cycle: 0, inBlock: i}
	case Blocked:
		bs := p.blockedSize[d]
		return dimCoord{blockCoord: i / bs, cycle: 0, inBlock: i % bs}
	case Tile, Cyclic, BlockCyclic:
		k := dist.tileSize()
		blockIndex := i / k
		u := p.team[d]
		return dimCoord{
			blockCoord: blockIndex % u,
			cycle:      blockIndex / u,
			inBlock:    i % k,
		}
	default:
		debug.Assertf(false, "pattern: unknown dist tag %v", dist.Tag)
		return dimCoord{}
	}
}

// UnitAt returns the owning unit for global coordinates coords.
// Undefined (asserts in debug) if coords is out of bounds.
func (p *Pattern) UnitAt(coords []uint64) uint64 {
	debug.Assertf(len(coords) == p.Rank(), "pattern: coords rank %d != %d", len(coords), p.Rank())
	var unit uint64
	for d := 0; d < p.Rank(); d++ {
		debug.Assertf(coords[d] < p.extents[d], "pattern: coord[%d]=%d out of range %d", d, coords[d], p.extents[d])
		dc := p.decompose(d, coords[d])
		unit = unit*p.team[d] + dc.blockCoord
	}
	return unit
}

// unitCoord returns the team-grid coordinate of unit in each
// dimension, row-major (dim 0 most significant), the inverse of the
// linearization used by UnitAt.
func (p *Pattern) unitCoord(unit uint64) []uint64 {
	r := p.Rank()
	coord := make([]uint64, r)
	rem := unit
	for d := r - 1; d >= 0; d-- {
		coord[d] = rem % p.team[d]
		rem /= p.team[d]
	}
	return coord
}

// localExtentForCoord returns how many global indices in dimension d
// map onto team-grid coordinate uc (the owning unit's coordinate in
// that dimension alone), honoring the spec §4.1 trailing-block rule:
// the last participating unit's block may be smaller, and any unit
// past the last participating one owns zero elements in that
// dimension.
func (p *Pattern) localExtentForCoord(d int, uc uint64) uint64 {
	dist := p.dist[d]
	E := p.extents[d]
	switch dist.Tag {
	case None:
		if uc == 0 {
			return E
		}
		return 0
	case Blocked:
		bs := p.blockedSize[d]
		start := uc * bs
		if start >= E {
			return 0
		}
		if start+bs > E {
			return E - start
		}
		return bs
	case Tile, Cyclic, BlockCyclic:
		k := dist.tileSize()
		u := p.team[d]
		nTiles := ceilDiv(E, k) // total tiles across the whole dimension
		// tiles whose (blockIndex % u) == uc
		if nTiles == 0 {
			return 0
		}
		fullCycles := nTiles / u
		rem := nTiles % u
		nOwnedTiles := fullCycles
		if uc < rem {
			nOwnedTiles++
		}
		if nOwnedTiles == 0 {
			return 0
		}
		// every owned tile is a full k-extent tile except possibly the
		// very last global tile, which may be partial (E mod k) and is
		// owned by whichever uc == (nTiles-1) % u.
		lastTileIdx := nTiles - 1
		lastOwner := lastTileIdx % u
		lastExtent := E - lastTileIdx*k
		if lastExtent == 0 {
			lastExtent = k
		}
		if uc == lastOwner && lastExtent != k {
			return (nOwnedTiles-1)*k + lastExtent
		}
		return nOwnedTiles * k
	default:
		return 0
	}
}

// LocalExtents returns the per-dimension extents of unit's dense local
// storage rectangle. This is always a well-defined rectangle,
// regardless of distribution tag, because local storage is packed
// densely per unit (see DESIGN.md Open Question (a)).
func (p *Pattern) LocalExtents(unit uint64) []uint64 {
	uc := p.unitCoord(unit)
	ext := make([]uint64, p.Rank())
	for d := 0; d < p.Rank(); d++ {
		ext[d] = p.localExtentForCoord(d, uc[d])
	}
	return ext
}

// LocalSize returns the product of LocalExtents(unit).
func (p *Pattern) LocalSize(unit uint64) uint64 {
	n := uint64(1)
	for _, e := range p.LocalExtents(unit) {
		n *= e
	}
	return n
}

// tileContiguous reports whether every dimension is TILE(k) with k
// evenly dividing that dimension's extent - the one case where this
// pattern can lay out local storage tile-major (spec §6.3: "TILE(k)
// differs from BLOCKCYCLIC(k) ... in that the local block layout is
// contiguous per tile"). A dimension whose extent isn't a multiple of
// k has a ragged trailing tile, and a pattern mixing TILE with other
// tags has no single notion of "a tile" spanning every dimension;
// both fall back to the BLOCKCYCLIC-style per-dimension layout, which
// is always well-defined and still bijective (see DESIGN.md's Open
// Question (a) decision).
func (p *Pattern) tileContiguous() bool {
	for d := 0; d < p.Rank(); d++ {
		dist := p.dist[d]
		if dist.Tag != Tile || dist.K == 0 || p.extents[d]%dist.K != 0 {
			return false
		}
	}
	return true
}

// LocalAt returns the local linear offset of global coordinates
// coords, where unit == UnitAt(coords): tile-major (see
// localAtTileMajor) when tileContiguous holds, otherwise row-major over
// LocalExtents(unit).
func (p *Pattern) LocalAt(coords []uint64) uint64 {
	unit := p.UnitAt(coords)
	localExt := p.LocalExtents(unit)
	if p.tileContiguous() {
		return p.localAtTileMajor(coords, localExt)
	}
	locCoord := make([]uint64, p.Rank())
	for d := 0; d < p.Rank(); d++ {
		dc := p.decompose(d, coords[d])
		switch p.dist[d].Tag {
		case None, Blocked:
			locCoord[d] = dc.inBlock
		default:
			k := p.dist[d].tileSize()
			locCoord[d] = dc.cycle*k + dc.inBlock
		}
	}
	return linearize(locCoord, localExt)
}

// localAtTileMajor lays out local storage as: outer row-major index
// over this unit's owned tile grid, inner row-major index over a
// tile's own k_0 x k_1 x ... elements - so every tile the unit owns
// occupies one contiguous span of its local storage, unlike the
// per-dimension layout linearize(locCoord, localExt) produces (which
// interleaves tiles from different cycles at each dimension's full
// local extent stride).
func (p *Pattern) localAtTileMajor(coords, localExt []uint64) uint64 {
	r := p.Rank()
	tileGrid := make([]uint64, r)
	tileIdx := make([]uint64, r)
	tileExt := make([]uint64, r)
	inTile := make([]uint64, r)
	for d := 0; d < r; d++ {
		k := p.dist[d].K
		dc := p.decompose(d, coords[d])
		tileGrid[d] = localExt[d] / k
		tileIdx[d] = dc.cycle
		tileExt[d] = k
		inTile[d] = dc.inBlock
	}
	return linearize(tileIdx, tileGrid)*product(tileExt) + linearize(inTile, tileExt)
}

func product(extents []uint64) uint64 {
	n := uint64(1)
	for _, e := range extents {
		n *= e
	}
	return n
}

func linearize(coord, extents []uint64) uint64 {
	var off uint64
	for d := 0; d < len(coord); d++ {
		off = off*extents[d] + coord[d]
	}
	return off
}

func delinearize(off uint64, extents []uint64) []uint64 {
	r := len(extents)
	coord := make([]uint64, r)
	for d := r - 1; d >= 0; d-- {
		if extents[d] == 0 {
			coord[d] = 0
			continue
		}
		coord[d] = off % extents[d]
		off /= extents[d]
	}
	return coord
}

// DistAt returns the distribution of dimension d, for callers (the
// view package) that need to branch on distribution shape without
// reaching into Pattern's private fields.
func (p *Pattern) DistAt(d int) Dist { return p.dist[d] }

// BoundingBox returns the smallest contiguous [offset, offset+extent)
// global range in dimension d that contains every index unit owns in
// that dimension. For None/Blocked it is exact (unit's indices in d
// are already contiguous); for Tile/Cyclic/BlockCyclic it is a true
// bounding box that may also contain indices owned by other units
// (the owned tiles repeat every U_d*k positions), per view.Local's
// "rectangular bounding box" contract for non-cyclic dimensions.
func (p *Pattern) BoundingBox(d int, unit uint64) (offset, extent uint64) {
	dist := p.dist[d]
	E := p.extents[d]
	uc := p.unitCoord(unit)[d]
	switch dist.Tag {
	case None:
		if uc == 0 {
			return 0, E
		}
		return 0, 0
	case Blocked:
		bs := p.blockedSize[d]
		start := uc * bs
		if start >= E {
			return 0, 0
		}
		end := start + bs
		if end > E {
			end = E
		}
		return start, end - start
	default: // Tile, Cyclic, BlockCyclic
		k := dist.tileSize()
		u := p.team[d]
		nTiles := ceilDiv(E, k)
		if nTiles == 0 || uc >= nTiles {
			return 0, 0
		}
		firstBlock := uc
		lastBlock := uc + ((nTiles-1-uc)/u)*u
		off := firstBlock * k
		end := (lastBlock + 1) * k
		if end > E {
			end = E
		}
		return off, end - off
	}
}

// GlobalAt is the inverse of (UnitAt, LocalAt): given a unit and a
// local linear offset into that unit's dense storage, recover the
// global coordinates. Spec invariant: GlobalAt(UnitAt(c), LocalAt(c))
// == c for all c in bounds (§8 invariant 1).
func (p *Pattern) GlobalAt(unit, localOffset uint64) []uint64 {
	localExt := p.LocalExtents(unit)
	uc := p.unitCoord(unit)

	if p.tileContiguous() {
		return p.globalAtTileMajor(unit, localOffset, localExt, uc)
	}

	locCoord := delinearize(localOffset, localExt)
	coords := make([]uint64, p.Rank())
	for d := 0; d < p.Rank(); d++ {
		dist := p.dist[d]
		switch dist.Tag {
		case None:
			coords[d] = locCoord[d]
		case Blocked:
			coords[d] = uc[d]*p.blockedSize[d] + locCoord[d]
		default:
			k := dist.tileSize()
			u := p.team[d]
			cycle := locCoord[d] / k
			inBlock := locCoord[d] % k
			blockIndex := cycle*u + uc[d]
			coords[d] = blockIndex*k + inBlock
		}
	}
	return coords
}

// globalAtTileMajor inverts localAtTileMajor: split localOffset back
// into (which owned tile, position within that tile), then apply the
// same cycle*U_d + uc_d block-index recovery §4.1 uses for every
// cyclic-family tag.
func (p *Pattern) globalAtTileMajor(unit, localOffset uint64, localExt, uc []uint64) []uint64 {
	r := p.Rank()
	tileGrid := make([]uint64, r)
	tileExt := make([]uint64, r)
	for d := 0; d < r; d++ {
		k := p.dist[d].K
		tileGrid[d] = localExt[d] / k
		tileExt[d] = k
	}
	tileVolume := product(tileExt)
	tileIdx := delinearize(localOffset/tileVolume, tileGrid)
	inTile := delinearize(localOffset%tileVolume, tileExt)

	coords := make([]uint64, r)
	for d := 0; d < r; d++ {
		k := p.dist[d].K
		u := p.team[d]
		blockIndex := tileIdx[d]*u + uc[d]
		coords[d] = blockIndex*k + inTile[d]
	}
	return coords
}
