// Package team implements the immutable ordered collection of units
// with a barrier described in spec §3. Teams are constructed
// collectively; child teams nest inside a parent with a strictly
// shorter lifetime, and the root team contains every unit.
package team

import (
	"encoding/binary"
	"fmt"

	"github.com/OneOfOne/xxhash"

	"github.com/Rodario/dash/internal/nlog"
	"github.com/Rodario/dash/transport"
)

// rootTeamID is every root team's id. NewRoot is collective - every
// unit calls it independently with no handshake - so the id can't come
// from a shared counter (each unit would mint a different one); a
// constant works because a root team is always "every unit of this
// transport's arena," the same membership for every caller. Child team
// ids are derived deterministically from (parent id, ranks) for the
// same reason (see deriveChildID).
const rootTeamID uint64 = 0

// Team is immutable after construction: its membership, id and
// transport binding never change for its lifetime.
type Team struct {
	id       uint64
	units    []uint64 // global unit ids, in team order; units[i] is local rank i
	myRank   int       // index into units of the calling unit, -1 if not a member
	tr       transport.Transport
	parent   *Team
}

// NewRoot constructs the root team containing every unit known to tr.
// Collective: every unit must call NewRoot.
func NewRoot(tr transport.Transport, nunits uint64) *Team {
	units := make([]uint64, nunits)
	for i := range units {
		units[i] = uint64(i)
	}
	t := &Team{
		id:     rootTeamID,
		units:  units,
		tr:     tr,
		parent: nil,
		myRank: -1,
	}
	for i, u := range units {
		if u == tr.MyUnit() {
			t.myRank = i
			break
		}
	}
	nlog.Infoln("team: root formed", "id", t.id, "nunits", nunits)
	return t
}

// Sub constructs a nested child team over a subset of the parent's
// member ranks. Collective over the parent team: every unit that will
// be a member of the child must call Sub with the same ranks.
func (t *Team) Sub(ranks []int) (*Team, error) {
	units := make([]uint64, len(ranks))
	for i, r := range ranks {
		if r < 0 || r >= len(t.units) {
			return nil, fmt.Errorf("team: rank %d out of range [0,%d)", r, len(t.units))
		}
		units[i] = t.units[r]
	}
	child := &Team{
		id:     deriveChildID(t.id, ranks),
		units:  units,
		tr:     t.tr,
		parent: t,
		myRank: -1,
	}
	for i, u := range units {
		if u == t.tr.MyUnit() {
			child.myRank = i
			break
		}
	}
	return child, nil
}

// deriveChildID computes a child team's id from its parent's id and
// its rank list, so every unit independently calling Sub with the same
// ranks arrives at the same id without any out-of-band agreement -
// the same requirement NewRoot meets with a constant id, generalized
// to an arbitrary subset.
func deriveChildID(parentID uint64, ranks []int) uint64 {
	buf := make([]byte, 8*(1+len(ranks)))
	binary.LittleEndian.PutUint64(buf, parentID)
	for i, r := range ranks {
		binary.LittleEndian.PutUint64(buf[8*(i+1):], uint64(r))
	}
	return xxhash.Checksum64(buf)
}

func (t *Team) ID() uint64         { return t.id }
func (t *Team) Size() int          { return len(t.units) }
func (t *Team) MyRank() int        { return t.myRank }
func (t *Team) IsMember() bool     { return t.myRank >= 0 }
func (t *Team) Parent() *Team      { return t.parent }
func (t *Team) Transport() transport.Transport { return t.tr }

// GlobalUnit maps a team-local rank to the underlying global unit id.
func (t *Team) GlobalUnit(rank int) uint64 { return t.units[rank] }

// Barrier collectively synchronizes every member of the team, also
// establishing remote visibility of all prior writes (spec §5). Sized
// to this team's own membership, not the whole arena, so a nested
// child team barriers independently of units outside it (spec §3).
func (t *Team) Barrier() error {
	return t.tr.Barrier(t.id, uint64(len(t.units)))
}

func (t *Team) String() string {
	return fmt.Sprintf("team(id=%d,size=%d,myRank=%d)", t.id, len(t.units), t.myRank)
}
