package team

import "github.com/Rodario/dash/transport"

// MemallocAligned collectively allocates a page-aligned, symmetric
// (every unit contributes equal local storage) global memory segment
// sized bytesPerUnit on every member of t, per spec §6.2
// team_memalloc_aligned. The actual page-aligned mapping is performed
// inside the bound transport.Transport (see transport/alloc_unix.go);
// this method only threads the team id through so a real backend can
// use it for a team-scoped allocator if it wants to.
func (t *Team) MemallocAligned(bytesPerUnit uint64) (transport.GPtr, error) {
	return t.tr.TeamMemallocAligned(t.id, bytesPerUnit)
}

// Memfree collectively releases a segment allocated by MemallocAligned.
func (t *Team) Memfree(segment uint64) error {
	return t.tr.TeamMemfree(segment)
}
