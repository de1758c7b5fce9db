package pattern

// CanonicalCoords converts a canonical-order linear index (row-major
// over extents, dimension 0 most significant) to global coordinates.
// Canonical order is the container's global iteration order and is
// independent of distribution (spec §3 GLOSSARY: "Canonical order").
func CanonicalCoords(linear uint64, extents []uint64) []uint64 {
	return delinearize(linear, extents)
}

// CanonicalIndex is the inverse of CanonicalCoords.
func CanonicalIndex(coords []uint64, extents []uint64) uint64 {
	return linearize(coords, extents)
}
