//go:build unix

package transport

import "golang.org/x/sys/unix"

// mmapAlloc backs a single unit's share of a TeamMemallocAligned
// segment with a page-aligned anonymous mapping, so that local
// storage handed out by the loopback transport has the same alignment
// guarantee a real one-sided backend would provide for RDMA-registered
// memory.
func mmapAlloc(n uint64) ([]byte, func(), error) {
	if n == 0 {
		n = 1
	}
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = unix.Munmap(b) }, nil
}
