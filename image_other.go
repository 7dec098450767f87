//go:build !linux

package elf

import (
	"io"
	"os"
)

// heapMapper backs the image with a plain heap buffer on platforms where
// mmap isn't wired (anything but Linux): the whole file is read up front
// and written back wholesale on resize and close. Functionally equivalent
// to the mmap path from the caller's point of view — the image is still a
// single owned buffer addressed by offset — just without the shared
// mapping.
type heapMapper struct{}

func newMapper() mapper { return heapMapper{} }

func (heapMapper) open(fd *os.File, size int64, writable bool) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(fd, buf); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

func (heapMapper) resize(fd *os.File, cur []byte, newSize int64, writable bool) ([]byte, error) {
	if err := flushHeap(fd, cur); err != nil {
		return nil, err
	}
	next := make([]byte, newSize)
	n := copy(next, cur)
	_ = n
	if err := fd.Truncate(newSize); err != nil {
		return nil, err
	}
	return next, nil
}

func (heapMapper) close(fd *os.File, cur []byte, writable bool) error {
	if !writable {
		return nil
	}
	if err := flushHeap(fd, cur); err != nil {
		return err
	}
	return fd.Truncate(int64(len(cur)))
}

func flushHeap(fd *os.File, buf []byte) error {
	if _, err := fd.WriteAt(buf, 0); err != nil {
		return err
	}
	return nil
}
