package elf

import (
	"os"
)

// Image is the C1 byte-image backing store: an owned, mutable buffer of
// length N backed by a file whose size equals N at rest. All views into
// the image are byte offsets, never long-lived pointers — a resize may
// rebase the buffer, and offsets remain valid across that rebase while any
// slice taken before it does not (see mmapMapper.resize / heapMapper.resize
// for the two backends).
//
// Grounded on the teacher's SafeBuffer (safe_buffer.go in xyproto-vibe67),
// which wraps a bytes.Buffer with an explicit commit/reset discipline to
// stop a caller from reading or writing through a reference it should no
// longer hold; Image generalizes that discipline to a resizable,
// file-backed buffer instead of a one-shot write-only staging buffer.
type Image struct {
	path     string
	file     *os.File
	writable bool
	buf      []byte
	mapper   mapper
}

// mapper is the platform-specific half of C1: how the mutable buffer is
// obtained from and written back to the file descriptor. Linux gets a real
// mmap/munmap-backed mapper (image_linux.go); every other platform gets a
// heap-buffer mapper that reads the whole file up front and writes it back
// wholesale on resize/close (image_other.go).
type mapper interface {
	// open maps the first size bytes of fd and returns the mapped buffer.
	open(fd *os.File, size int64, writable bool) ([]byte, error)
	// resize grows or shrinks the mapping to newSize, returning the
	// (possibly rebased) buffer.
	resize(fd *os.File, cur []byte, newSize int64, writable bool) ([]byte, error)
	// close releases the mapping, flushing writes for a writable image.
	close(fd *os.File, cur []byte, writable bool) error
}

// Open maps path for reading and, if writable, for mutation. On failure it
// returns a *Error with Kind FileOpen or FileStat, or Memory if the file
// could not be mapped.
func Open(path string, writable bool) (*Image, error) {
	const op = "image.Open"

	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, wrapErr(KindFileOpen, op, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapErr(KindFileStat, op, err)
	}

	img := &Image{path: path, file: f, writable: writable, mapper: newMapper()}
	buf, err := img.mapper.open(f, st.Size(), writable)
	if err != nil {
		f.Close()
		return nil, wrapErr(KindMemory, op, err)
	}
	img.buf = buf
	return img, nil
}

// Bytes returns the current mapped buffer. The returned slice is only valid
// until the next call to Resize — callers must never retain it across a
// mutation, only the byte offsets into it (spec.md §5, "Move safety rule").
func (img *Image) Bytes() []byte { return img.buf }

// Len returns the current image length in bytes.
func (img *Image) Len() int { return len(img.buf) }

// Resize is C1's single growth/shrink primitive: it truncates the backing
// file to newLen and remaps the image, possibly rebasing the buffer. All
// offset-valued state the caller holds remains valid; any raw slice taken
// from Bytes() before this call does not.
func (img *Image) Resize(newLen int) error {
	const op = "image.Resize"
	if !img.writable {
		return errOf(KindMemory, op)
	}
	buf, err := img.mapper.resize(img.file, img.buf, int64(newLen), img.writable)
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}
	img.buf = buf
	return nil
}

// Close truncates the file to the image's current length and releases the
// mapping, per spec.md §5 ("on close C1 truncates and unmaps").
func (img *Image) Close() error {
	const op = "image.Close"
	err := img.mapper.close(img.file, img.buf, img.writable)
	cerr := img.file.Close()
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}
	if cerr != nil {
		return wrapErr(KindFileStat, op, cerr)
	}
	return nil
}

// Path returns the path the image was opened from.
func (img *Image) Path() string { return img.path }
