package elf

import "encoding/binary"

// Phdr is the class-parametric program header entry (spec.md §3).
type Phdr struct {
	Index  int // original index into the phdr array, for index managers (C3)
	Type   uint32
	Flags  uint32 // ELF32 stores this last; normalized here regardless of class
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

func phdrEntSize(c Class) int {
	if c == Class32 {
		return 32
	}
	return 56
}

// parsePhdrs reads e.Phnum entries of e.Phentsize bytes starting at e.Phoff.
func parsePhdrs(buf []byte, e *Ehdr) ([]Phdr, error) {
	const op = "phdr.parse"
	class := e.Class()
	bo := e.Endian()
	ents := make([]Phdr, 0, e.Phnum)
	for i := 0; i < int(e.Phnum); i++ {
		off := int(e.Phoff) + i*int(e.Phentsize)
		if off < 0 || off+phdrEntSize(class) > len(buf) {
			return nil, errOf(KindOutOfBounds, op)
		}
		b := buf[off:]
		var p Phdr
		p.Index = i
		if class == Class32 {
			p.Type = bo.Uint32(b[0:4])
			p.Offset = uint64(bo.Uint32(b[4:8]))
			p.Vaddr = uint64(bo.Uint32(b[8:12]))
			p.Paddr = uint64(bo.Uint32(b[12:16]))
			p.Filesz = uint64(bo.Uint32(b[16:20]))
			p.Memsz = uint64(bo.Uint32(b[20:24]))
			p.Flags = bo.Uint32(b[24:28])
			p.Align = uint64(bo.Uint32(b[28:32]))
		} else {
			p.Type = bo.Uint32(b[0:4])
			p.Flags = bo.Uint32(b[4:8])
			p.Offset = bo.Uint64(b[8:16])
			p.Vaddr = bo.Uint64(b[16:24])
			p.Paddr = bo.Uint64(b[24:32])
			p.Filesz = bo.Uint64(b[32:40])
			p.Memsz = bo.Uint64(b[40:48])
			p.Align = bo.Uint64(b[48:56])
		}
		ents = append(ents, p)
	}
	return ents, nil
}

// putPhdr serializes p at buf[off:] in the given class/endianness.
func putPhdr(buf []byte, off int, bo binary.ByteOrder, class Class, p Phdr) error {
	const op = "phdr.put"
	sz := phdrEntSize(class)
	if off < 0 || off+sz > len(buf) {
		return errOf(KindOutOfBounds, op)
	}
	b := buf[off:]
	if class == Class32 {
		bo.PutUint32(b[0:4], p.Type)
		bo.PutUint32(b[4:8], uint32(p.Offset))
		bo.PutUint32(b[8:12], uint32(p.Vaddr))
		bo.PutUint32(b[12:16], uint32(p.Paddr))
		bo.PutUint32(b[16:20], uint32(p.Filesz))
		bo.PutUint32(b[20:24], uint32(p.Memsz))
		bo.PutUint32(b[24:28], p.Flags)
		bo.PutUint32(b[28:32], uint32(p.Align))
	} else {
		bo.PutUint32(b[0:4], p.Type)
		bo.PutUint32(b[4:8], p.Flags)
		bo.PutUint64(b[8:16], p.Offset)
		bo.PutUint64(b[16:24], p.Vaddr)
		bo.PutUint64(b[24:32], p.Paddr)
		bo.PutUint64(b[32:40], p.Filesz)
		bo.PutUint64(b[40:48], p.Memsz)
		bo.PutUint64(b[48:56], p.Align)
	}
	return nil
}
