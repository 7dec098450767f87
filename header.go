package elf

import (
	"encoding/binary"
	"fmt"
)

// Ehdr is the class-parametric ELF header (spec.md §3's Ehdr). All fields
// are stored width-explicit as uint64/uint32/uint16, widened from whichever
// class the file actually is; on write each field is narrowed back to the
// file's class width and the architecture's endianness. This is C2's single
// class-parametric type standing in for the source's t32/t64 function
// pairs (spec.md §9, "Class parametricity").
type Ehdr struct {
	Ident     [EI_NIDENT]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

func (e *Ehdr) Class() Class {
	switch e.Ident[EI_CLASS] {
	case ELFCLASS32:
		return Class32
	case ELFCLASS64:
		return Class64
	default:
		return ClassNone
	}
}

func (e *Ehdr) Endian() binary.ByteOrder { return endianFor(e.Ident[EI_DATA]) }

// ehdrSize returns the on-disk size of the ELF header for the class.
func ehdrSize(c Class) int {
	if c == Class32 {
		return 52
	}
	return 64
}

// ParseEhdr reads and validates the ELF header at the start of buf.
func ParseEhdr(buf []byte) (*Ehdr, error) {
	const op = "header.ParseEhdr"
	if len(buf) < EI_NIDENT {
		return nil, errOf(KindOutOfBounds, op)
	}
	var e Ehdr
	copy(e.Ident[:], buf[:EI_NIDENT])
	if e.Ident[EI_MAG0] != elfMagic[0] || e.Ident[EI_MAG1] != elfMagic[1] ||
		e.Ident[EI_MAG2] != elfMagic[2] || e.Ident[EI_MAG3] != elfMagic[3] {
		return nil, wrapErr(KindElfClass, op, fmt.Errorf("bad magic"))
	}
	class := e.Class()
	if class == ClassNone {
		return nil, errOf(KindElfClass, op)
	}
	sz := ehdrSize(class)
	if len(buf) < sz {
		return nil, errOf(KindOutOfBounds, op)
	}
	bo := e.Endian()
	b := buf[EI_NIDENT:sz]
	e.Type = bo.Uint16(b[0:2])
	e.Machine = bo.Uint16(b[2:4])
	e.Version = bo.Uint32(b[4:8])
	if class == Class32 {
		e.Entry = uint64(bo.Uint32(b[8:12]))
		e.Phoff = uint64(bo.Uint32(b[12:16]))
		e.Shoff = uint64(bo.Uint32(b[16:20]))
		e.Flags = bo.Uint32(b[20:24])
		e.Ehsize = bo.Uint16(b[24:26])
		e.Phentsize = bo.Uint16(b[26:28])
		e.Phnum = bo.Uint16(b[28:30])
		e.Shentsize = bo.Uint16(b[30:32])
		e.Shnum = bo.Uint16(b[32:34])
		e.Shstrndx = bo.Uint16(b[34:36])
	} else {
		e.Entry = bo.Uint64(b[8:16])
		e.Phoff = bo.Uint64(b[16:24])
		e.Shoff = bo.Uint64(b[24:32])
		e.Flags = bo.Uint32(b[32:36])
		e.Ehsize = bo.Uint16(b[36:38])
		e.Phentsize = bo.Uint16(b[38:40])
		e.Phnum = bo.Uint16(b[40:42])
		e.Shentsize = bo.Uint16(b[42:44])
		e.Shnum = bo.Uint16(b[44:46])
		e.Shstrndx = bo.Uint16(b[46:48])
	}
	return &e, nil
}

// Put serializes e back into buf at offset 0, in the file's own class and
// endianness (spec.md §9, "Endianness": every write is an explicit
// endian-coded operation, never a host-order struct cast).
func (e *Ehdr) Put(buf []byte) error {
	const op = "header.Put"
	class := e.Class()
	sz := ehdrSize(class)
	if len(buf) < sz {
		return errOf(KindOutOfBounds, op)
	}
	copy(buf[:EI_NIDENT], e.Ident[:])
	bo := e.Endian()
	b := buf[EI_NIDENT:sz]
	bo.PutUint16(b[0:2], e.Type)
	bo.PutUint16(b[2:4], e.Machine)
	bo.PutUint32(b[4:8], e.Version)
	if class == Class32 {
		bo.PutUint32(b[8:12], uint32(e.Entry))
		bo.PutUint32(b[12:16], uint32(e.Phoff))
		bo.PutUint32(b[16:20], uint32(e.Shoff))
		bo.PutUint32(b[20:24], e.Flags)
		bo.PutUint16(b[24:26], e.Ehsize)
		bo.PutUint16(b[26:28], e.Phentsize)
		bo.PutUint16(b[28:30], e.Phnum)
		bo.PutUint16(b[30:32], e.Shentsize)
		bo.PutUint16(b[32:34], e.Shnum)
		bo.PutUint16(b[34:36], e.Shstrndx)
	} else {
		bo.PutUint64(b[8:16], e.Entry)
		bo.PutUint64(b[16:24], e.Phoff)
		bo.PutUint64(b[24:32], e.Shoff)
		bo.PutUint32(b[32:36], e.Flags)
		bo.PutUint16(b[36:38], e.Ehsize)
		bo.PutUint16(b[38:40], e.Phentsize)
		bo.PutUint16(b[40:42], e.Phnum)
		bo.PutUint16(b[42:44], e.Shentsize)
		bo.PutUint16(b[44:46], e.Shnum)
		bo.PutUint16(b[46:48], e.Shstrndx)
	}
	return nil
}

// ElfType returns the object file type, with an explicit Unknown result
// rather than the source's unbroken switch-fallthrough (spec.md §9's
// recorded open question: "get_elf_type returns ELF_SHARED via a
// fall-through path without a break").
func (e *Ehdr) ElfType() (uint16, bool) {
	switch e.Type {
	case ET_REL, ET_EXEC, ET_DYN, ET_CORE:
		return e.Type, true
	default:
		return e.Type, false
	}
}
