package elf

import "encoding/binary"

// Sym is a symbol table entry (spec.md §3). Grounded on the teacher's
// Symbol struct (elf_sections.go), which already separates name/info/other/
// shndx/value/size the same way — generalized here to also parse ELF32's
// different field order (ELF32's st_value/st_size precede st_info/st_other
// in the teacher's 64-bit-only layout; this engine reads both).
type Sym struct {
	Index int
	Name  uint32
	Info  byte
	Other byte
	Shndx uint16
	Value uint64
	Size  uint64
}

func symEntSize(c Class) int {
	if c == Class32 {
		return 16
	}
	return 24
}

func parseSyms(buf []byte, off int, count int, class Class, bo binary.ByteOrder) ([]Sym, error) {
	const op = "sym.parse"
	ents := make([]Sym, 0, count)
	sz := symEntSize(class)
	for i := 0; i < count; i++ {
		o := off + i*sz
		if o < 0 || o+sz > len(buf) {
			return nil, errOf(KindOutOfBounds, op)
		}
		b := buf[o:]
		var s Sym
		s.Index = i
		if class == Class32 {
			s.Name = bo.Uint32(b[0:4])
			s.Value = uint64(bo.Uint32(b[4:8]))
			s.Size = uint64(bo.Uint32(b[8:12]))
			s.Info = b[12]
			s.Other = b[13]
			s.Shndx = bo.Uint16(b[14:16])
		} else {
			s.Name = bo.Uint32(b[0:4])
			s.Info = b[4]
			s.Other = b[5]
			s.Shndx = bo.Uint16(b[6:8])
			s.Value = bo.Uint64(b[8:16])
			s.Size = bo.Uint64(b[16:24])
		}
		ents = append(ents, s)
	}
	return ents, nil
}

func putSym(buf []byte, off int, bo binary.ByteOrder, class Class, s Sym) error {
	const op = "sym.put"
	sz := symEntSize(class)
	if off < 0 || off+sz > len(buf) {
		return errOf(KindOutOfBounds, op)
	}
	b := buf[off:]
	if class == Class32 {
		bo.PutUint32(b[0:4], s.Name)
		bo.PutUint32(b[4:8], uint32(s.Value))
		bo.PutUint32(b[8:12], uint32(s.Size))
		b[12] = s.Info
		b[13] = s.Other
		bo.PutUint16(b[14:16], s.Shndx)
	} else {
		bo.PutUint32(b[0:4], s.Name)
		b[4] = s.Info
		b[5] = s.Other
		bo.PutUint16(b[6:8], s.Shndx)
		bo.PutUint64(b[8:16], s.Value)
		bo.PutUint64(b[16:24], s.Size)
	}
	return nil
}

// Rel is a REL-style relocation entry (no explicit addend).
type Rel struct {
	Offset uint64
	Info   uint64
}

// Rela is a RELA-style relocation entry (spec.md §3).
type Rela struct {
	Offset uint64
	Info   uint64
	Addend int64
}

// relInfoShift returns the bit width of the type field packed into r_info:
// 8 for CLASS32, 32 for CLASS64 (spec.md §3).
func relInfoShift(c Class) uint {
	if c == Class32 {
		return 8
	}
	return 32
}

// RelaSym and RelaType unpack a Rela/Rel's r_info field for the given class.
func RelaSym(info uint64, c Class) uint32  { return uint32(info >> relInfoShift(c)) }
func RelaType(info uint64, c Class) uint32 {
	if c == Class32 {
		return uint32(info & 0xff)
	}
	return uint32(info & 0xffffffff)
}

// RelaInfo packs a symbol index and relocation type into r_info.
func RelaInfo(sym uint32, typ uint32, c Class) uint64 {
	return (uint64(sym) << relInfoShift(c)) | uint64(typ)
}

func relaEntSize(c Class) int {
	if c == Class32 {
		return 12
	}
	return 24
}

func relEntSize(c Class) int {
	if c == Class32 {
		return 8
	}
	return 16
}

func parseRelas(buf []byte, off, count int, class Class, bo binary.ByteOrder) ([]Rela, error) {
	const op = "rela.parse"
	sz := relaEntSize(class)
	ents := make([]Rela, 0, count)
	for i := 0; i < count; i++ {
		o := off + i*sz
		if o < 0 || o+sz > len(buf) {
			return nil, errOf(KindOutOfBounds, op)
		}
		b := buf[o:]
		var r Rela
		if class == Class32 {
			r.Offset = uint64(bo.Uint32(b[0:4]))
			r.Info = uint64(bo.Uint32(b[4:8]))
			r.Addend = int64(int32(bo.Uint32(b[8:12])))
		} else {
			r.Offset = bo.Uint64(b[0:8])
			r.Info = bo.Uint64(b[8:16])
			r.Addend = int64(bo.Uint64(b[16:24]))
		}
		ents = append(ents, r)
	}
	return ents, nil
}

func putRela(buf []byte, off int, bo binary.ByteOrder, class Class, r Rela) error {
	const op = "rela.put"
	sz := relaEntSize(class)
	if off < 0 || off+sz > len(buf) {
		return errOf(KindOutOfBounds, op)
	}
	b := buf[off:]
	if class == Class32 {
		bo.PutUint32(b[0:4], uint32(r.Offset))
		bo.PutUint32(b[4:8], uint32(r.Info))
		bo.PutUint32(b[8:12], uint32(r.Addend))
	} else {
		bo.PutUint64(b[0:8], r.Offset)
		bo.PutUint64(b[8:16], r.Info)
		bo.PutUint64(b[16:24], uint64(r.Addend))
	}
	return nil
}
