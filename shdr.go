package elf

import "encoding/binary"

// Shdr is the class-parametric section header entry (spec.md §3).
type Shdr struct {
	Index     int
	Name      uint32 // index into .shstrtab
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

func shdrEntSize(c Class) int {
	if c == Class32 {
		return 40
	}
	return 64
}

func parseShdrs(buf []byte, e *Ehdr) ([]Shdr, error) {
	const op = "shdr.parse"
	if e.Shoff == 0 && e.Shnum == 0 {
		return nil, nil
	}
	class := e.Class()
	bo := e.Endian()
	ents := make([]Shdr, 0, e.Shnum)
	for i := 0; i < int(e.Shnum); i++ {
		off := int(e.Shoff) + i*int(e.Shentsize)
		if off < 0 || off+shdrEntSize(class) > len(buf) {
			return nil, errOf(KindOutOfBounds, op)
		}
		b := buf[off:]
		var s Shdr
		s.Index = i
		if class == Class32 {
			s.Name = bo.Uint32(b[0:4])
			s.Type = bo.Uint32(b[4:8])
			s.Flags = uint64(bo.Uint32(b[8:12]))
			s.Addr = uint64(bo.Uint32(b[12:16]))
			s.Offset = uint64(bo.Uint32(b[16:20]))
			s.Size = uint64(bo.Uint32(b[20:24]))
			s.Link = bo.Uint32(b[24:28])
			s.Info = bo.Uint32(b[28:32])
			s.Addralign = uint64(bo.Uint32(b[32:36]))
			s.Entsize = uint64(bo.Uint32(b[36:40]))
		} else {
			s.Name = bo.Uint32(b[0:4])
			s.Type = bo.Uint32(b[4:8])
			s.Flags = bo.Uint64(b[8:16])
			s.Addr = bo.Uint64(b[16:24])
			s.Offset = bo.Uint64(b[24:32])
			s.Size = bo.Uint64(b[32:40])
			s.Link = bo.Uint32(b[40:44])
			s.Info = bo.Uint32(b[44:48])
			s.Addralign = bo.Uint64(b[48:56])
			s.Entsize = bo.Uint64(b[56:64])
		}
		ents = append(ents, s)
	}
	return ents, nil
}

func putShdr(buf []byte, off int, bo binary.ByteOrder, class Class, s Shdr) error {
	const op = "shdr.put"
	sz := shdrEntSize(class)
	if off < 0 || off+sz > len(buf) {
		return errOf(KindOutOfBounds, op)
	}
	b := buf[off:]
	if class == Class32 {
		bo.PutUint32(b[0:4], s.Name)
		bo.PutUint32(b[4:8], s.Type)
		bo.PutUint32(b[8:12], uint32(s.Flags))
		bo.PutUint32(b[12:16], uint32(s.Addr))
		bo.PutUint32(b[16:20], uint32(s.Offset))
		bo.PutUint32(b[20:24], uint32(s.Size))
		bo.PutUint32(b[24:28], s.Link)
		bo.PutUint32(b[28:32], s.Info)
		bo.PutUint32(b[32:36], uint32(s.Addralign))
		bo.PutUint32(b[36:40], uint32(s.Entsize))
	} else {
		bo.PutUint32(b[0:4], s.Name)
		bo.PutUint32(b[4:8], s.Type)
		bo.PutUint64(b[8:16], s.Flags)
		bo.PutUint64(b[16:24], s.Addr)
		bo.PutUint64(b[24:32], s.Offset)
		bo.PutUint64(b[32:40], s.Size)
		bo.PutUint32(b[40:44], s.Link)
		bo.PutUint32(b[44:48], s.Info)
		bo.PutUint64(b[48:56], s.Addralign)
		bo.PutUint64(b[56:64], s.Entsize)
	}
	return nil
}
