package elf

import "encoding/binary"

// Dyn is a (tag, value) entry of the dynamic array, taken from the
// PT_DYNAMIC segment (spec.md §3). Grounded on the teacher's
// buildDynamicSection (elf_sections.go), which writes the same tag/value
// pairs one at a time via a local writeDynEntry closure; here the array is
// a first-class slice the editor (C8) can search and rewrite in place
// rather than a one-shot append-only bytes.Buffer.
type Dyn struct {
	Index int
	Tag   int64
	Val   uint64
}

func dynEntSize(c Class) int {
	if c == Class32 {
		return 8
	}
	return 16
}

// addrValuedTags is the set of dynamic tags whose value is an address,
// per spec.md invariant 8 — the move engine (C6) advances these whenever a
// mutation shifts everything at or past their target vaddr.
var addrValuedTags = map[int64]bool{
	DT_STRTAB:      true,
	DT_SYMTAB:      true,
	DT_RELA:        true,
	DT_REL:         true,
	DT_JMPREL:      true,
	DT_GNU_HASH:    true,
	DT_HASH:        true,
	DT_VERNEED:     true,
	DT_VERSYM:      true,
	DT_INIT:        true,
	DT_FINI:        true,
	DT_INIT_ARRAY:  true,
	DT_FINI_ARRAY:  true,
	DT_PLTGOT:      true,
}

func parseDyn(buf []byte, off int, class Class, bo binary.ByteOrder) ([]Dyn, error) {
	const op = "dynamic.parse"
	sz := dynEntSize(class)
	var ents []Dyn
	for i := 0; ; i++ {
		o := off + i*sz
		if o < 0 || o+sz > len(buf) {
			return nil, errOf(KindOutOfBounds, op)
		}
		b := buf[o:]
		var d Dyn
		d.Index = i
		if class == Class32 {
			d.Tag = int64(int32(bo.Uint32(b[0:4])))
			d.Val = uint64(bo.Uint32(b[4:8]))
		} else {
			d.Tag = int64(bo.Uint64(b[0:8]))
			d.Val = bo.Uint64(b[8:16])
		}
		ents = append(ents, d)
		if d.Tag == DT_NULL {
			break
		}
	}
	return ents, nil
}

func putDyn(buf []byte, off int, bo binary.ByteOrder, class Class, d Dyn) error {
	const op = "dynamic.put"
	sz := dynEntSize(class)
	if off < 0 || off+sz > len(buf) {
		return errOf(KindOutOfBounds, op)
	}
	b := buf[off:]
	if class == Class32 {
		bo.PutUint32(b[0:4], uint32(d.Tag))
		bo.PutUint32(b[4:8], uint32(d.Val))
	} else {
		bo.PutUint64(b[0:8], uint64(d.Tag))
		bo.PutUint64(b[8:16], d.Val)
	}
	return nil
}
