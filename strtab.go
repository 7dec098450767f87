package elf

import "bytes"

// strtab.go is C7, the string table editor. Grounded on the teacher's
// addString/dynstrMap (elf_sections.go), which appends to an in-memory
// dynstr buffer and remembers each string's offset; here the same
// append-or-reuse logic runs against the live image instead of a
// throwaway bytes.Buffer, and growth beyond the table's current
// allocation goes through the space allocator (C5) and move engine (C6).

// StrtabKind selects which well-known string table an operation targets.
type StrtabKind int

const (
	Dynstr StrtabKind = iota
	Strtab
	Shstrtab
)

func (v *View) strtabIndex(kind StrtabKind) int {
	switch kind {
	case Dynstr:
		return v.DynstrIdx
	case Strtab:
		return v.StrtabIdx
	default:
		return v.ShstrtabIdx
	}
}

// FindName returns the byte offset of name within the given string table,
// or false if it isn't present — used to ground operations that must
// check a lookup result explicitly (spec.md §9's recorded fix for
// set_dynstr_name's uninitialized-index bug).
func (v *View) FindName(kind StrtabKind, name string) (uint32, bool) {
	idx := v.strtabIndex(kind)
	if idx < 0 {
		return 0, false
	}
	sh := v.Shdrs[idx]
	buf := v.Image.Bytes()
	table := buf[sh.Offset : sh.Offset+sh.Size]
	needle := append([]byte(name), 0)
	at := bytes.Index(table, needle)
	if at < 0 {
		return 0, false
	}
	// Only accept a match that starts right after a NUL (or at offset 0),
	// so a name doesn't spuriously match as another name's suffix.
	if at != 0 && table[at-1] != 0 {
		// fall back to a full scan for a proper boundary match
		return v.scanName(table, name)
	}
	return uint32(at), true
}

func (v *View) scanName(table []byte, name string) (uint32, bool) {
	i := 0
	for i < len(table) {
		end := i
		for end < len(table) && table[end] != 0 {
			end++
		}
		if string(table[i:end]) == name {
			return uint32(i), true
		}
		i = end + 1
	}
	return 0, false
}

// AddName is §4.7's add_name: append newName to the given table, growing
// it via the allocator/move-engine if its LOAD has no free tail space, and
// return its byte offset.
func (v *View) AddName(kind StrtabKind, newName string) (uint32, error) {
	const op = "strtab.AddName"
	idx := v.strtabIndex(kind)
	if idx < 0 {
		return 0, errOf(KindSectionNotFound, op)
	}
	if off, ok := v.FindName(kind, newName); ok {
		return off, nil
	}

	sh := v.Shdrs[idx]
	needed := uint64(len(newName) + 1)
	loadIdx := v.LoadContaining(sh.Offset)

	alloc, err := v.Allocate(loadIdx, sh.Size, needed)
	if err != nil {
		return 0, wrapErr(KindMemory, op, err)
	}

	// Re-fetch sh: Allocate may have moved/resized the table's own LOAD.
	sh = v.Shdrs[idx]
	buf := v.Image.Bytes()

	var writeAt uint64
	switch {
	case !alloc.Resized:
		// Policy A: free tail space already inside the table's own LOAD.
		writeAt = sh.Offset + sh.Size
		sh.Size += needed
	case alloc.SegIdx == loadIdx:
		// Policy B: the LOAD grew in place via the move engine. The tail
		// subsection (this table, if it was the tail) already had its
		// sh_size bumped; the new bytes land right before the old
		// end-of-table plus the grown region.
		writeAt = alloc.Offset
	default:
		// Policy C: the allocator landed the new space in a disjoint
		// segment (a repurposed PT_NOTE/PT_NULL or a relocated PHT's new
		// tail LOAD). Copy the existing table there before appending the
		// new name, then repoint sh_offset/sh_addr at the new home —
		// mirroring symdyn.go's setOrAddDyn copy-and-repoint for
		// PT_DYNAMIC.
		old := make([]byte, sh.Size)
		copy(old, buf[sh.Offset:sh.Offset+sh.Size])
		copy(buf[alloc.Offset:], old)
		writeAt = alloc.Offset + sh.Size
		sh.Offset = alloc.Offset
		sh.Addr = alloc.Vaddr
		sh.Size += needed
	}

	copy(buf[writeAt:], newName)
	buf[writeAt+uint64(len(newName))] = 0

	if err := v.writeShdr(idx, sh); err != nil {
		return 0, wrapErr(KindMemory, op, err)
	}

	if kind == Dynstr {
		if err := v.SetDynValue(DT_STRSZ, v.Shdrs[v.DynstrIdx].Size); err != nil {
			return 0, wrapErr(KindMemory, op, err)
		}
		if err := v.SetDynValue(DT_STRTAB, v.Shdrs[v.DynstrIdx].Addr); err != nil {
			return 0, wrapErr(KindMemory, op, err)
		}
	}

	if err := v.rederive(); err != nil {
		return 0, err
	}
	off, ok := v.FindName(kind, newName)
	if !ok {
		return 0, errOf(KindNotFound, op)
	}
	return off, nil
}

// RenameSection renames whichever section/symbol refers to oldName inside
// the given table to newName (§4.7's rename): overwritten in place if
// newName is no longer than oldName, otherwise appended and the referrer
// repointed.
func (v *View) RenameSection(kind StrtabKind, oldName, newName string, repoint func(newOff uint32) error) error {
	const op = "strtab.RenameSection"
	if len(newName) <= len(oldName) {
		off, ok := v.FindName(kind, oldName)
		if !ok {
			return errOf(KindNotFound, op)
		}
		idx := v.strtabIndex(kind)
		sh := v.Shdrs[idx]
		buf := v.Image.Bytes()
		start := sh.Offset + uint64(off)
		for i := 0; i < len(oldName); i++ {
			if i < len(newName) {
				buf[start+uint64(i)] = newName[i]
			} else {
				buf[start+uint64(i)] = 0
			}
		}
		return nil
	}

	newOff, err := v.AddName(kind, newName)
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}
	return repoint(newOff)
}
