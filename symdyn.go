package elf

// symdyn.go is C8, the symbol and dynamic editor: it adds .dynsym entries,
// appends .dynamic tags, and rebuilds the GNU hash table. Grounded on the
// teacher's AddSymbol/AddDefinedSymbol and buildDynamicSection
// (elf_sections.go), generalized from "append to a throwaway
// bytes.Buffer before the file is ever written" to "grow the live image
// via the allocator and move engine, then repoint every dependent tag".

// AddDynsymEntry is §4.8's "Add dynsym entry": append a new global
// function symbol (name, value, codeSize) to .dynsym, repoint DT_SYMTAB,
// rebuild the GNU hash table, and set DF_1_NOW so the symbol resolves
// eagerly.
func (v *View) AddDynsymEntry(name string, value, codeSize uint64) error {
	const op = "symdyn.AddDynsymEntry"
	if v.DynsymIdx < 0 || v.DynstrIdx < 0 {
		return errOf(KindSectionNotFound, op)
	}

	nameOff, err := v.AddName(Dynstr, name)
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}

	sym := Sym{
		Name:  nameOff,
		Info:  StInfo(STB_GLOBAL, STT_FUNC),
		Other: STV_DEFAULT,
		Shndx: SHN_ABS,
		Value: value,
		Size:  codeSize,
	}

	dynsymSh := v.Shdrs[v.DynsymIdx]
	entSize := symEntSize(v.Class)
	loadIdx := v.LoadContaining(dynsymSh.Offset)

	alloc, err := v.Allocate(loadIdx, dynsymSh.Size, uint64(entSize))
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}

	dynsymSh = v.Shdrs[v.DynsymIdx]
	buf := v.Image.Bytes()
	writeAt := alloc.Offset
	if !alloc.Resized {
		writeAt = dynsymSh.Offset + dynsymSh.Size
	}
	if err := putSym(buf, int(writeAt), v.BO, v.Class, sym); err != nil {
		return wrapErr(KindMemory, op, err)
	}
	if !alloc.Resized {
		dynsymSh.Size += uint64(entSize)
		if err := v.writeShdr(v.DynsymIdx, dynsymSh); err != nil {
			return wrapErr(KindMemory, op, err)
		}
	}

	if err := v.rederive(); err != nil {
		return err
	}

	// DT_SYMTAB stores a vaddr, not a file offset; recover it from the
	// LOAD mapping rather than the raw section offset.
	if li := v.LoadContaining(v.Shdrs[v.DynsymIdx].Offset); li >= 0 {
		l := v.Phdrs[li]
		_ = v.SetDynValue(DT_SYMTAB, l.Vaddr+(v.Shdrs[v.DynsymIdx].Offset-l.Offset))
	}

	if err := v.RebuildGnuHash(); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	flags1, _ := v.DynValue(DT_FLAGS_1)
	if err := v.setOrAddDyn(DT_FLAGS_1, flags1|DF_1_NOW); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	return v.rederive()
}

// AddDynamicTag is §4.8's "Add dynamic tag": rewrite the value of an
// existing entry with the same tag if there is one; otherwise overwrite a
// free DT_NULL slot if one exists, otherwise grow the dynamic array by one
// entry and update the PT_DYNAMIC phdr.
func (v *View) AddDynamicTag(tag int64, value uint64) error {
	const op = "symdyn.AddDynamicTag"
	return wrapErrorOp(op, v.setOrAddDyn(tag, value))
}

func wrapErrorOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return wrapErr(KindMemory, op, err)
}

// setOrAddDyn implements the rewrite-same-tag, else overwrite-DT_NULL, else
// grow policy shared by AddDynsymEntry (DT_FLAGS_1), AddDynamicTag and
// SetRpath.
func (v *View) setOrAddDyn(tag int64, value uint64) error {
	const op = "symdyn.setOrAddDyn"

	for i, d := range v.Dynamic {
		if d.Tag == tag {
			d.Val = value
			return v.writeDyn(i, d)
		}
	}
	for i, d := range v.Dynamic {
		if d.Tag == DT_NULL {
			d.Tag, d.Val = tag, value
			return v.writeDyn(i, d)
		}
	}

	if v.DynPhdrIdx < 0 {
		return errOf(KindDynamicNotFound, op)
	}
	dynPhdr := v.Phdrs[v.DynPhdrIdx]
	count := len(v.Dynamic) + 1
	needed := uint64(count) * uint64(dynEntSize(v.Class))
	loadIdx := v.LoadContaining(dynPhdr.Offset)

	alloc, err := v.Allocate(loadIdx, dynPhdr.Filesz, needed-dynPhdr.Filesz)
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}

	buf := v.Image.Bytes()
	dynOff := dynPhdr.Offset
	if alloc.Resized && alloc.SegIdx != v.DynPhdrIdx {
		// Moved into a brand-new region: copy the existing entries there.
		old := make([]byte, dynPhdr.Filesz)
		copy(old, buf[dynPhdr.Offset:dynPhdr.Offset+dynPhdr.Filesz])
		copy(buf[alloc.Offset:], old)
		dynOff = alloc.Offset
		dynPhdr.Offset = alloc.Offset
		dynPhdr.Vaddr = alloc.Vaddr
		dynPhdr.Paddr = alloc.Vaddr
	}
	dynPhdr.Filesz = needed
	dynPhdr.Memsz = needed
	if err := v.writePhdr(v.DynPhdrIdx, dynPhdr); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	newEntry := Dyn{Index: count - 2, Tag: DT_NULL, Val: 0}
	if err := putDyn(buf, int(dynOff)+(count-2)*dynEntSize(v.Class), v.BO, v.Class, newEntry); err != nil {
		return wrapErr(KindMemory, op, err)
	}
	terminator := Dyn{Index: count - 1, Tag: DT_NULL, Val: 0}
	if err := putDyn(buf, int(dynOff)+(count-1)*dynEntSize(v.Class), v.BO, v.Class, terminator); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	if err := v.rederive(); err != nil {
		return err
	}
	for i, d := range v.Dynamic {
		if d.Tag == DT_NULL {
			d.Tag, d.Val = tag, value
			return v.writeDyn(i, d)
		}
	}
	return errOf(KindDynamicNotFound, op)
}
