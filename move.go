package elf

// move.go is C6, the move engine: it grows the file, shifts trailing
// sections/segments, and re-points the section header table, program
// header table, dynamic entries, entry point, and segment/section
// sub-mappings atomically (spec.md §4.5–§4.6). Grounded on
// original_source/src/lib/elfutil.c's move/shift routines and on the
// teacher's own habit (elf_complete.go) of computing a byte-offset layout
// up front before ever touching the image.

// ceilPage rounds n up to the next multiple of PageSize.
func ceilPage(n uint64) uint64 {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// ExpandSegmentLoad is §4.5: grow the LOAD at loadIdx by size bytes,
// shifting everything that needs to move so every invariant in spec.md §3
// still holds afterward.
func (v *View) ExpandSegmentLoad(loadIdx int, size uint64) error {
	const op = "move.ExpandSegmentLoad"
	if loadIdx < 0 || loadIdx >= len(v.Phdrs) {
		return wrapErr(KindExpandSegment, op, errOf(KindSegmentNotFound, op))
	}
	target := v.Phdrs[loadIdx]
	if target.Type != PT_LOAD {
		return wrapErr(KindExpandSegment, op, errOf(KindSegmentNotFound, op))
	}

	mapping, _ := v.IsolatedLoad(loadIdx)

	// Step 2: if the tail subsection already has free tail space within
	// the LOAD, only the subsection's sh_size and the LOAD's
	// filesz/memsz change — no image resize needed.
	if len(mapping.Subsections) > 0 {
		tailRef := mapping.Subsections[len(mapping.Subsections)-1]
		tail := v.Shdrs[tailRef.Index]
		used := tail.Offset + tail.Size - target.Offset
		if target.Filesz-used >= size {
			tail.Size += size
			if err := v.writeShdr(tailRef.Index, tail); err != nil {
				return wrapErr(KindExpandSegment, op, err)
			}
			target.Filesz += size
			target.Memsz += size
			if err := v.writePhdr(loadIdx, target); err != nil {
				return wrapErr(KindExpandSegment, op, err)
			}
			return v.rederive()
		}
		// Otherwise the tail section itself still grows by size (step 2's
		// first clause); the image-wide shift below makes room for it.
		tail.Size += size
		if err := v.writeShdr(tailRef.Index, tail); err != nil {
			return wrapErr(KindExpandSegment, op, err)
		}
	}

	addedSize := ceilPage(size)
	insertionOffset := target.Offset + target.Filesz
	insertionVaddr := target.Vaddr + target.Memsz
	oldLen := v.Image.Len()

	// Step 3: resize the image.
	if err := v.Image.Resize(oldLen + int(addedSize)); err != nil {
		return wrapErr(KindExpandSegment, op, err)
	}
	buf := v.Image.Bytes()

	// Step 4/5: move the section header table and every section at or
	// past the insertion point down by addedSize, in descending-offset
	// order so a later section's copy never overwrites an earlier one
	// still to be moved (spec.md §5, "Move safety rule").
	if v.Ehdr.Shoff >= insertionOffset {
		v.Ehdr.Shoff += addedSize
	}
	refs := v.SectionsByOffset(false)
	for _, r := range refs {
		s := v.Shdrs[r.Index]
		if s.Type == SHT_NOBITS || s.Addr != 0 {
			continue
		}
		if s.Offset >= insertionOffset {
			if err := copyWithinImage(buf, s.Offset, s.Offset+addedSize, s.Size); err != nil {
				return wrapErr(KindMove, op, err)
			}
			s.Offset += addedSize
			if err := v.writeShdr(r.Index, s); err != nil {
				return wrapErr(KindExpandSegment, op, err)
			}
		}
	}
	// The section header table itself is raw bytes, not modeled as a
	// Shdr row; shift its bytes the same way if it moved.
	if v.Ehdr.Shoff-addedSize >= insertionOffset {
		shtSize := uint64(v.Ehdr.Shnum) * uint64(v.Ehdr.Shentsize)
		if err := copyWithinImage(buf, v.Ehdr.Shoff-addedSize, v.Ehdr.Shoff, shtSize); err != nil {
			return wrapErr(KindMove, op, err)
		}
	}
	if err := v.writeEhdr(); err != nil {
		return wrapErr(KindExpandSegment, op, err)
	}

	// Step 6: advance every LOAD whose p_offset is past the target, and
	// cascade to its subsegments/subsections.
	entryMoved := false

	target.Filesz += size
	target.Memsz += size
	if err := v.writePhdr(loadIdx, target); err != nil {
		return wrapErr(KindExpandSegment, op, err)
	}

	for i, p := range v.Phdrs {
		if i == loadIdx {
			continue
		}
		if p.Offset > target.Offset {
			if p.Type == PT_LOAD && p.Flags&PF_X != 0 &&
				v.Ehdr.Entry >= p.Vaddr && v.Ehdr.Entry < p.Vaddr+p.Memsz {
				entryMoved = true
			}
			p.Offset += addedSize
			p.Vaddr += addedSize
			p.Paddr += addedSize
			if err := v.writePhdr(i, p); err != nil {
				return wrapErr(KindExpandSegment, op, err)
			}
		}
	}

	// Step 7: advance the entry point if it lived in an executable
	// segment that moved.
	if entryMoved {
		v.Ehdr.Entry += addedSize
		if err := v.writeEhdr(); err != nil {
			return wrapErr(KindExpandSegment, op, err)
		}
	}

	// Step 8: advance address-valued dynamic entries at or past the
	// insertion vaddr.
	if err := v.AdvanceAddrValuedDyn(insertionVaddr, addedSize); err != nil {
		return wrapErr(KindExpandSegment, op, err)
	}

	return v.rederive()
}

// copyWithinImage moves size bytes from srcOff to dstOff inside buf. Used
// only for downward (growing) shifts where dstOff > srcOff; Go's copy()
// handles overlapping slices correctly regardless of direction, but the
// caller must still visit sections in descending-offset order so that two
// *different* sections never clobber each other (spec.md §5).
func copyWithinImage(buf []byte, srcOff, dstOff, size uint64) error {
	const op = "move.copyWithinImage"
	if srcOff+size > uint64(len(buf)) || dstOff+size > uint64(len(buf)) {
		return errOf(KindOutOfBounds, op)
	}
	src := make([]byte, size)
	copy(src, buf[srcOff:srcOff+size])
	copy(buf[dstOff:dstOff+size], src)
	if dstOff > srcOff {
		for i := srcOff; i < dstOff && i < srcOff+size; i++ {
			buf[i] = 0
		}
	}
	return nil
}

// AddSegmentCommon is §4.6: append a brand-new PT_LOAD of `size` bytes
// after the last existing LOAD. If movePht, the program header table is
// relocated into the new segment's tail and e_phoff/e_phnum/PT_PHDR are
// updated to describe it; the new PT_LOAD row is written into slot
// `destSlot` (a disposable PT_NOTE/PT_NULL row being repurposed, or a
// freshly appended row when relocating the PHT).
func (v *View) AddSegmentCommon(size uint64, movePht bool, destSlot int) (offset, vaddr uint64, segIdx int, err error) {
	const op = "move.AddSegmentCommon"

	lastLoad, lastIdx := Phdr{}, -1
	for i, p := range v.Phdrs {
		if p.Type == PT_LOAD && (lastIdx == -1 || p.Offset > lastLoad.Offset) {
			lastLoad, lastIdx = p, i
		}
	}
	if lastIdx == -1 {
		return 0, 0, 0, wrapErr(KindAddSegment, op, errOf(KindSegmentNotFound, op))
	}

	startOffset := lastLoad.Offset + lastLoad.Filesz
	startAddr := lastLoad.Vaddr + lastLoad.Memsz

	typ, ok := v.Ehdr.ElfType()
	if !ok {
		return 0, 0, 0, wrapErr(KindAddSegment, op, errOf(KindElfType, op))
	}

	var actualOffset, actualAddr uint64
	switch typ {
	case ET_EXEC:
		actualAddr = startAddr
		skew := actualAddr % PageSize
		actualOffset = ceilPage(startOffset)
		if actualOffset%PageSize != skew {
			actualOffset = actualOffset - actualOffset%PageSize + skew
			if actualOffset < startOffset {
				actualOffset += PageSize
			}
		}
	case ET_DYN:
		actualAddr = ceilPage(startAddr)
		actualOffset = ceilPage(startOffset)
	default:
		return 0, 0, 0, wrapErr(KindAddSegment, op, errOf(KindElfType, op))
	}

	actualSize := ceilPage(size)
	var phtOffset uint64
	if movePht {
		phtSize := ceilPage(uint64(len(v.Phdrs)+1) * uint64(v.Ehdr.Phentsize))
		phtOffset = actualOffset + ceilPage(size)
		actualSize += phtSize
	}

	actualDiff := (actualOffset - startOffset) + actualSize
	oldLen := v.Image.Len()
	if err := v.Image.Resize(oldLen + int(actualDiff)); err != nil {
		return 0, 0, 0, wrapErr(KindAddSegment, op, err)
	}
	buf := v.Image.Bytes()

	// Shift trailing sections the same way ExpandSegmentLoad does.
	if v.Ehdr.Shoff >= startOffset {
		shtSize := uint64(v.Ehdr.Shnum) * uint64(v.Ehdr.Shentsize)
		if err := copyWithinImage(buf, v.Ehdr.Shoff, v.Ehdr.Shoff+actualDiff, shtSize); err != nil {
			return 0, 0, 0, wrapErr(KindMove, op, err)
		}
		v.Ehdr.Shoff += actualDiff
	}
	refs := v.SectionsByOffset(false)
	for _, r := range refs {
		s := v.Shdrs[r.Index]
		if s.Type == SHT_NOBITS || s.Addr != 0 {
			continue
		}
		if s.Offset >= startOffset {
			if err := copyWithinImage(buf, s.Offset, s.Offset+actualDiff, s.Size); err != nil {
				return 0, 0, 0, wrapErr(KindMove, op, err)
			}
			s.Offset += actualDiff
			if err := v.writeShdr(r.Index, s); err != nil {
				return 0, 0, 0, wrapErr(KindAddSegment, op, err)
			}
		}
	}
	if err := v.writeEhdr(); err != nil {
		return 0, 0, 0, wrapErr(KindAddSegment, op, err)
	}

	if err := v.AdvanceAddrValuedDyn(startAddr, actualSize); err != nil {
		return 0, 0, 0, wrapErr(KindAddSegment, op, err)
	}

	if movePht {
		oldPhtOff := v.Ehdr.Phoff
		oldPhtSize := uint64(len(v.Phdrs)) * uint64(v.Ehdr.Phentsize)
		if err := copyWithinImage(buf, oldPhtOff, phtOffset, oldPhtSize); err != nil {
			return 0, 0, 0, wrapErr(KindMove, op, err)
		}
		v.Ehdr.Phoff = phtOffset
		v.Ehdr.Phnum++
		if err := v.writeEhdr(); err != nil {
			return 0, 0, 0, wrapErr(KindAddSegment, op, err)
		}
		for i, p := range v.Phdrs {
			if p.Type == PT_PHDR {
				p.Offset = phtOffset
				p.Vaddr = actualAddr + ceilPage(size)
				p.Paddr = p.Vaddr
				p.Filesz = uint64(len(v.Phdrs)+1) * uint64(v.Ehdr.Phentsize)
				p.Memsz = p.Filesz
				if err := v.writePhdr(i, p); err != nil {
					return 0, 0, 0, wrapErr(KindAddSegment, op, err)
				}
				break
			}
		}
	}

	newLoad := Phdr{
		Type:   PT_LOAD,
		Flags:  PF_R | PF_W,
		Offset: actualOffset,
		Vaddr:  actualAddr,
		Paddr:  actualAddr,
		Filesz: size,
		Memsz:  size,
		Align:  PageSize,
	}
	if destSlot >= 0 && destSlot < len(v.Phdrs) {
		if err := v.writePhdr(destSlot, newLoad); err != nil {
			return 0, 0, 0, wrapErr(KindAddSegment, op, err)
		}
		segIdx = destSlot
	} else {
		// Appended as the extra row created by the PHT relocation above.
		segIdx = len(v.Phdrs)
		if err := v.rederive(); err != nil {
			return 0, 0, 0, wrapErr(KindAddSegment, op, err)
		}
		off := int(v.Ehdr.Phoff) + segIdx*int(v.Ehdr.Phentsize)
		if err := putPhdr(v.Image.Bytes(), off, v.BO, v.Class, newLoad); err != nil {
			return 0, 0, 0, wrapErr(KindAddSegment, op, err)
		}
	}

	if err := v.rederive(); err != nil {
		return 0, 0, 0, wrapErr(KindAddSegment, op, err)
	}
	return actualOffset, actualAddr, segIdx, nil
}
