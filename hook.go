package elf

// hook.go is C9's GOT hook: redirect an imported function's first call by
// overwriting its GOT slot. Grounded on original_source/src/edit.c's
// hook_got, and on the .rela.plt scan in
// other_examples/zboralski-galago's addPLTSymbols (walking the relocation
// array by symbol index to recover a PLT/GOT entry's owning symbol name).

// HookGot implements spec.md §4.10's "Hook external (GOT)": add a new
// executable LOAD containing hookPayload, locate the .rela.plt entry whose
// symbol matches symbolName, and write the new segment's entry address
// into that symbol's GOT slot.
//
// CLASS32 is a known limitation (spec.md §4.10): 32-bit lazy binding
// resolves PLT stubs differently and this technique does not reliably
// redirect the call there.
func (v *View) HookGot(symbolName string, hookPayload []byte, hookOffset uint64) error {
	const op = "hook.HookGot"
	if v.Class != Class64 {
		return errOf(KindElfClass, op)
	}

	relaPltSh, err := v.SectionByName(".rela.plt")
	if err != nil {
		return wrapErr(KindSectionNotFound, op, err)
	}
	gotPltSh, err := v.SectionByName(".got.plt")
	if err != nil {
		return wrapErr(KindSectionNotFound, op, err)
	}
	if v.DynsymIdx < 0 {
		return errOf(KindSectionNotFound, op)
	}

	relaSh := relaPltSh
	buf := v.Image.Bytes()
	entSize := relaEntSize(v.Class)
	count := int(relaSh.Size) / entSize
	relas, err := parseRelas(buf, int(relaSh.Offset), count, v.Class, v.BO)
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}

	var target *Rela
	for i := range relas {
		symIdx := RelaSym(relas[i].Info, v.Class)
		if int(symIdx) >= len(v.DynsymSyms) {
			continue
		}
		name, err := v.DynstrString(int(v.DynsymSyms[symIdx].Name))
		if err != nil {
			continue
		}
		if name == symbolName {
			target = &relas[i]
			break
		}
	}
	if target == nil {
		return errOf(KindNotFound, op)
	}

	// Add a new segment holding the hook implementation. Allocate (not
	// AddSegmentCommon directly) so the decision ladder picks a
	// combination of movePht/destSlot that actually registers the new
	// row in e_phnum — repurposing a disposable PT_NOTE/PT_NULL, or
	// relocating the program header table into a fresh tail LOAD.
	alloc, err := v.Allocate(-1, 0, uint64(len(hookPayload)))
	if err != nil {
		return wrapErr(KindAddSegment, op, err)
	}
	segIdx := alloc.SegIdx
	buf = v.Image.Bytes()
	copy(buf[v.Phdrs[segIdx].Offset:], hookPayload)
	seg := v.Phdrs[segIdx]
	seg.Flags = PF_R | PF_X
	if err := v.writePhdr(segIdx, seg); err != nil {
		return wrapErr(KindMemory, op, err)
	}

	gotSlot := target.Offset - (gotPltSh.Addr - gotPltSh.Offset)
	if gotSlot+8 > uint64(len(buf)) {
		return errOf(KindOutOfBounds, op)
	}
	hookAddr := alloc.Vaddr + hookOffset
	v.BO.PutUint64(buf[gotSlot:gotSlot+8], hookAddr)

	return v.rederive()
}
