package elf

// query.go is C4: name- and index-keyed getters/setters over the typed
// view. Every write here goes through writePhdr/writeShdr/writeDyn so the
// on-disk bytes and the cached View field stay in lockstep — the View
// fields are never the sole source of truth, just a convenience cache
// re-derived on every mutation (spec.md §4.2).

// SectionByName returns the section header whose .shstrtab name matches.
func (v *View) SectionByName(name string) (Shdr, error) {
	const op = "query.SectionByName"
	if v.ShstrtabIdx < 0 {
		return Shdr{}, errOf(KindSectionNotFound, op)
	}
	for _, s := range v.Shdrs {
		n, err := v.ShstrtabString(int(s.Name))
		if err == nil && n == name {
			return s, nil
		}
	}
	return Shdr{}, errOf(KindSectionNotFound, op)
}

// SegmentsByType returns every Phdr of the given p_type, in table order.
func (v *View) SegmentsByType(typ uint32) []Phdr {
	var out []Phdr
	for _, p := range v.Phdrs {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// DynValue returns the value of the first dynamic entry with the given tag.
func (v *View) DynValue(tag int64) (uint64, bool) {
	for _, d := range v.Dynamic {
		if d.Tag == tag {
			return d.Val, true
		}
	}
	return 0, false
}

// writePhdr rewrites Phdrs[idx] both in the cache and on disk.
func (v *View) writePhdr(idx int, p Phdr) error {
	const op = "query.writePhdr"
	if idx < 0 || idx >= len(v.Phdrs) {
		return errOf(KindSegmentNotFound, op)
	}
	p.Index = idx
	v.Phdrs[idx] = p
	off := int(v.Ehdr.Phoff) + idx*int(v.Ehdr.Phentsize)
	return putPhdr(v.Image.Bytes(), off, v.BO, v.Class, p)
}

// writeShdr rewrites Shdrs[idx] both in the cache and on disk.
func (v *View) writeShdr(idx int, s Shdr) error {
	const op = "query.writeShdr"
	if idx < 0 || idx >= len(v.Shdrs) {
		return errOf(KindSectionNotFound, op)
	}
	s.Index = idx
	v.Shdrs[idx] = s
	off := int(v.Ehdr.Shoff) + idx*int(v.Ehdr.Shentsize)
	return putShdr(v.Image.Bytes(), off, v.BO, v.Class, s)
}

// writeDyn rewrites Dynamic[idx] both in the cache and on disk.
func (v *View) writeDyn(idx int, d Dyn) error {
	const op = "query.writeDyn"
	if idx < 0 || idx >= len(v.Dynamic) {
		return errOf(KindDynamicNotFound, op)
	}
	d.Index = idx
	v.Dynamic[idx] = d
	off := v.DynamicOff + idx*dynEntSize(v.Class)
	return putDyn(v.Image.Bytes(), off, v.BO, v.Class, d)
}

// writeEhdr flushes the cached Ehdr back to the image.
func (v *View) writeEhdr() error {
	return v.Ehdr.Put(v.Image.Bytes())
}

// SetDynValue rewrites the value of the first dynamic entry with the given
// tag, both on disk and in the cache.
func (v *View) SetDynValue(tag int64, val uint64) error {
	const op = "query.SetDynValue"
	for i, d := range v.Dynamic {
		if d.Tag == tag {
			d.Val = val
			return v.writeDyn(i, d)
		}
	}
	return errOf(KindDynamicNotFound, op)
}

// AdvanceAddrValuedDyn advances every address-valued dynamic entry
// (spec.md invariant 8's tag set) whose value is >= threshold by delta.
// Used by the move engine (C6) and infectors (C10) after shifting
// everything at or past a given vaddr.
func (v *View) AdvanceAddrValuedDyn(threshold, delta uint64) error {
	for i, d := range v.Dynamic {
		if addrValuedTags[d.Tag] && d.Val >= threshold {
			d.Val += delta
			if err := v.writeDyn(i, d); err != nil {
				return err
			}
		}
	}
	return nil
}
