package elf

import "sort"

// SectionRef and SegmentRef are C3's ordered references to rows of the
// shdr/phdr array: they store the original index, never a copy, so
// mutating through v.Shdrs[ref.Index] mutates the underlying file view
// directly (spec.md §4.3, "They store references, never copies").
type SectionRef struct{ Index int }
type SegmentRef struct{ Index int }

// SectionsByOffset returns section indices sorted by sh_offset, ascending
// if asc is true, descending otherwise.
func (v *View) SectionsByOffset(asc bool) []SectionRef {
	refs := make([]SectionRef, len(v.Shdrs))
	for i := range v.Shdrs {
		refs[i] = SectionRef{i}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := v.Shdrs[refs[i].Index].Offset, v.Shdrs[refs[j].Index].Offset
		if asc {
			return a < b
		}
		return a > b
	})
	return refs
}

// SegmentsByOffset returns segment indices sorted by p_offset.
func (v *View) SegmentsByOffset(asc bool) []SegmentRef {
	refs := make([]SegmentRef, len(v.Phdrs))
	for i := range v.Phdrs {
		refs[i] = SegmentRef{i}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := v.Phdrs[refs[i].Index].Offset, v.Phdrs[refs[j].Index].Offset
		if asc {
			return a < b
		}
		return a > b
	})
	return refs
}

// LoadMapping describes what a single PT_LOAD segment contains, per
// spec.md §4.3's mapping index.
type LoadMapping struct {
	Load        SegmentRef
	Subsegments []SegmentRef
	Subsections []SectionRef
}

// MapLoads computes, for every PT_LOAD segment, its subsegments (any
// non-PT_GNU_STACK phdr whose p_offset falls in the LOAD's file range) and
// subsections (any non-SHT_NULL shdr whose sh_offset falls in the file
// range, or whose sh_addr falls in the memory range — this second clause
// is what catches NOBITS sections like .bss, which has no file footprint).
func (v *View) MapLoads() []LoadMapping {
	var out []LoadMapping
	for li, load := range v.Phdrs {
		if load.Type != PT_LOAD {
			continue
		}
		m := LoadMapping{Load: SegmentRef{li}}
		foEnd := load.Offset + load.Filesz
		vaEnd := load.Vaddr + load.Memsz

		for pi, p := range v.Phdrs {
			if pi == li || p.Type == PT_GNU_STACK {
				continue
			}
			if p.Offset >= load.Offset && p.Offset < foEnd {
				m.Subsegments = append(m.Subsegments, SegmentRef{pi})
			}
		}
		for si, s := range v.Shdrs {
			if s.Type == SHT_NULL {
				continue
			}
			inFile := s.Type != SHT_NOBITS && s.Offset >= load.Offset && s.Offset < foEnd
			inMem := s.Flags&SHF_ALLOC != 0 && s.Addr != 0 && s.Addr >= load.Vaddr && s.Addr < vaEnd
			if inFile || inMem {
				m.Subsections = append(m.Subsections, SectionRef{si})
			}
		}
		out = append(out, m)
	}
	return out
}

// IsolatedLoad reports whether the PT_LOAD at loadIdx contains exactly one
// subsection (ignoring subsegments), i.e. the engine may grow it without
// colliding with other data (spec.md glossary, "Isolated LOAD").
func (v *View) IsolatedLoad(loadIdx int) (LoadMapping, bool) {
	for _, m := range v.MapLoads() {
		if m.Load.Index == loadIdx {
			return m, len(m.Subsections) == 1
		}
	}
	return LoadMapping{}, false
}

// LoadContaining returns the index of the PT_LOAD segment whose file range
// contains byte offset `off`, or -1.
func (v *View) LoadContaining(off uint64) int {
	for i, p := range v.Phdrs {
		if p.Type == PT_LOAD && off >= p.Offset && off < p.Offset+p.Filesz {
			return i
		}
	}
	return -1
}

// LoadContainingAddr returns the index of the PT_LOAD segment whose memory
// range contains virtual address `addr`, or -1.
func (v *View) LoadContainingAddr(addr uint64) int {
	for i, p := range v.Phdrs {
		if p.Type == PT_LOAD && addr >= p.Vaddr && addr < p.Vaddr+p.Memsz {
			return i
		}
	}
	return -1
}
