package elf

// forensic.go is C12, the forensic/anomaly scanner: a read-only pass that
// flags structural anomalies typical of hand-crafted or infected ELFs.
// Grounded on original_source/src/forensic.c's get_elf_type/check_hook/
// load-flag checks, reworked from "scan and printf" into a typed finding
// list the CLI or dump package can render. Never mutates the image.

// Anomaly describes one structural finding from Scan.
type Anomaly struct {
	Kind   string
	Detail string
}

// ObjectKind classifies the binary the way original_source's
// get_elf_type does: static executable, eagerly or lazily bound dynamic
// executable, or shared object.
type ObjectKind int

const (
	ObjectStatic ObjectKind = iota
	ObjectExeNow
	ObjectExeLazy
	ObjectShared
	ObjectUnknown
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectStatic:
		return "static executable"
	case ObjectExeNow:
		return "dynamic executable (eager binding)"
	case ObjectExeLazy:
		return "dynamic executable (lazy binding)"
	case ObjectShared:
		return "shared object"
	default:
		return "unknown"
	}
}

// Classify reimplements original_source/src/forensic.c's get_elf_type:
// ET_EXEC with no PT_DYNAMIC is static; ET_DYN with PT_DYNAMIC is a
// shared object when it has no DT_FLAGS_1 entry, and otherwise a dynamic
// executable: eagerly bound if DT_FLAGS_1 carries DF_1_NOW, lazily bound
// if not. Every other combination is ObjectUnknown.
func (v *View) Classify() ObjectKind {
	hasDynamic := v.DynPhdrIdx >= 0
	typ, ok := v.Ehdr.ElfType()
	if !ok {
		return ObjectUnknown
	}
	if !hasDynamic && typ == ET_EXEC {
		return ObjectStatic
	}
	if hasDynamic && typ == ET_DYN {
		if flags1, ok := v.DynValue(DT_FLAGS_1); ok {
			if flags1&DF_1_NOW != 0 {
				return ObjectExeNow
			}
			return ObjectExeLazy
		}
		return ObjectShared
	}
	return ObjectUnknown
}

// Scan runs every structural check and returns every anomaly found.
func (v *View) Scan() []Anomaly {
	var out []Anomaly
	out = append(out, v.scanEntryPoint()...)
	out = append(out, v.scanShstrtabBounds()...)
	out = append(out, v.scanLoadOverlap()...)
	out = append(out, v.scanDynamicBounds()...)
	return out
}

// scanEntryPoint flags an entry point outside every PT_LOAD's executable
// range.
func (v *View) scanEntryPoint() []Anomaly {
	for _, p := range v.Phdrs {
		if p.Type == PT_LOAD && p.Flags&PF_X != 0 &&
			v.Ehdr.Entry >= p.Vaddr && v.Ehdr.Entry < p.Vaddr+p.Memsz {
			return nil
		}
	}
	return []Anomaly{{
		Kind:   "entry-point-outside-load",
		Detail: "e_entry does not fall inside any executable PT_LOAD",
	}}
}

// scanShstrtabBounds flags an e_shstrndx that falls outside the section
// header table, or a shstrtab whose size can't possibly bound every
// section name offset referenced.
func (v *View) scanShstrtabBounds() []Anomaly {
	var out []Anomaly
	if v.Ehdr.Shnum > 0 && int(v.Ehdr.Shstrndx) >= len(v.Shdrs) {
		out = append(out, Anomaly{
			Kind:   "shstrndx-out-of-bounds",
			Detail: "e_shstrndx indexes past the section header table",
		})
	}
	if v.ShstrtabIdx < 0 {
		return out
	}
	shstrtab := v.Shdrs[v.ShstrtabIdx]
	for i, s := range v.Shdrs {
		if s.Name == 0 && i == 0 {
			continue
		}
		if uint64(s.Name) >= shstrtab.Size {
			out = append(out, Anomaly{
				Kind:   "section-name-out-of-bounds",
				Detail: "a section's sh_name offset falls outside .shstrtab",
			})
			break
		}
	}
	return out
}

// scanLoadOverlap flags two PT_LOAD segments whose file ranges overlap.
func (v *View) scanLoadOverlap() []Anomaly {
	loads := v.SegmentsByType(PT_LOAD)
	for i := 0; i < len(loads); i++ {
		for j := i + 1; j < len(loads); j++ {
			a, b := loads[i], loads[j]
			aEnd, bEnd := a.Offset+a.Filesz, b.Offset+b.Filesz
			if a.Offset < bEnd && b.Offset < aEnd {
				return []Anomaly{{
					Kind:   "load-segments-overlap",
					Detail: "two PT_LOAD segments claim overlapping file ranges",
				}}
			}
		}
	}
	return nil
}

// scanDynamicBounds flags a PT_DYNAMIC segment whose file range falls
// outside every PT_LOAD.
func (v *View) scanDynamicBounds() []Anomaly {
	if v.DynPhdrIdx < 0 {
		return nil
	}
	dyn := v.Phdrs[v.DynPhdrIdx]
	for _, p := range v.Phdrs {
		if p.Type == PT_LOAD && dyn.Offset >= p.Offset && dyn.Offset+dyn.Filesz <= p.Offset+p.Filesz {
			return nil
		}
	}
	return []Anomaly{{
		Kind:   "dynamic-outside-load",
		Detail: "PT_DYNAMIC's file range is not contained in any PT_LOAD",
	}}
}

// CheckHook reimplements original_source/src/forensic.c's check_hook: it
// reports true as soon as a .rela.plt-targeted GOT slot points outside
// [start, start+size) — as it does once HookGot (or an external tool) has
// redirected one of them elsewhere — and false while every slot still
// points inside that range.
func (v *View) CheckHook(start, size uint64) (bool, error) {
	const op = "forensic.CheckHook"
	gotPltSh, err := v.SectionByName(".got.plt")
	if err != nil {
		return false, wrapErr(KindSectionNotFound, op, err)
	}
	relaPltSh, err := v.SectionByName(".rela.plt")
	if err != nil {
		return false, wrapErr(KindSectionNotFound, op, err)
	}

	buf := v.Image.Bytes()
	entSize := relaEntSize(v.Class)
	count := int(relaPltSh.Size) / entSize
	relas, err := parseRelas(buf, int(relaPltSh.Offset), count, v.Class, v.BO)
	if err != nil {
		return false, wrapErr(KindMemory, op, err)
	}

	diff := gotPltSh.Addr - gotPltSh.Offset
	for _, r := range relas {
		slot := r.Offset - diff
		if slot+8 > uint64(len(buf)) {
			continue
		}
		val := v.BO.Uint64(buf[slot : slot+8])
		if val < start || val >= start+size {
			return true, nil
		}
	}
	return false, nil
}
