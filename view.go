package elf

import "encoding/binary"

// View is C2's typed view over an Image: it exposes the parsed Ehdr, the
// Phdr/Shdr arrays, well-known section handles, symbol table entries, and
// the dynamic array, all re-derived from the raw image after every
// mutation (spec.md §4.2). A View never outlives a Resize of its Image
// without being re-derived — every mutating operation in this package
// calls rederive itself before returning.
type View struct {
	Image *Image
	Ehdr  *Ehdr
	Class Class
	BO    binary.ByteOrder

	Phdrs []Phdr
	Shdrs []Shdr

	// Well-known section indices into Shdrs, or -1 if absent.
	ShstrtabIdx int
	DynstrIdx   int
	StrtabIdx   int
	DynsymIdx   int
	SymtabIdx   int

	DynsymSyms []Sym
	SymtabSyms []Sym

	Dynamic    []Dyn
	DynamicOff int // file offset of the dynamic array, for in-place rewrites
	DynPhdrIdx int // index into Phdrs of the PT_DYNAMIC entry, or -1
}

// NewView parses img's current image into a fresh typed view.
func NewView(img *Image) (*View, error) {
	v := &View{Image: img}
	if err := v.rederive(); err != nil {
		return nil, err
	}
	return v, nil
}

// rederive recomputes every cached field from the raw image, in the order
// spec.md §4.2 mandates: Ehdr -> phdr array -> shdr array -> shstrtab
// handle -> named section handles -> symbol entry arrays -> dynamic array.
func (v *View) rederive() error {
	const op = "view.rederive"
	buf := v.Image.Bytes()

	e, err := ParseEhdr(buf)
	if err != nil {
		return err
	}
	v.Ehdr = e
	v.Class = e.Class()
	v.BO = e.Endian()

	phdrs, err := parsePhdrs(buf, e)
	if err != nil {
		return err
	}
	v.Phdrs = phdrs

	shdrs, err := parseShdrs(buf, e)
	if err != nil {
		return err
	}
	v.Shdrs = shdrs

	v.ShstrtabIdx, v.DynstrIdx, v.StrtabIdx, v.DynsymIdx, v.SymtabIdx = -1, -1, -1, -1, -1
	v.DynsymSyms, v.SymtabSyms, v.Dynamic = nil, nil, nil
	v.DynPhdrIdx = -1

	if e.Shstrndx == 0 && len(shdrs) == 0 {
		// Section headers have been stripped (spec.md invariant 7); don't
		// attempt to locate named sections.
		return v.derivePhdrDynamic(buf, op)
	}
	if int(e.Shstrndx) >= len(shdrs) {
		return errOf(KindOutOfBounds, op)
	}
	v.ShstrtabIdx = int(e.Shstrndx)

	shstrtab := v.Shdrs[v.ShstrtabIdx]
	nameOf := func(s Shdr) (string, error) { return v.stringAt(buf, shstrtab, int(s.Name)) }

	for i, s := range shdrs {
		name, err := nameOf(s)
		if err != nil {
			continue
		}
		switch name {
		case ".dynstr":
			v.DynstrIdx = i
		case ".strtab":
			v.StrtabIdx = i
		case ".dynsym":
			v.DynsymIdx = i
		case ".symtab":
			v.SymtabIdx = i
		}
	}

	if v.DynsymIdx >= 0 {
		s := v.Shdrs[v.DynsymIdx]
		count := 0
		if s.Entsize > 0 {
			count = int(s.Size / s.Entsize)
		}
		syms, err := parseSyms(buf, int(s.Offset), count, v.Class, v.BO)
		if err != nil {
			return err
		}
		v.DynsymSyms = syms
	}
	if v.SymtabIdx >= 0 {
		s := v.Shdrs[v.SymtabIdx]
		count := 0
		if s.Entsize > 0 {
			count = int(s.Size / s.Entsize)
		}
		syms, err := parseSyms(buf, int(s.Offset), count, v.Class, v.BO)
		if err != nil {
			return err
		}
		v.SymtabSyms = syms
	}

	return v.derivePhdrDynamic(buf, op)
}

func (v *View) derivePhdrDynamic(buf []byte, op string) error {
	for i, p := range v.Phdrs {
		if p.Type == PT_DYNAMIC {
			dyn, err := parseDyn(buf, int(p.Offset), v.Class, v.BO)
			if err != nil {
				return err
			}
			v.Dynamic = dyn
			v.DynamicOff = int(p.Offset)
			v.DynPhdrIdx = i
			break
		}
	}
	return nil
}

// stringAt reads a NUL-terminated string at byte offset `at` inside
// section sh from buf.
func (v *View) stringAt(buf []byte, sh Shdr, at int) (string, error) {
	const op = "view.stringAt"
	base := int(sh.Offset)
	if at < 0 || base+at >= len(buf) {
		return "", errOf(KindOutOfBounds, op)
	}
	end := base + at
	for end < len(buf) && end < base+int(sh.Size) && buf[end] != 0 {
		end++
	}
	return string(buf[base+at : end]), nil
}

// DynstrString reads a string from .dynstr at the given offset.
func (v *View) DynstrString(off int) (string, error) {
	const op = "view.DynstrString"
	if v.DynstrIdx < 0 {
		return "", errOf(KindSectionNotFound, op)
	}
	return v.stringAt(v.Image.Bytes(), v.Shdrs[v.DynstrIdx], off)
}

// StrtabString reads a string from .strtab at the given offset.
func (v *View) StrtabString(off int) (string, error) {
	const op = "view.StrtabString"
	if v.StrtabIdx < 0 {
		return "", errOf(KindSectionNotFound, op)
	}
	return v.stringAt(v.Image.Bytes(), v.Shdrs[v.StrtabIdx], off)
}

// ShstrtabString reads a string from .shstrtab at the given offset.
func (v *View) ShstrtabString(off int) (string, error) {
	const op = "view.ShstrtabString"
	if v.ShstrtabIdx < 0 {
		return "", errOf(KindSectionNotFound, op)
	}
	return v.stringAt(v.Image.Bytes(), v.Shdrs[v.ShstrtabIdx], off)
}
