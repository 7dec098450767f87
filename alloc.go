package elf

// alloc.go is C5, the space allocator: it finds or creates a writable
// region of the requested size by walking the decision ladder of
// spec.md §4.4. Grounded on original_source/src/lib/elfutil.c's
// add_section/expand logic and, for the "no move needed" fast path, the
// teacher's own habit of tracking exact byte layouts up front
// (elf_complete.go's `layout` map) rather than discovering free space by
// re-scanning the file.

// Allocation describes where newly allocated space landed.
type Allocation struct {
	Offset  uint64
	Vaddr   uint64
	SegIdx  int
	Resized bool // false only for the "append into free tail space" fast path
}

// Allocate finds or creates `size` bytes of writable space. If loadIdx is
// >= 0, the caller is growing content already living in that LOAD segment
// and regionSize is the current byte size of that content (so the
// allocator can compute free tail space); pass loadIdx < 0 to allocate a
// brand-new region unrelated to any existing LOAD (steps 3–4).
func (v *View) Allocate(loadIdx int, regionSize, size uint64) (Allocation, error) {
	const op = "alloc.Allocate"

	if loadIdx >= 0 {
		if loadIdx >= len(v.Phdrs) || v.Phdrs[loadIdx].Type != PT_LOAD {
			return Allocation{}, wrapErr(KindSegmentNotFound, op, nil)
		}
		if _, isolated := v.IsolatedLoad(loadIdx); isolated {
			load := v.Phdrs[loadIdx]
			// Step 1: free tail space already inside the LOAD.
			if load.Filesz-regionSize >= size {
				return Allocation{
					Offset: load.Offset + regionSize,
					Vaddr:  load.Vaddr + regionSize,
					SegIdx: loadIdx,
				}, nil
			}
			// Step 2: grow the isolated LOAD via the move engine.
			if err := v.ExpandSegmentLoad(loadIdx, size); err != nil {
				return Allocation{}, wrapErr(KindExpandSegment, op, err)
			}
			load = v.Phdrs[loadIdx]
			return Allocation{
				Offset:  load.Offset + load.Filesz - size,
				Vaddr:   load.Vaddr + load.Memsz - size,
				SegIdx:  loadIdx,
				Resized: true,
			}, nil
		}
	}

	// Step 3: repurpose a disposable PT_NOTE/PT_NULL phdr if one exists.
	for i, p := range v.Phdrs {
		if p.Type == PT_NOTE || p.Type == PT_NULL {
			off, vaddr, segIdx, err := v.AddSegmentCommon(size, false, i)
			if err != nil {
				return Allocation{}, err
			}
			return Allocation{Offset: off, Vaddr: vaddr, SegIdx: segIdx, Resized: true}, nil
		}
	}

	// Step 4: no disposable phdr — relocate the PHT into a new tail LOAD.
	off, vaddr, segIdx, err := v.AddSegmentCommon(size, true, -1)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{Offset: off, Vaddr: vaddr, SegIdx: segIdx, Resized: true}, nil
}
