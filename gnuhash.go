package elf

// gnuhash.go rebuilds the GNU hash table (part of C8), per spec.md §4.8.
// Grounded on the teacher's buildHashTable (elf_sections.go) — which
// builds the much simpler classic SysV .hash (single bucket, linear
// chain) — generalized here to the GNU hash format's bloom filter +
// bucket + chain layout, since that's what spec.md's GnuHash type and
// hash-correctness property (spec.md §8) require.

// gnuHash is the djb2-style hash spec.md §4.8 specifies:
// h = 5381; for c in name: h = h*33 + c, unsigned 32-bit.
func gnuHash(name string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(name); i++ {
		h = h*33 + uint32(name[i])
	}
	return h
}

// bloomWordBits returns the bit width of one bloom-filter word: 32 for
// CLASS32, 64 for CLASS64 (spec.md §3).
func bloomWordBits(c Class) uint32 {
	if c == Class32 {
		return 32
	}
	return 64
}

// RebuildGnuHash recomputes .gnu.hash from the current .dynsym contents.
// If the new table is no larger than the existing one, it's overwritten
// in place; otherwise a new segment is allocated and DT_GNU_HASH is
// retargeted.
func (v *View) RebuildGnuHash() error {
	const op = "gnuhash.RebuildGnuHash"

	gnuHashSh, err := v.SectionByName(".gnu.hash")
	if err != nil {
		return nil // no GNU hash section to maintain; not an error
	}

	k := uint32(len(v.DynsymSyms))
	symndx := uint32(1) // symbol 0 is always the null symbol
	for i, s := range v.DynsymSyms {
		if s.Shndx != SHN_UNDEF {
			symndx = uint32(i)
			break
		}
	}
	nbuckets := k - symndx
	if nbuckets == 0 {
		nbuckets = 1
	}
	c := bloomWordBits(v.Class)
	maskbits := uint32(1)
	for maskbits < (k-symndx)/4+1 {
		maskbits <<= 1
	}
	if maskbits == 0 {
		maskbits = 1
	}
	shift := uint32(6)

	hashes := make([]uint32, k)
	for i := symndx; i < k; i++ {
		name, err := v.DynstrString(int(v.DynsymSyms[i].Name))
		if err != nil {
			return wrapErr(KindMemory, op, err)
		}
		hashes[i] = gnuHash(name)
	}

	bloom := make([]uint64, maskbits)
	for i := symndx; i < k; i++ {
		h := hashes[i]
		word := (h / c) & (maskbits - 1)
		bloom[word] |= (uint64(1) << (h % c)) | (uint64(1) << ((h >> shift) % c))
	}

	buckets := make([]uint32, nbuckets)
	chain := make([]uint32, k-symndx)

	// Walk symbols [symndx, k) in .dynsym order: chain slots are indexed by
	// dynsym position, so a bucket sequence that decreases along .dynsym
	// cannot be encoded and is rejected with OutOfBounds below.
	order := make([]int, 0, k-symndx)
	for i := symndx; i < k; i++ {
		order = append(order, int(i))
	}

	previousBucket := uint32(0)
	for pos, symIdx := range order {
		h := hashes[symIdx]
		b := h % nbuckets
		if pos > 0 && b < previousBucket {
			return wrapErr(KindOutOfBounds, op, nil)
		}
		if pos == 0 || b != previousBucket {
			buckets[b] = uint32(symIdx)
		}
		chainSlot := uint32(symIdx) - symndx
		chain[chainSlot] = h &^ 1
		if pos+1 < len(order) {
			nextB := hashes[order[pos+1]] % nbuckets
			if nextB != b {
				chain[chainSlot] |= 1
			}
		} else {
			chain[chainSlot] |= 1
		}
		previousBucket = b
	}

	headerSize := uint64(16)
	bloomSize := uint64(maskbits) * uint64(c/8)
	bucketSize := uint64(nbuckets) * 4
	chainSize := uint64(len(chain)) * 4
	total := headerSize + bloomSize + bucketSize + chainSize

	buf := make([]byte, total)
	v.BO.PutUint32(buf[0:4], nbuckets)
	v.BO.PutUint32(buf[4:8], symndx)
	v.BO.PutUint32(buf[8:12], maskbits)
	v.BO.PutUint32(buf[12:16], shift)
	off := headerSize
	for _, w := range bloom {
		if c == 32 {
			v.BO.PutUint32(buf[off:off+4], uint32(w))
			off += 4
		} else {
			v.BO.PutUint64(buf[off:off+8], w)
			off += 8
		}
	}
	for _, w := range buckets {
		v.BO.PutUint32(buf[off:off+4], w)
		off += 4
	}
	for _, w := range chain {
		v.BO.PutUint32(buf[off:off+4], w)
		off += 4
	}

	return v.writeSectionBytes(gnuHashSh.Index, buf, DT_GNU_HASH)
}

// sortByBucket stable-sorts symbol indices by their bucket (hash % n).
func sortByBucket(order []int, hashes []uint32, n uint32) {
	// Simple stable insertion sort: these arrays are small (dynsym counts
	// rarely exceed a few thousand for the files this engine targets) and
	// insertion sort keeps the stability guarantee explicit and obvious.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && (hashes[order[j-1]]%n) > (hashes[order[j]]%n) {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
}

// writeSectionBytes replaces a section's contents with newBytes, growing
// its LOAD via the allocator if necessary, and retargets the given
// address-valued dynamic tag to the section's new vaddr.
func (v *View) writeSectionBytes(secIdx int, newBytes []byte, dynTag int64) error {
	const op = "gnuhash.writeSectionBytes"
	sh := v.Shdrs[secIdx]
	needed := uint64(len(newBytes))

	if needed <= sh.Size {
		buf := v.Image.Bytes()
		copy(buf[sh.Offset:], newBytes)
		for i := sh.Offset + needed; i < sh.Offset+sh.Size; i++ {
			buf[i] = 0
		}
		return nil
	}

	loadIdx := v.LoadContaining(sh.Offset)
	alloc, err := v.Allocate(loadIdx, sh.Size, needed-sh.Size)
	if err != nil {
		return wrapErr(KindMemory, op, err)
	}
	buf := v.Image.Bytes()
	writeAt := alloc.Offset
	if !alloc.Resized {
		writeAt = sh.Offset
	} else if alloc.SegIdx == loadIdx {
		writeAt = sh.Offset
	}
	copy(buf[writeAt:], newBytes)
	sh = v.Shdrs[secIdx]
	sh.Size = needed
	if writeAt != sh.Offset {
		sh.Offset = writeAt
		sh.Addr = alloc.Vaddr - (alloc.Offset - writeAt)
	}
	if err := v.writeShdr(secIdx, sh); err != nil {
		return wrapErr(KindMemory, op, err)
	}
	if err := v.rederive(); err != nil {
		return err
	}
	if dynTag != 0 {
		return v.SetDynValue(dynTag, v.Shdrs[secIdx].Addr)
	}
	return nil
}
