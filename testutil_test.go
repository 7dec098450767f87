package elf

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildMinimalElf64 assembles a small, self-consistent ET_EXEC ELF64 image
// with one PT_LOAD (R|X) covering the whole file, a .text section holding
// codeBytes, and a .shstrtab section naming both. It's deliberately
// minimal: just enough structure for the typed view (C2) and index
// managers (C3) to parse and round-trip without a real linker's output.
func buildMinimalElf64(t *testing.T, codeBytes []byte) []byte {
	t.Helper()
	bo := binary.LittleEndian

	const (
		ehSize   = 64
		phSize   = 56
		shSize   = 64
		textOff  = uint64(ehSize + phSize) // right after the single phdr
		baseAddr = uint64(0x400000)
	)

	shstrtab := []byte{0}
	textNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, []byte(".text\x00")...)
	shstrtabNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, []byte(".shstrtab\x00")...)

	textOffAligned := textOff
	shstrtabOff := textOffAligned + uint64(len(codeBytes))
	shOff := shstrtabOff + uint64(len(shstrtab))
	// round shOff up to 8-byte alignment
	shOff = (shOff + 7) &^ 7
	total := shOff + 3*shSize

	buf := make([]byte, total)

	eh := &Ehdr{
		Type:      ET_EXEC,
		Machine:   62,
		Version:   1,
		Entry:     baseAddr + textOffAligned,
		Phoff:     uint64(ehSize),
		Shoff:     shOff,
		Ehsize:    ehSize,
		Phentsize: phSize,
		Phnum:     1,
		Shentsize: shSize,
		Shnum:     3,
		Shstrndx:  2,
	}
	eh.Ident[EI_MAG0] = elfMagic[0]
	eh.Ident[EI_MAG1] = elfMagic[1]
	eh.Ident[EI_MAG2] = elfMagic[2]
	eh.Ident[EI_MAG3] = elfMagic[3]
	eh.Ident[EI_CLASS] = ELFCLASS64
	eh.Ident[EI_DATA] = ELFDATA2LSB
	eh.Ident[EI_VERSION] = 1
	if err := eh.Put(buf); err != nil {
		t.Fatalf("put ehdr: %v", err)
	}

	load := Phdr{
		Type:   PT_LOAD,
		Flags:  PF_R | PF_X,
		Offset: 0,
		Vaddr:  baseAddr,
		Paddr:  baseAddr,
		Filesz: shstrtabOff + uint64(len(shstrtab)),
		Memsz:  shstrtabOff + uint64(len(shstrtab)),
		Align:  PageSize,
	}
	if err := putPhdr(buf, ehSize, bo, Class64, load); err != nil {
		t.Fatalf("put phdr: %v", err)
	}

	copy(buf[textOffAligned:], codeBytes)
	copy(buf[shstrtabOff:], shstrtab)

	null := Shdr{}
	text := Shdr{
		Name:      textNameOff,
		Type:      SHT_PROGBITS,
		Flags:     SHF_ALLOC | SHF_EXECINSTR,
		Addr:      baseAddr + textOffAligned,
		Offset:    textOffAligned,
		Size:      uint64(len(codeBytes)),
		Addralign: 1,
	}
	shstrtabSh := Shdr{
		Name:      shstrtabNameOff,
		Type:      SHT_STRTAB,
		Offset:    shstrtabOff,
		Size:      uint64(len(shstrtab)),
		Addralign: 1,
	}
	if err := putShdr(buf, int(shOff), bo, Class64, null); err != nil {
		t.Fatalf("put shdr 0: %v", err)
	}
	if err := putShdr(buf, int(shOff)+shSize, bo, Class64, text); err != nil {
		t.Fatalf("put shdr 1: %v", err)
	}
	if err := putShdr(buf, int(shOff)+2*shSize, bo, Class64, shstrtabSh); err != nil {
		t.Fatalf("put shdr 2: %v", err)
	}

	return buf
}

// openTempView writes data to a temp file and returns an opened View over
// it, for tests that need to exercise mutating operations through the
// real C1 image backing store.
func openTempView(t *testing.T, data []byte) (*View, func()) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp elf: %v", err)
	}
	img, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v, err := NewView(img)
	if err != nil {
		img.Close()
		t.Fatalf("NewView: %v", err)
	}
	return v, func() { img.Close() }
}
