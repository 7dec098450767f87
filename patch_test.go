package elf

import "testing"

func TestEditHexBoundsChecked(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	if err := v.EditHex(0, []byte{0x7f, 'E', 'L', 'F'}); err != nil {
		t.Fatalf("EditHex in-bounds: %v", err)
	}
	if err := v.EditHex(uint64(v.Image.Len()), []byte{0x00}); err == nil {
		t.Fatal("EditHex past end of file should fail")
	}
}

func TestEditPointerWidthMatchesClass(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	if err := v.EditPointer(0x18, 0x4141414141414141); err != nil {
		t.Fatalf("EditPointer: %v", err)
	}
	buf := v.Image.Bytes()
	got := v.BO.Uint64(buf[0x18:0x20])
	if got != 0x4141414141414141 {
		t.Fatalf("EditPointer wrote %x, want 0x4141414141414141", got)
	}
}

func TestDeleteSectionShrinksImageAndShnum(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	before := v.Image.Len()
	textSh, err := v.SectionByName(".text")
	if err != nil {
		t.Fatalf("SectionByName: %v", err)
	}
	size := textSh.Size

	if err := v.DeleteSection(textSh.Index); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	if got := v.Image.Len(); got != before-int(size) {
		t.Fatalf("image len = %d, want %d", got, before-int(size))
	}
	if len(v.Shdrs) != 2 {
		t.Fatalf("Shnum after delete = %d, want 2", len(v.Shdrs))
	}
	if _, err := v.SectionByName(".text"); err == nil {
		t.Fatal(".text still resolves after DeleteSection")
	}
}

func TestDeleteAllSectionHeadersZeroesShoff(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	if err := v.DeleteAllSectionHeaders(); err != nil {
		t.Fatalf("DeleteAllSectionHeaders: %v", err)
	}
	if v.Ehdr.Shoff != 0 || v.Ehdr.Shnum != 0 || v.Ehdr.Shstrndx != 0 {
		t.Fatalf("ehdr not zeroed: shoff=%d shnum=%d shstrndx=%d", v.Ehdr.Shoff, v.Ehdr.Shnum, v.Ehdr.Shstrndx)
	}
	if len(v.Shdrs) != 0 {
		t.Fatalf("Shdrs not cleared: %d remain", len(v.Shdrs))
	}
}
