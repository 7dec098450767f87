package elf

import "testing"

func TestRenameSectionShortInPlace(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	err := v.RenameSection(Shstrtab, ".text", ".tx", func(uint32) error {
		t.Fatal("repoint should not be called for an in-place shrink-rename")
		return nil
	})
	if err != nil {
		t.Fatalf("RenameSection: %v", err)
	}
	if _, ok := v.FindName(Shstrtab, ".text"); ok {
		t.Fatal(".text still found after rename")
	}
	if _, ok := v.FindName(Shstrtab, ".tx"); !ok {
		t.Fatal(".tx not found after in-place rename")
	}
}

func TestAddNameGrowsTableAndIsFindable(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	// The fixture's single LOAD is tightly packed (ehdr+phdr+.text+.shstrtab
	// with no slack) and has two subsections, so it's not isolated: this
	// exercises Policy C, the disjoint-segment growth path, rather than
	// the free-tail-space fast path or an in-place LOAD expansion.
	const newName = ".a-brand-new-long-section-name"
	off, err := v.AddName(Shstrtab, newName)
	if err != nil {
		t.Fatalf("AddName: %v", err)
	}

	got, ok := v.FindName(Shstrtab, newName)
	if !ok {
		t.Fatal("newly added name not found")
	}
	if got != off {
		t.Fatalf("FindName offset %d != AddName offset %d", got, off)
	}

	// The original names must still resolve after the table grew.
	if _, ok := v.FindName(Shstrtab, ".text"); !ok {
		t.Fatal(".text no longer found after AddName growth")
	}
	if _, ok := v.FindName(Shstrtab, ".shstrtab"); !ok {
		t.Fatal(".shstrtab no longer found after AddName growth")
	}
}

func TestAddNameIsIdempotent(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	off1, err := v.AddName(Shstrtab, ".dup")
	if err != nil {
		t.Fatalf("AddName first call: %v", err)
	}
	off2, err := v.AddName(Shstrtab, ".dup")
	if err != nil {
		t.Fatalf("AddName second call: %v", err)
	}
	if off1 != off2 {
		t.Fatalf("AddName not idempotent: %d vs %d", off1, off2)
	}
}
