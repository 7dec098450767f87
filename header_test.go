package elf

import "testing"

func TestRoundTripParse(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	original := append([]byte(nil), data...)

	v, cleanup := openTempView(t, data)
	defer cleanup()

	if v.Class != Class64 {
		t.Fatalf("class = %v, want Class64", v.Class)
	}
	if len(v.Shdrs) != 3 {
		t.Fatalf("Shnum = %d, want 3", len(v.Shdrs))
	}
	textSh, err := v.SectionByName(".text")
	if err != nil {
		t.Fatalf("SectionByName(.text): %v", err)
	}
	if textSh.Size != 3 {
		t.Fatalf(".text size = %d, want 3", textSh.Size)
	}

	// Re-serializing without touching anything must reproduce the
	// original bytes exactly (spec.md §8, "Round-trip parse").
	if err := v.Image.Resize(v.Image.Len()); err != nil {
		t.Fatalf("Resize(same): %v", err)
	}
	got := v.Image.Bytes()
	if len(got) != len(original) {
		t.Fatalf("length changed: %d vs %d", len(got), len(original))
	}
	for i := range original {
		if got[i] != original[i] {
			t.Fatalf("byte %d differs: got %x want %x", i, got[i], original[i])
		}
	}
}

func TestElfTypeUnknownIsExplicit(t *testing.T) {
	e := &Ehdr{Type: 0xff}
	typ, ok := e.ElfType()
	if ok {
		t.Fatalf("ElfType() ok = true for type 0xff, want false")
	}
	if typ != 0xff {
		t.Fatalf("ElfType() type = %d, want 0xff", typ)
	}

	for _, known := range []uint16{ET_REL, ET_EXEC, ET_DYN, ET_CORE} {
		e.Type = known
		if _, ok := e.ElfType(); !ok {
			t.Fatalf("ElfType() ok = false for known type %d", known)
		}
	}
}

func TestParseEhdrRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 64)
	if _, err := ParseEhdr(buf); err == nil {
		t.Fatal("ParseEhdr accepted an all-zero buffer")
	}
}
