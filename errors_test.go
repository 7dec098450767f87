package elf

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := wrapErr(KindSectionNotFound, "query.SectionByName", errors.New("boom"))
	if !errors.Is(err, &Error{Kind: KindSectionNotFound}) {
		t.Fatal("errors.Is did not match on equal Kind")
	}
	if errors.Is(err, &Error{Kind: KindMemory}) {
		t.Fatal("errors.Is matched on different Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := wrapErr(KindMemory, "image.Resize", cause)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is did not find the wrapped cause")
	}
}

func TestKindStringCoversAllVariants(t *testing.T) {
	for k := KindFileOpen; k <= KindAddSegment; k++ {
		if k.String() == "unknown" {
			t.Fatalf("Kind %d has no String() case", k)
		}
	}
}
