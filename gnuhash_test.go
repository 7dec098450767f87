package elf

import "testing"

func TestGnuHashEmptyString(t *testing.T) {
	if got := gnuHash(""); got != 5381 {
		t.Fatalf("gnuHash(\"\") = %d, want 5381", got)
	}
}

func TestGnuHashDeterministic(t *testing.T) {
	a := gnuHash("malloc")
	b := gnuHash("malloc")
	if a != b {
		t.Fatalf("gnuHash not deterministic: %d vs %d", a, b)
	}
	if gnuHash("malloc") == gnuHash("free") {
		t.Fatal("distinct names hashed identically (suspiciously)")
	}
}

func TestSortByBucketIsNonDecreasing(t *testing.T) {
	hashes := []uint32{17, 3, 9, 3, 100, 1}
	order := []int{0, 1, 2, 3, 4, 5}
	const n = 4
	sortByBucket(order, hashes, n)

	prev := uint32(0)
	for i, idx := range order {
		b := hashes[idx] % n
		if i > 0 && b < prev {
			t.Fatalf("bucket order decreased at position %d: %d < %d", i, b, prev)
		}
		prev = b
	}
}

func TestSortByBucketStable(t *testing.T) {
	// Two entries landing in the same bucket must keep their relative
	// input order (GNU hash chains require this for correct traversal).
	hashes := []uint32{4, 8} // both % 4 == 0
	order := []int{0, 1}
	sortByBucket(order, hashes, 4)
	if order[0] != 0 || order[1] != 1 {
		t.Fatalf("stable order violated: %v", order)
	}
}
