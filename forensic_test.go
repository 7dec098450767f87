package elf

import "testing"

func TestClassifyStaticExecutable(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	if got := v.Classify(); got != ObjectStatic {
		t.Fatalf("Classify() = %v, want ObjectStatic", got)
	}
}

func TestScanCleanFixtureHasNoAnomalies(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	anomalies := v.Scan()
	if len(anomalies) != 0 {
		t.Fatalf("Scan() found %d anomalies on a clean fixture: %+v", len(anomalies), anomalies)
	}
}

func TestScanFlagsEntryOutsideLoad(t *testing.T) {
	data := buildMinimalElf64(t, []byte{0x90, 0x90, 0xc3})
	v, cleanup := openTempView(t, data)
	defer cleanup()

	v.Ehdr.Entry = 0xdeadbeef
	if err := v.writeEhdr(); err != nil {
		t.Fatalf("writeEhdr: %v", err)
	}

	anomalies := v.Scan()
	found := false
	for _, a := range anomalies {
		if a.Kind == "entry-point-outside-load" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Scan() missed entry-point-outside-load: %+v", anomalies)
	}
}

func TestObjectKindStringCoversAllVariants(t *testing.T) {
	for _, k := range []ObjectKind{ObjectStatic, ObjectExeNow, ObjectExeLazy, ObjectShared, ObjectUnknown} {
		if k.String() == "" {
			t.Fatalf("ObjectKind %d has empty String()", k)
		}
	}
}
