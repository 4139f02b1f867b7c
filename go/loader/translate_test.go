package loader

import "testing"

func TestTranslator(t *testing.T) {
	xlate := NewTranslator(0xfffffff004004000, 0x4004000)
	if p := xlate.ToPhys(0xfffffff004004000); p != 0x4004000 {
		t.Errorf("base maps to %#x", p)
	}
	if p := xlate.ToPhys(0xfffffff004004050); p != 0x4004050 {
		t.Errorf("entry maps to %#x", p)
	}
	low, high := uint64(0xfffffff004004000), uint64(0xfffffff004804000)
	for v := low; v < high; v += 0x3f01 {
		if back := xlate.ToVirt(xlate.ToPhys(v)); back != v {
			t.Fatalf("%#x -> %#x -> %#x", v, xlate.ToPhys(v), back)
		}
	}
	// distinct inputs stay distinct
	if xlate.ToPhys(low) == xlate.ToPhys(low+1) {
		t.Error("translation is not injective")
	}
}
