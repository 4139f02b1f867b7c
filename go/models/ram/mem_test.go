package ram

import (
	"bytes"
	"testing"
)

var asdf = []byte("asdf")

func TestMem16(t *testing.T) {
	mem := NewMem(16)
	if err := mem.MemMap(0x10, 0x10, "low"); err != nil {
		t.Fatal("failed to map memory:", err)
	}
	if err := mem.MemMap(0xf000, 0x2000, "wrap"); err == nil {
		t.Fatal("mapped memory outside range")
	}
	if err := mem.MemMap(0x1000, 0, "empty"); err == nil {
		t.Fatal("mapped zero-size region")
	}
	if err := mem.MemWrite(0x1000, asdf); err == nil {
		t.Error("write succeeded above mapped memory")
	}
}

func TestMem(t *testing.T) {
	mappings := [][]uint64{
		{0x1000, 0x1000},
		{0x2000, 0x1000},
		{0x4000, 0x1000},
	}
	mem := NewMem(64)
	for _, v := range mappings {
		if err := mem.MemMap(v[0], v[1], ""); err != nil {
			t.Fatalf("failed to map memory (%#x, %#x): %v", v[0], v[1], err)
		}
	}
	if err := mem.MemWrite(0, asdf); err == nil {
		t.Error("write succeeded below mapped memory")
	}
	if err := mem.MemWrite(0x3000, asdf); err == nil {
		t.Error("write succeeded in the hole between mappings")
	}
	if err := mem.MemWrite(0x2ffe, asdf); err == nil {
		t.Error("write succeeded across the end of a mapping")
	}
	for _, v := range mappings {
		if err := mem.MemWrite(v[0], asdf); err != nil {
			t.Error("write failed inside mapped memory")
		}
	}
	for _, v := range mappings {
		if tmp, err := mem.MemRead(v[0], uint64(len(asdf))); err != nil {
			t.Error("read failed inside mapped memory")
		} else if !bytes.Equal(tmp, asdf) {
			t.Error("read returned bad value")
		}
	}
	// adjacent mappings read as one range
	if err := mem.MemWrite(0x1ffe, asdf); err != nil {
		t.Fatal("write across adjacent mappings failed:", err)
	}
	if tmp, err := mem.MemRead(0x1ffe, 4); err != nil || !bytes.Equal(tmp, asdf) {
		t.Error("read across adjacent mappings failed:", err)
	}
	if len(mem.Mappings()) != len(mappings) {
		t.Errorf("expected %d mappings, got:\n%s", len(mappings), mem.Mappings())
	}
}

func TestMemUnmap(t *testing.T) {
	mem := NewMem(64)
	mem.MemMap(0x1000, 0x3000, "ram")
	if err := mem.MemUnmap(0x2000, 0x1000); err != nil {
		t.Fatal(err)
	}
	if mem.Mapped(0x2000, 1) {
		t.Error("unmapped range still mapped")
	}
	if !mem.Mapped(0x1000, 0x1000) || !mem.Mapped(0x3000, 0x1000) {
		t.Error("unmap removed neighbouring memory")
	}
	if err := mem.MemUnmap(0x2000, 0x1000); err == nil {
		t.Error("double unmap succeeded")
	}
}

func TestMemRemapKeepsData(t *testing.T) {
	mem := NewMem(64)
	mem.MemMap(0x1000, 0x2000, "source")
	mem.MemWrite(0x1000, pattern(0x2000))
	// window grows over the tail of the first mapping
	if err := mem.MemMap(0x2000, 0x3000, "window"); err != nil {
		t.Fatal(err)
	}
	if got := mem.Mappings(); len(got) != 2 || got[0].End() != 0x2000 || got[1].Desc != "window" {
		t.Fatalf("bad mappings:\n%s", got)
	}
	p, err := mem.MemRead(0x1000, 0x2000)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p, pattern(0x2000)) {
		t.Error("remap lost data")
	}
	_, err = mem.MemRead(0x4fff, 2)
	if e, ok := err.(*AccessError); !ok || e.Write || e.Addr != 0x4fff {
		t.Errorf("read past the window: %v", err)
	}
}
