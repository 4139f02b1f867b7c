package models

import (
	"bytes"
	"testing"

	"github.com/lunixbochs/bootxnu/go/models/ram"
)

func TestSnapshotRoundTrip(t *testing.T) {
	mem := ram.NewMem(64)
	mem.MemMap(0x4004000, 0x2000, "kernel")
	mem.MemMap(0x8000000, 0x1000, "bootargs")
	mem.MemWrite(0x4004000, []byte("kernel text"))
	mem.MemWrite(0x8000ff0, []byte("tail"))

	var buf bytes.Buffer
	snap := &Snapshot{Entry: 0x4004050, BootArgs: 0x8000000, Pages: mem.Mappings()}
	if err := SaveSnapshot(&buf, snap); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Entry != snap.Entry || loaded.BootArgs != snap.BootArgs {
		t.Errorf("registers not preserved: %#x %#x", loaded.Entry, loaded.BootArgs)
	}
	if len(loaded.Pages) != 2 || loaded.Pages[0].Desc != "kernel" {
		t.Fatalf("bad pages:\n%s", loaded.Pages)
	}
	restored := ram.NewMem(64)
	if err := loaded.Restore(restored); err != nil {
		t.Fatal(err)
	}
	if p, err := restored.MemRead(0x8000ff0, 4); err != nil || string(p) != "tail" {
		t.Errorf("restored memory mismatch: %q %v", p, err)
	}
}

func TestSnapshotCorrupt(t *testing.T) {
	var buf bytes.Buffer
	mem := ram.NewMem(64)
	mem.MemMap(0x1000, 0x1000, "")
	if err := SaveSnapshot(&buf, &Snapshot{Pages: mem.Mappings()}); err != nil {
		t.Fatal(err)
	}
	p := buf.Bytes()
	p[0] = 'X'
	if _, err := LoadSnapshot(bytes.NewReader(p)); err == nil {
		t.Fatal("loaded snapshot with bad magic")
	}
}
