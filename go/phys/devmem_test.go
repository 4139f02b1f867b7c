package phys

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func tempMem(t *testing.T, size int) (*DevMem, string) {
	dir, err := ioutil.TempDir("", "bootxnu-phys")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "mem")
	if err := ioutil.WriteFile(path, make([]byte, size), 0600); err != nil {
		t.Fatal(err)
	}
	mem, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mem.Close() })
	return mem, path
}

func TestDevMemReadWrite(t *testing.T) {
	mem, path := tempMem(t, 0x10000)
	// crosses a page boundary at an unaligned offset
	payload := bytes.Repeat([]byte("xnu!"), 0x500)
	const addr = 0x1ff3
	if err := mem.MemWrite(addr, payload); err != nil {
		t.Fatal(err)
	}
	got, err := mem.MemRead(addr, uint64(len(payload)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("read back mismatch")
	}
	file, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(file[addr:addr+len(payload)], payload) {
		t.Error("write did not reach the backing file")
	}
	if file[addr-1] != 0 || file[addr+len(payload)] != 0 {
		t.Error("write spilled outside the requested range")
	}
}

func TestDevMemEmpty(t *testing.T) {
	mem, _ := tempMem(t, 0x1000)
	if p, err := mem.MemRead(0x800, 0); err != nil || len(p) != 0 {
		t.Fatalf("empty read: %v %v", p, err)
	}
	if err := mem.MemWrite(^uint64(0)-4, make([]byte, 16)); err == nil {
		t.Fatal("wrapping write accepted")
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(os.TempDir(), "bootxnu-no-such-mem")); err == nil {
		t.Fatal("opened a missing file")
	}
}
