package bootargs

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
	"github.com/lunixbochs/bootxnu/go/models/ram"
)

func TestSize(t *testing.T) {
	size, err := struc.SizeofWithOptions(&BootArgs{}, models.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if size != Size {
		t.Fatalf("boot args pack to %d bytes, want %d", size, Size)
	}
}

func TestTopOfKernelData(t *testing.T) {
	for _, addr := range []uint64{0x4004000, 0x4a10000, 0x4a13e80, 0x4a13e81, 0x7fffc000} {
		top := TopOfKernelData(addr)
		if top%0x4000 != 0 {
			t.Errorf("%#x: top %#x not 16K aligned", addr, top)
		}
		if top < addr+Size || top-(addr+Size) >= 0x4000 {
			t.Errorf("%#x: top %#x does not cover the record tightly", addr, top)
		}
	}
}

func TestBuildLayout(t *testing.T) {
	const addr = 0x4a20000
	b, err := Build(Params{
		VirtBase:         models.DefaultBootVirtBase,
		PhysBase:         models.DefaultBootPhysBase,
		MemSize:          models.DefaultMemSize,
		Addr:             addr,
		DeviceTreeP:      0xfffffff004a10000,
		DeviceTreeLength: 0x1234,
		CommandLine:      "debug=0x8 -v",
	})
	if err != nil {
		t.Fatal(err)
	}
	mem := ram.NewMem(64)
	mem.MemMap(addr, 0x1000, "boot args")
	if err := b.Pack(mem, addr); err != nil {
		t.Fatal(err)
	}
	raw, _ := mem.MemRead(addr, Size)
	le := binary.LittleEndian
	checks := []struct {
		off  int
		size int
		want uint64
	}{
		{0, 2, Revision},
		{2, 2, Version2},
		{8, 8, models.DefaultBootVirtBase},
		{16, 8, models.DefaultBootPhysBase},
		{24, 8, models.DefaultMemSize},
		{32, 8, TopOfKernelData(addr)},
		{96, 8, 0xfffffff004a10000},
		{104, 4, 0x1234},
		{376, 8, 0},
	}
	for _, c := range checks {
		var got uint64
		switch c.size {
		case 2:
			got = uint64(le.Uint16(raw[c.off:]))
		case 4:
			got = uint64(le.Uint32(raw[c.off:]))
		case 8:
			got = le.Uint64(raw[c.off:])
		}
		if got != c.want {
			t.Errorf("offset %d: got %#x, want %#x", c.off, got, c.want)
		}
	}
	if !bytes.Equal(raw[40:88], make([]byte, 48)) {
		t.Error("video block not zeroed")
	}
	line := raw[108 : 108+CommandLineSize]
	if !bytes.HasPrefix(line, []byte("debug=0x8 -v\x00")) || !bytes.Equal(line[12:], make([]byte, CommandLineSize-12)) {
		t.Errorf("bad command line field %q", line[:16])
	}

	back, err := Read(mem, addr)
	if err != nil {
		t.Fatal(err)
	}
	if back.TopOfKernelData != b.TopOfKernelData || trimNul(back.CommandLine) != b.CommandLine {
		t.Errorf("read back %+v", back)
	}
}

func TestBuildLongCommandLine(t *testing.T) {
	if _, err := Build(Params{CommandLine: strings.Repeat("a", 255)}); err != nil {
		t.Fatalf("255 byte command line rejected: %v", err)
	}
	_, err := Build(Params{CommandLine: strings.Repeat("a", 256)})
	if _, ok := errors.Cause(err).(*models.ArgumentError); !ok {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestDump(t *testing.T) {
	b, _ := Build(Params{VirtBase: models.DefaultBootVirtBase, MemSize: models.DefaultMemSize, Addr: 0x4a20000, CommandLine: "-v"})
	var buf bytes.Buffer
	b.Dump(&models.StreamConsole{Out: &buf})
	out := buf.String()
	for _, s := range []string{
		"Boot Args:\n",
		"\tVirtual Base:\t\t0XFFFFFFF000000000\n",
		"\tMemory Size:\t\t0X80000000\n",
		"\tCommand Line:\t\t-v\n",
		"\tVideo:\t\t\tNot Set\n",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("dump missing %q:\n%s", s, out)
		}
	}
}
