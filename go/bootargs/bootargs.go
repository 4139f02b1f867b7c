// Package bootargs builds the boot_args record XNU reads from x0 on entry.
package bootargs

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
)

const (
	Revision = 1
	Version2 = 2

	CommandLineSize = 256
	// Size of the packed record.
	Size = 384

	KernelDataAlign = 0x4000
)

// BootArgs mirrors pexpert/arm64/boot.h. Video is kept inline and always zero.
type BootArgs struct {
	Revision        uint16
	Version         uint16
	Pad0            uint32
	VirtBase        uint64
	PhysBase        uint64
	MemSize         uint64
	TopOfKernelData uint64

	VideoBaseAddr uint64
	VideoDisplay  uint64
	VideoRowBytes uint64
	VideoWidth    uint64
	VideoHeight   uint64
	VideoDepth    uint64

	MachineType      uint32
	Pad1             uint32
	DeviceTreeP      uint64
	DeviceTreeLength uint32
	CommandLine      string `struc:"[256]byte"`
	Pad2             uint32
	BootFlags        uint64
	MemSizeActual    uint64
}

type Params struct {
	VirtBase uint64
	PhysBase uint64
	MemSize  uint64
	// Addr is the physical address the record is written to.
	Addr uint64

	DeviceTreeP      uint64
	DeviceTreeLength uint32
	CommandLine      string
}

// TopOfKernelData is the first physical address past the record at addr,
// on a 16K boundary.
func TopOfKernelData(addr uint64) uint64 {
	return models.AlignUp(addr+Size, KernelDataAlign)
}

func Build(p Params) (*BootArgs, error) {
	if len(p.CommandLine) >= CommandLineSize {
		return nil, models.ArgumentErrorf("command line is %d bytes, limit is %d", len(p.CommandLine), CommandLineSize-1)
	}
	return &BootArgs{
		Revision:         Revision,
		Version:          Version2,
		VirtBase:         p.VirtBase,
		PhysBase:         p.PhysBase,
		MemSize:          p.MemSize,
		TopOfKernelData:  TopOfKernelData(p.Addr),
		DeviceTreeP:      p.DeviceTreeP,
		DeviceTreeLength: p.DeviceTreeLength,
		CommandLine:      p.CommandLine,
		// zero lets the kernel estimate it
		MemSizeActual: 0,
	}, nil
}

func (b *BootArgs) Pack(mem models.PhysMem, addr uint64) error {
	return errors.Wrapf(models.StrucAt(mem, addr).Pack(b), "failed to write boot args at %#x", addr)
}

func Read(mem models.PhysMem, addr uint64) (*BootArgs, error) {
	b := &BootArgs{}
	if err := models.StrucAt(mem, addr).Unpack(b); err != nil {
		return nil, errors.Wrapf(err, "failed to read boot args at %#x", addr)
	}
	return b, nil
}

func (b *BootArgs) Dump(c models.Console) {
	c.Printf("Boot Args:\n"+
		"\tRevision:\t\t%d\n"+
		"\tVersion:\t\t%d\n"+
		"\tVirtual Base:\t\t%#X\n"+
		"\tPhysical Base:\t\t%#X\n"+
		"\tMemory Size:\t\t%#X\n"+
		"\tTop of Kernel Data:\t%#X\n"+
		"\tDevice Tree:\t\t%#X\n"+
		"\tDevice Tree Size:\t%d\n"+
		"\tCommand Line:\t\t%s\n"+
		"\tVideo:\t\t\tNot Set\n"+
		"\tMemory Size Actual:\t%#X\n\n",
		b.Revision, b.Version, b.VirtBase, b.PhysBase, b.MemSize, b.TopOfKernelData,
		b.DeviceTreeP, b.DeviceTreeLength, trimNul(b.CommandLine), b.MemSizeActual)
}

func trimNul(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i]
		}
	}
	return s
}
