package boot

import (
	"github.com/lunixbochs/bootxnu/go/bootargs"
	"github.com/lunixbochs/bootxnu/go/loader"
	"github.com/lunixbochs/bootxnu/go/models"
)

// XNU expects the ramdisk, device tree and boot args on 64K boundaries.
const ExtraAlign = 0x10000

// Plan is a fully validated boot layout. Nothing has been written yet.
type Plan struct {
	Image     *loader.Image
	Xlate     loader.Translator
	Low, High uint64
	ZeroFill  bool

	EntryVirt uint64
	Entry     uint64

	Ramdisk     []byte
	RamdiskVirt uint64
	RamdiskPhys uint64

	// DeviceTree is the patched copy.
	DeviceTree     []byte
	DeviceTreeVirt uint64
	DeviceTreePhys uint64

	BootArgs     *bootargs.BootArgs
	BootArgsPhys uint64

	// Writes is every destination range, in staging order.
	Writes []models.NamedSegment
}

// Window spans every byte the boot writes, up to topOfKernelData.
func (p *Plan) Window() models.Segment {
	return models.Segment{Start: p.Xlate.PhysBase, End: p.BootArgs.TopOfKernelData}
}

func (p *Plan) Describe(c models.Console) {
	c.Debugf("kernel:      %#x-%#x -> %#x\n", p.Low, p.High, p.Xlate.ToPhys(p.Low))
	c.Debugf("entry:       %#x -> %#x\n", p.EntryVirt, p.Entry)
	if len(p.Ramdisk) > 0 {
		c.Debugf("ramdisk:     %#x -> %#x (%#x bytes)\n", p.RamdiskVirt, p.RamdiskPhys, len(p.Ramdisk))
	}
	c.Debugf("device tree: %#x -> %#x (%#x bytes)\n", p.DeviceTreeVirt, p.DeviceTreePhys, len(p.DeviceTree))
	c.Debugf("boot args:   %#x\n", p.BootArgsPhys)
	for _, w := range p.Writes {
		c.Debugf("  write %-20s %s\n", w.Name, &w.Segment)
	}
}
