// Package boot lays out and hands off an XNU boot: kernel segments, ramdisk,
// patched device tree and boot args in one physical window.
package boot

import (
	"debug/macho"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/bootargs"
	"github.com/lunixbochs/bootxnu/go/devicetree"
	"github.com/lunixbochs/bootxnu/go/loader"
	"github.com/lunixbochs/bootxnu/go/models"
)

// Request names the physical source buffers, as passed on the command line.
type Request struct {
	Kernel     models.Segment
	Ramdisk    models.Segment
	DeviceTree models.Segment
}

type Loader struct {
	Config   *models.Config
	Mem      models.PhysMem
	Console  models.Console
	Env      models.Env
	Cache    models.Cache
	Switcher models.Switcher
	// Prestage runs once the plan is laid out, before anything is written.
	Prestage func(p *Plan) error
	// Preboot runs after staging, right before the handoff.
	Preboot func(p *Plan) error
}

func NewLoader(config *models.Config, mem models.PhysMem) *Loader {
	return &Loader{
		Config:   config,
		Mem:      mem,
		Console:  config.Console(),
		Env:      models.MapEnv{},
		Cache:    NopCache{},
		Switcher: &Staged{},
	}
}

func (l *Loader) read(name string, s models.Segment) ([]byte, error) {
	if s.Empty() {
		return nil, nil
	}
	data, err := l.Mem.MemRead(s.Start, s.Size())
	return data, errors.Wrapf(err, "failed to read %s at %s", name, &s)
}

func named(name string, s models.Segment) models.NamedSegment {
	return models.NamedSegment{Name: name, Segment: s}
}

func span(base, size uint64) (uint64, error) {
	end := base + size
	if end < base {
		return 0, models.ImageRangeErrorf("%#x + %#x overflows", base, size)
	}
	return end, nil
}

func checkSource(name string, s models.Segment) error {
	if s.End < s.Start {
		return models.ArgumentErrorf("%s range %s wraps around", name, &s)
	}
	return nil
}

// Prepare validates the request and computes every destination. It reads
// the sources but writes nothing.
func (l *Loader) Prepare(req *Request) (*Plan, error) {
	cfg := l.Config
	for _, s := range []models.NamedSegment{named("kernel", req.Kernel), named("ramdisk", req.Ramdisk), named("device tree", req.DeviceTree)} {
		if err := checkSource(s.Name, s.Segment); err != nil {
			return nil, err
		}
	}
	if req.Kernel.Empty() {
		return nil, models.ArgumentErrorf("empty kernel image")
	}
	data, err := l.read("kernel", req.Kernel)
	if err != nil {
		return nil, err
	}
	img, err := loader.ParseImage(data)
	if err != nil {
		return nil, err
	}
	if img.Cpu() != macho.CpuArm64 {
		return nil, models.ImageFormatErrorf(4, "cputype %v, expected %v", img.Cpu(), macho.CpuArm64)
	}
	if err := img.CheckSegments(); err != nil {
		return nil, err
	}
	low, high, err := img.Range()
	if err != nil {
		return nil, err
	}
	if low != cfg.KernelVirtBase {
		return nil, models.ImageRangeErrorf("lowest segment at %#x, kernel must start at %#x", low, cfg.KernelVirtBase)
	}
	p := &Plan{
		Image:    img,
		Xlate:    loader.NewTranslator(cfg.KernelVirtBase, cfg.WindowBase),
		Low:      low,
		High:     high,
		ZeroFill: cfg.ZeroFill,
	}
	if p.EntryVirt, err = img.EntryVirt(); err != nil {
		return nil, err
	}
	if p.EntryVirt < low || p.EntryVirt >= high {
		return nil, models.ImageRangeErrorf("entry point %#x outside image [%#x-%#x)", p.EntryVirt, low, high)
	}
	p.Entry = p.Xlate.ToPhys(p.EntryVirt)
	if p.Writes, err = img.Destinations(cfg.WindowBase, low); err != nil {
		return nil, err
	}

	if p.Ramdisk, err = l.read("ramdisk", req.Ramdisk); err != nil {
		return nil, err
	}
	p.RamdiskVirt = high
	p.RamdiskPhys = p.Xlate.ToPhys(high)
	next, err := span(high, uint64(len(p.Ramdisk)))
	if err != nil {
		return nil, err
	}
	if len(p.Ramdisk) > 0 {
		p.Writes = append(p.Writes, named("ramdisk", models.NewSegment(p.RamdiskPhys, uint64(len(p.Ramdisk)))))
	}

	dt, err := l.read("device tree", req.DeviceTree)
	if err != nil {
		return nil, err
	}
	p.DeviceTree, err = devicetree.Patch(dt, devicetree.PatchParams{
		HasRamdisk:      len(p.Ramdisk) > 0,
		RamdiskAddr:     p.RamdiskPhys,
		RamdiskSize:     uint64(len(p.Ramdisk)),
		FirmwareVersion: cfg.FirmwareVersion,
	})
	if err != nil {
		return nil, err
	}
	if uint64(len(p.DeviceTree)) > 0xffffffff {
		return nil, models.DeviceTreeErrorf(0, "device tree too large (%#x bytes)", len(p.DeviceTree))
	}
	p.DeviceTreeVirt = models.AlignUp(next, ExtraAlign)
	p.DeviceTreePhys = p.Xlate.ToPhys(p.DeviceTreeVirt)
	p.Writes = append(p.Writes, named("device tree", models.NewSegment(p.DeviceTreePhys, uint64(len(p.DeviceTree)))))

	dtEnd, err := span(p.DeviceTreeVirt, uint64(len(p.DeviceTree)))
	if err != nil {
		return nil, err
	}
	if dtEnd > ^uint64(0)-ExtraAlign-bootargs.Size {
		return nil, models.ImageRangeErrorf("device tree end %#x leaves no room for boot args", dtEnd)
	}
	p.BootArgsPhys = p.Xlate.ToPhys(models.AlignUp(dtEnd, ExtraAlign))
	p.Writes = append(p.Writes, named("boot args", models.NewSegment(p.BootArgsPhys, bootargs.Size)))

	cmdline, ok := l.Env.Get(cfg.CommandLineVar)
	if !ok {
		l.Console.Debugf("%s not set, booting with an empty command line\n", cfg.CommandLineVar)
	}
	p.BootArgs, err = bootargs.Build(bootargs.Params{
		VirtBase:         cfg.BootVirtBase,
		PhysBase:         cfg.BootPhysBase,
		MemSize:          cfg.MemSize,
		Addr:             p.BootArgsPhys,
		DeviceTreeP:      p.DeviceTreeVirt,
		DeviceTreeLength: uint32(len(p.DeviceTree)),
		CommandLine:      cmdline,
	})
	if err != nil {
		return nil, err
	}
	if err := l.checkOverlap(p, req); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *Loader) checkOverlap(p *Plan, req *Request) error {
	if err := models.CheckOverlap(p.Writes); err != nil {
		return errors.WithStack(err)
	}
	for _, w := range p.Writes {
		if w.End > p.BootArgs.TopOfKernelData {
			return models.ImageRangeErrorf("%s ends at %#x past top of kernel data %#x", w.Name, w.End, p.BootArgs.TopOfKernelData)
		}
	}
	sources := []models.NamedSegment{
		named("kernel source", req.Kernel),
		named("ramdisk source", req.Ramdisk),
		named("device tree source", req.DeviceTree),
	}
	if err := models.CheckOverlap(sources); err != nil {
		return errors.WithStack(err)
	}
	window := named("window", p.Window())
	for _, s := range sources {
		if err := models.CheckOverlap([]models.NamedSegment{window, s}); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Stage writes the plan into the window and prints the boot args.
func (l *Loader) Stage(p *Plan) error {
	if err := p.Image.Relocate(l.Mem, l.Config.WindowBase, p.Low, p.ZeroFill); err != nil {
		return err
	}
	if len(p.Ramdisk) > 0 {
		if err := l.Mem.MemWrite(p.RamdiskPhys, p.Ramdisk); err != nil {
			return errors.Wrap(err, "failed to copy ramdisk")
		}
	}
	if err := l.Mem.MemWrite(p.DeviceTreePhys, p.DeviceTree); err != nil {
		return errors.Wrap(err, "failed to copy device tree")
	}
	if err := p.BootArgs.Pack(l.Mem, p.BootArgsPhys); err != nil {
		return err
	}
	p.BootArgs.Dump(l.Console)
	return nil
}

func (l *Loader) Handoff() *Handoff {
	return &Handoff{Cache: l.Cache, Switcher: l.Switcher, Console: l.Console}
}

// Boot prepares, stages and jumps. It only returns on failure or when the
// switcher is not real hardware.
func (l *Loader) Boot(req *Request) error {
	models.Banner(l.Console, StartupBanner)
	p, err := l.Prepare(req)
	if err != nil {
		return err
	}
	p.Describe(l.Console)
	if l.Prestage != nil {
		if err := l.Prestage(p); err != nil {
			return errors.Wrap(err, "prestage hook failed")
		}
	}
	if err := l.Stage(p); err != nil {
		return err
	}
	if l.Preboot != nil {
		if err := l.Preboot(p); err != nil {
			return errors.Wrap(err, "preboot hook failed")
		}
	}
	return l.Handoff().Jump(p.Entry, p.BootArgsPhys)
}
