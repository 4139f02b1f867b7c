// Package unicorn runs a staged kernel in an emulated arm64 core instead of
// switching exception levels on real hardware.
package unicorn

import (
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/lunixbochs/bootxnu/go/models"
	"github.com/lunixbochs/bootxnu/go/models/ram"
)

const pageSize = 0x1000

type Emulator struct {
	Mem     *ram.Mem
	Console models.Console
	// Steps bounds the run; zero runs until the kernel faults.
	Steps uint64

	// set after a run
	PC       uint64
	Executed uint64
	Dcache   bool
}

func NewEmulator(mem *ram.Mem, console models.Console, steps uint64) *Emulator {
	return &Emulator{Mem: mem, Console: console, Steps: steps, Dcache: true}
}

func (e *Emulator) DisableDcache() {
	e.Dcache = false
}

func (e *Emulator) load(u uc.Unicorn) error {
	pages := e.Mem.Mappings()
	for _, r := range pages.Regions(pageSize) {
		if err := u.MemMapProt(r.Addr, r.Size, uc.PROT_ALL); err != nil {
			return errors.Wrapf(err, "failed to map %#x-%#x", r.Addr, r.Addr+r.Size)
		}
	}
	for _, p := range pages {
		if err := u.MemWrite(p.Addr, p.Data); err != nil {
			return errors.Wrapf(err, "failed to load %s", p)
		}
	}
	return nil
}

// sync copies emulated memory back so snapshots see what the kernel wrote.
func (e *Emulator) sync(u uc.Unicorn) error {
	for _, p := range e.Mem.Mappings() {
		data, err := u.MemRead(p.Addr, p.Size())
		if err != nil {
			return errors.Wrapf(err, "failed to read back %s", p)
		}
		copy(p.Data, data)
	}
	return nil
}

// SwitchToEL1 starts the core at entry with arg in x0 and x1-x3 cleared.
func (e *Emulator) SwitchToEL1(arg, entry uint64) error {
	u, err := uc.NewUnicorn(uc.ARCH_ARM64, uc.MODE_ARM)
	if err != nil {
		return errors.Wrap(err, "NewUnicorn() failed")
	}
	defer u.Close()
	if err := e.load(u); err != nil {
		return err
	}
	regs := map[int]uint64{
		uc.ARM64_REG_X0: arg,
		uc.ARM64_REG_X1: 0,
		uc.ARM64_REG_X2: 0,
		uc.ARM64_REG_X3: 0,
	}
	for reg, val := range regs {
		if err := u.RegWrite(reg, val); err != nil {
			return errors.Wrap(err, "failed to set registers")
		}
	}
	e.Executed = 0
	if _, err := u.HookAdd(uc.HOOK_CODE, func(_ uc.Unicorn, addr uint64, size uint32) {
		e.Executed++
	}, 1, 0); err != nil {
		return errors.Wrap(err, "failed to add code hook")
	}
	runErr := u.StartWithOptions(entry, 0, &uc.UcOptions{Count: e.Steps})
	e.PC, _ = u.RegRead(uc.ARM64_REG_PC)
	if e.Console != nil {
		e.Console.Debugf("emulator stopped at %#x after %d instructions\n", e.PC, e.Executed)
	}
	if err := e.sync(u); err != nil {
		return err
	}
	return errors.Wrapf(runErr, "kernel stopped at %#x", e.PC)
}
