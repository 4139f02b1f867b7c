package boot

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
)

// StartupBanner is printed once when a boot starts.
const StartupBanner = "\n\n" +
	"===========================================================================\n" +
	"::\n" +
	":: nBoot for BCM2711, Copyright 2020 Alexander Bradley (@abradleyuno).\n" +
	"::\n" +
	"::\tVERSION: " + models.DefaultFirmwareVersion + "\n" +
	"::\n" +
	"::\tNOTES:  Thanks to Zhuowei Zhang (@zhuowei), matteyeux (@matteyeux),\n" +
	"::\t\t@winocm and Kristina Brooks (github:@christinaa).\n" +
	"::\n" +
	"===========================================================================\n\n\n"

// Handoff runs the last steps before the kernel owns the machine.
type Handoff struct {
	Cache    models.Cache
	Switcher models.Switcher
	Console  models.Console
}

// Jump disables the data cache and drops to EL1 at entry with bootArgs in x0.
// On hardware it never returns.
func (h *Handoff) Jump(entry, bootArgs uint64) error {
	h.Cache.DisableDcache()
	models.Banner(h.Console, fmt.Sprintf("Booting XNU at %#X\n\n", entry))
	return errors.Wrap(h.Switcher.SwitchToEL1(bootArgs, entry), "EL1 switch failed")
}

// Staged stands in for the EL1 switch when the boot is only laid out.
type Staged struct {
	Entry, Arg uint64
	Called     bool
}

func (s *Staged) SwitchToEL1(arg, entry uint64) error {
	s.Entry, s.Arg, s.Called = entry, arg, true
	return nil
}

type NopCache struct{}

func (NopCache) DisableDcache() {}
