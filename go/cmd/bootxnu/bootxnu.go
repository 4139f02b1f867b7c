package bootxnu

import (
	"os"

	"github.com/lunixbochs/bootxnu/go/cmd"
	"github.com/lunixbochs/bootxnu/go/cpu/unicorn"
	"github.com/lunixbochs/bootxnu/go/models"
	"github.com/lunixbochs/bootxnu/go/models/ram"
)

func emulate(mem *ram.Mem, console models.Console, steps uint64) (models.Cache, models.Switcher) {
	emu := unicorn.NewEmulator(mem, console, steps)
	return emu, emu
}

func Main(args []string) {
	os.Exit(cmd.NewBootCmd().Run(args, models.ProcessEnv{Prefix: "BOOTXNU_"}))
}

func init() {
	cmd.RegisterHandoff("emu", emulate)
	cmd.Register("bootxnu", "relocate xnu, device tree and ramdisk, then boot", Main)
}
