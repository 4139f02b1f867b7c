package cmd

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/boot"
	"github.com/lunixbochs/bootxnu/go/bootargs"
	"github.com/lunixbochs/bootxnu/go/models"
	"github.com/lunixbochs/bootxnu/go/models/ram"
	"github.com/lunixbochs/bootxnu/go/phys"
)

// HandoffFunc builds the cache and EL1 switch used after staging a boot into
// simulated memory.
type HandoffFunc func(mem *ram.Mem, console models.Console, steps uint64) (models.Cache, models.Switcher)

var handoffs = map[string]HandoffFunc{
	"none": func(*ram.Mem, models.Console, uint64) (models.Cache, models.Switcher) {
		return boot.NopCache{}, &boot.Staged{}
	},
}

func RegisterHandoff(name string, fn HandoffFunc) {
	handoffs[name] = fn
}

type BootCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet
	// Stderr receives errors, usage and the console.
	Stderr io.Writer

	// Mem and Switcher are set once Run has built them.
	Mem      models.PhysMem
	Switcher models.Switcher
}

func NewBootCmd() *BootCmd {
	return &BootCmd{
		Config: models.NewConfig(),
		Flags:  flag.NewFlagSet("bootxnu", flag.ContinueOnError),
		Stderr: os.Stderr,
	}
}

func (c *BootCmd) PrintError(err error) {
	PrintError(c.Stderr, err)
}

const helpText = "bootxnu - Relocates xnu, device tree and ramdisk in memory and boots.\n" +
	"USAGE: bootxnu XNU_ADDR XNU_LEN RAMDISK_ADDR RAMDISK_LEN AFDT_ADDR AFDT_LEN\n"

// loadFile maps a file into simulated memory at the address given on the
// command line. A zero length argument takes the file's size.
func loadFile(mem *ram.Mem, path string, seg *models.Segment) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read preload file")
	}
	if seg.Empty() {
		*seg = models.NewSegment(seg.Start, uint64(len(data)))
	}
	if len(data) == 0 {
		return nil
	}
	if err := mem.MemMap(seg.Start, seg.Size(), path); err != nil {
		return err
	}
	return mem.MemWrite(seg.Start, data)
}

func (c *BootCmd) loadEnv(path string, env models.Env) (models.Env, error) {
	chain := models.ChainEnv{}
	if path != "" {
		file, err := models.LoadEnvFile(path)
		if err != nil {
			return nil, err
		}
		chain = append(chain, file)
	} else if file, err := models.FindEnvFile(); err != nil {
		return nil, err
	} else if file != nil {
		chain = append(chain, file)
	}
	if env != nil {
		chain = append(chain, env)
	}
	return chain, nil
}

// Run executes one boot and returns the exit status.
func (c *BootCmd) Run(argv []string, env models.Env) int {
	fs := c.Flags
	fs.SetOutput(c.Stderr)
	memType := fs.String("mem", "sim", "physical memory backend: sim or devmem")
	devPath := fs.String("devmem", phys.DefaultPath, "device used by -mem devmem")
	kernelFile := fs.String("kernel", "", "preload a kernel file at XNU_ADDR (sim only)")
	rdFile := fs.String("ramdisk", "", "preload a ramdisk file at RAMDISK_ADDR (sim only)")
	dtFile := fs.String("dt", "", "preload a device tree file at AFDT_ADDR (sim only)")
	handoff := fs.String("handoff", "none", "what to do after staging: none, or emu to run the kernel emulated")
	steps := fs.Uint64("steps", 1000000, "instruction limit for -handoff emu (0 = unlimited)")
	vbase := fs.Uint64("vbase", models.DefaultKernelVirtBase, "virtual address of the kernel's first segment")
	windowBase := fs.Uint64("window", models.DefaultWindowBase, "physical base of the relocation window")
	zero := fs.Bool("zero", false, "zero segment bytes past filesize")
	save := fs.String("save", "", "save a snapshot of simulated memory before handoff")
	restore := fs.String("restore", "", "hand off a snapshot saved with -save instead of staging a boot")
	envFile := fs.String("env", "", "read boot environment (bootargs=...) from file")
	verbose := fs.Bool("v", false, "verbose output")
	color := fs.Bool("color", false, "colorize console output")
	fs.Usage = func() {
		fmt.Fprint(c.Stderr, helpText+"\nOptions:\n")
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(c.Stderr, flags)
	}
	if err := fs.Parse(argv[1:]); err != nil {
		return 1
	}
	args := fs.Args()
	if *restore != "" {
		if len(args) != 0 {
			c.PrintError(models.ArgumentErrorf("-restore takes no addresses (got %d)", len(args)))
			return 1
		}
	} else if len(args) != 6 {
		fmt.Fprintf(c.Stderr, "Error: wrong number of arguments (got %d)\n", len(args)+1)
		return 1
	}

	config := c.Config
	config.KernelVirtBase = *vbase
	config.WindowBase = *windowBase
	config.ZeroFill = *zero
	config.Verbose = *verbose
	config.Color = *color
	config.Output = c.Stderr
	console := config.Console()

	var req *boot.Request
	if *restore == "" {
		var err error
		if req, err = ParseRequest(args); err != nil {
			c.PrintError(err)
			return 1
		}
	} else if *kernelFile != "" || *rdFile != "" || *dtFile != "" || *save != "" {
		c.PrintError(models.ArgumentErrorf("-restore can't be combined with -kernel, -ramdisk, -dt or -save"))
		return 1
	}
	env, err := c.loadEnv(*envFile, env)
	if err != nil {
		c.PrintError(err)
		return 1
	}

	var sim *ram.Mem
	switch *memType {
	case "sim":
		sim = ram.NewMem(64)
		c.Mem = sim
		if req == nil {
			break
		}
		for _, p := range []struct {
			path string
			seg  *models.Segment
		}{{*kernelFile, &req.Kernel}, {*rdFile, &req.Ramdisk}, {*dtFile, &req.DeviceTree}} {
			if p.path == "" {
				continue
			}
			if err := loadFile(sim, p.path, p.seg); err != nil {
				c.PrintError(err)
				return 1
			}
		}
	case "devmem":
		if *kernelFile != "" || *rdFile != "" || *dtFile != "" || *save != "" || *restore != "" {
			c.PrintError(models.ArgumentErrorf("-kernel, -ramdisk, -dt, -save and -restore need -mem sim"))
			return 1
		}
		dev, err := phys.Open(*devPath)
		if err != nil {
			c.PrintError(err)
			return 1
		}
		defer dev.Close()
		c.Mem = dev
	default:
		c.PrintError(models.ArgumentErrorf("unknown memory backend %q", *memType))
		return 1
	}

	loader := boot.NewLoader(config, c.Mem)
	loader.Console = console
	loader.Env = env
	if sim != nil {
		mkHandoff, ok := handoffs[*handoff]
		if !ok {
			c.PrintError(models.ArgumentErrorf("unknown handoff %q", *handoff))
			return 1
		}
		loader.Cache, loader.Switcher = mkHandoff(sim, console, *steps)
		loader.Prestage = func(p *boot.Plan) error { return mapWindow(sim, p) }
		if *save != "" {
			loader.Preboot = func(p *boot.Plan) error { return saveSnapshot(*save, sim, p) }
		}
	} else if *handoff != "none" {
		c.PrintError(models.ArgumentErrorf("-handoff %s needs -mem sim", *handoff))
		return 1
	}
	c.Switcher = loader.Switcher

	if *restore != "" {
		err = replay(*restore, sim, loader)
	} else {
		err = loader.Boot(req)
	}
	if err != nil {
		c.PrintError(err)
		return 1
	}
	return 0
}

// mapWindow backs the staging window with simulated RAM unless the preloads
// already cover it.
func mapWindow(mem *ram.Mem, p *boot.Plan) error {
	w := p.Window()
	if mem.Mapped(w.Start, w.Size()) {
		return nil
	}
	return errors.Wrap(mem.MemMap(w.Start, w.Size(), "window"), "failed to map window")
}

func saveSnapshot(path string, mem *ram.Mem, plan *boot.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot")
	}
	defer f.Close()
	snap := &models.Snapshot{Entry: plan.Entry, BootArgs: plan.BootArgsPhys, Pages: mem.Mappings()}
	return models.SaveSnapshot(f, snap)
}

// replay restores a staged window and repeats its handoff.
func replay(path string, mem *ram.Mem, loader *boot.Loader) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open snapshot")
	}
	defer f.Close()
	snap, err := models.LoadSnapshot(f)
	if err != nil {
		return err
	}
	if err := snap.Restore(mem); err != nil {
		return err
	}
	loader.Console.Printf("restored %d pages from %s\n", len(snap.Pages), path)
	args, err := bootargs.Read(mem, snap.BootArgs)
	if err != nil {
		return err
	}
	args.Dump(loader.Console)
	return loader.Handoff().Jump(snap.Entry, snap.BootArgs)
}
