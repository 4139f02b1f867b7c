package dt

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/lunixbochs/bootxnu/go/cmd"
	"github.com/lunixbochs/bootxnu/go/devicetree"
	"github.com/lunixbochs/bootxnu/go/models"
)

// Run prints a device tree file, optionally after applying the boot patches.
func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	patch := fs.Bool("patch", false, "apply the boot-time patches before printing")
	rdAddr := fs.Uint64("rdaddr", 0, "ramdisk physical address for -patch")
	rdSize := fs.Uint64("rdsize", 0, "ramdisk length for -patch")
	version := fs.String("version", models.DefaultFirmwareVersion, "firmware-version for -patch")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] <devicetree>\n\nOptions:\n", args[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(stderr, flags)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	data, err := ioutil.ReadFile(fs.Arg(0))
	if err != nil {
		cmd.PrintError(stderr, err)
		return 1
	}
	if *patch {
		data, err = devicetree.Patch(data, devicetree.PatchParams{
			HasRamdisk:      *rdSize > 0,
			RamdiskAddr:     *rdAddr,
			RamdiskSize:     *rdSize,
			FirmwareVersion: *version,
		})
		if err != nil {
			cmd.PrintError(stderr, err)
			return 1
		}
	}
	tree, err := devicetree.Parse(data)
	if err != nil {
		cmd.PrintError(stderr, err)
		return 1
	}
	tree.Dump(stdout)
	return 0
}

func Main(args []string) {
	os.Exit(Run(args, os.Stdout, os.Stderr))
}

func init() { cmd.Register("dt", "print an Apple device tree", Main) }
