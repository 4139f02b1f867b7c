package models

import (
	"io"
	"os"
)

const (
	// XNU expects its first segment here and at DefaultWindowBase physically.
	DefaultKernelVirtBase = 0xfffffff004004000
	DefaultWindowBase     = 0x4004000

	DefaultBootVirtBase = 0xfffffff000000000
	// Apple sets physBase to 0 for this board family; it is added to every
	// address in the device tree.
	DefaultBootPhysBase = 0x0
	DefaultMemSize      = 0x80000000

	DefaultCommandLineVar  = "bootargs"
	DefaultFirmwareVersion = "nBoot-0.1.0-beta"
)

type Config struct {
	KernelVirtBase uint64
	WindowBase     uint64

	BootVirtBase uint64
	BootPhysBase uint64
	MemSize      uint64

	CommandLineVar  string
	FirmwareVersion string
	// ZeroFill clears the vmsize-filesize tail of each segment.
	ZeroFill bool

	Color   bool
	Verbose bool
	Output  io.Writer
}

func NewConfig() *Config {
	return &Config{
		KernelVirtBase:  DefaultKernelVirtBase,
		WindowBase:      DefaultWindowBase,
		BootVirtBase:    DefaultBootVirtBase,
		BootPhysBase:    DefaultBootPhysBase,
		MemSize:         DefaultMemSize,
		CommandLineVar:  DefaultCommandLineVar,
		FirmwareVersion: DefaultFirmwareVersion,
		Output:          os.Stderr,
	}
}

func (c *Config) Console() *StreamConsole {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	return &StreamConsole{Out: out, Color: c.Color, Verbose: c.Verbose}
}
