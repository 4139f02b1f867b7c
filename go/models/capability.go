package models

// PhysMem is the physical address space seen by the loader. Sources and the
// destination window are both reached through it.
type PhysMem interface {
	MemRead(addr, size uint64) ([]byte, error)
	MemWrite(addr uint64, p []byte) error
}

type Console interface {
	Printf(format string, a ...interface{})
	Warnf(format string, a ...interface{})
	Debugf(format string, a ...interface{})
}

// Env resolves boot environment values such as "bootargs".
type Env interface {
	Get(name string) (string, bool)
}

type Cache interface {
	DisableDcache()
}

// Switcher drops to EL1 at entry with arg in x0. On hardware it does not
// return; emulated and staged switchers return once they are done.
type Switcher interface {
	SwitchToEL1(arg, entry uint64) error
}
