package loader

import (
	"debug/macho"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
)

// thread state flavors (mach/arm/thread_status.h, mach/i386/thread_status.h)
const (
	ARM_THREAD_STATE64 = 6
	X86_THREAD_STATE64 = 4
)

type ThreadCommand struct {
	Cmd     uint32
	Cmdsize uint32
	Flavor  uint32
	Count   uint32
}

const threadCommandLen = 16

// ThreadState is the initial register file carried by LC_UNIXTHREAD.
type ThreadState interface {
	PC() uint64
	Flavor() uint32
}

// arm_thread_state64_t: PC lands at byte 0x110 of the load command.
type ARMThreadState64 struct {
	X    []uint64 `struc:"[29]uint64"`
	Fp   uint64
	Lr   uint64
	Sp   uint64
	Pc   uint64
	Cpsr uint32
	Pad  uint32
}

func (s *ARMThreadState64) PC() uint64     { return s.Pc }
func (s *ARMThreadState64) Flavor() uint32 { return ARM_THREAD_STATE64 }

// x86_thread_state64_t: RIP lands at byte 0x90 of the load command.
type X86ThreadState64 struct {
	Rax, Rbx, Rcx, Rdx uint64
	Rdi, Rsi, Rbp, Rsp uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
	Rip                uint64
	Rflags             uint64
	Cs, Fs, Gs         uint64
}

func (s *X86ThreadState64) PC() uint64     { return s.Rip }
func (s *X86ThreadState64) Flavor() uint32 { return X86_THREAD_STATE64 }

func newThreadState(flavor uint32) ThreadState {
	switch flavor {
	case ARM_THREAD_STATE64:
		return &ARMThreadState64{}
	case X86_THREAD_STATE64:
		return &X86ThreadState64{}
	}
	return nil
}

// Thread decodes the first LC_UNIXTHREAD (or LC_THREAD) command.
func (img *Image) Thread() (ThreadState, error) {
	for _, c := range img.Commands {
		cmd := macho.LoadCmd(c.Cmd)
		if cmd != macho.LoadCmdUnixThread && cmd != macho.LoadCmdThread {
			continue
		}
		if len(c.Raw) < threadCommandLen {
			return nil, models.ImageFormatErrorf(c.Offset, "thread command too small (%d bytes)", len(c.Raw))
		}
		var tc ThreadCommand
		if err := unpack(c.Raw[:threadCommandLen], &tc); err != nil {
			return nil, errors.Wrap(err, "failed to unpack thread command")
		}
		state := newThreadState(tc.Flavor)
		if state == nil {
			return nil, models.ImageFormatErrorf(c.Offset, "unsupported thread state flavor %d", tc.Flavor)
		}
		if uint64(tc.Count)*4 > uint64(len(c.Raw)-threadCommandLen) {
			return nil, models.ImageFormatErrorf(c.Offset, "thread state count %d runs past cmdsize %#x", tc.Count, tc.Cmdsize)
		}
		if err := unpack(c.Raw[threadCommandLen:], state); err != nil {
			return nil, models.ImageFormatErrorf(c.Offset, "thread state truncated: %v", err)
		}
		return state, nil
	}
	return nil, models.ImageFormatErrorf(machHeaderSize, "no LC_UNIXTHREAD command found")
}

// EntryVirt is the saved program counter, still a kernel virtual address.
func (img *Image) EntryVirt() (uint64, error) {
	state, err := img.Thread()
	if err != nil {
		return 0, err
	}
	return state.PC(), nil
}

// Entry resolves the saved program counter to a physical address.
func (img *Image) Entry(t Translator) (uint64, error) {
	pc, err := img.EntryVirt()
	if err != nil {
		return 0, err
	}
	return t.ToPhys(pc), nil
}
