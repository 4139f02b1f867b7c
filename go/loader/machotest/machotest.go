// Package machotest builds small synthetic Mach-O kernels for tests.
package machotest

import (
	"bytes"
	"debug/macho"

	"github.com/lunixbochs/struc"

	"github.com/lunixbochs/bootxnu/go/loader"
	"github.com/lunixbochs/bootxnu/go/models"
)

type Segment struct {
	Name                              string
	Vmaddr, Vmsize, Fileoff, Filesize uint64
}

type Builder struct {
	Cpu  macho.Cpu
	cmds [][]byte
	size uint64
}

func New() *Builder {
	return &Builder{Cpu: macho.CpuArm64}
}

func pack(v ...interface{}) []byte {
	var buf bytes.Buffer
	for _, i := range v {
		if err := struc.PackWithOptions(&buf, i, models.LittleEndian); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

func (b *Builder) grow(end uint64) {
	if end > b.size {
		b.size = end
	}
}

func (b *Builder) Segment(s Segment) *Builder {
	b.cmds = append(b.cmds, pack(&loader.SegmentCommand64{
		Cmd:      uint32(macho.LoadCmdSegment64),
		Cmdsize:  72,
		Name:     s.Name,
		Vmaddr:   s.Vmaddr,
		Vmsize:   s.Vmsize,
		Fileoff:  s.Fileoff,
		Filesize: s.Filesize,
		Maxprot:  7,
		Initprot: 5,
	}))
	b.grow(s.Fileoff + s.Filesize)
	return b
}

// UnixThread adds an arm64 LC_UNIXTHREAD with pc set.
func (b *Builder) UnixThread(pc uint64) *Builder {
	state := &loader.ARMThreadState64{X: make([]uint64, 29), Pc: pc, Sp: 0xdead0000}
	b.cmds = append(b.cmds, pack(&loader.ThreadCommand{
		Cmd:     uint32(macho.LoadCmdUnixThread),
		Cmdsize: 16 + 272,
		Flavor:  loader.ARM_THREAD_STATE64,
		Count:   272 / 4,
	}, state))
	return b
}

func (b *Builder) X86Thread(pc uint64) *Builder {
	b.cmds = append(b.cmds, pack(&loader.ThreadCommand{
		Cmd:     uint32(macho.LoadCmdUnixThread),
		Cmdsize: 16 + 168,
		Flavor:  loader.X86_THREAD_STATE64,
		Count:   168 / 4,
	}, &loader.X86ThreadState64{Rip: pc}))
	return b
}

// Raw adds an arbitrary command with payload padded to 8 bytes.
func (b *Builder) Raw(cmd uint32, payload []byte) *Builder {
	for len(payload)%8 != 0 {
		payload = append(payload, 0)
	}
	hdr := pack(&loader.LoadCommand{Cmd: cmd, Cmdsize: uint32(8 + len(payload))})
	b.cmds = append(b.cmds, append(hdr, payload...))
	return b
}

// Bytes lays out header and commands at offset 0 and fills the rest of the
// file with Pattern bytes.
func (b *Builder) Bytes() []byte {
	var cmds []byte
	for _, c := range b.cmds {
		cmds = append(cmds, c...)
	}
	hdr := pack(&loader.MachHeader64{
		Magic:      macho.Magic64,
		Cputype:    uint32(b.Cpu),
		Filetype:   uint32(macho.TypeExec),
		Ncmds:      uint32(len(b.cmds)),
		Sizeofcmds: uint32(len(cmds)),
	})
	head := append(hdr, cmds...)
	size := b.size
	if size < uint64(len(head)) {
		size = uint64(len(head))
	}
	data := Pattern(int(size))
	copy(data, head)
	return data
}

func Pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + i/251)
	}
	return p
}
