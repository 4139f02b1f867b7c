package ram

import (
	"fmt"

	"github.com/pkg/errors"
)

type AccessError struct {
	Write bool
	Addr  uint64
	Size  uint64
}

func (e *AccessError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("unmapped %s at %#x(%d)", op, e.Addr, e.Size)
}

// Mem is simulated board RAM. It satisfies models.PhysMem, so a boot can be
// staged without real hardware.
type Mem struct {
	// addresses above mask are rejected
	mask  uint64
	pages Pages
}

// NewMem creates an empty address space of the given width in bits.
func NewMem(bits uint) *Mem {
	return &Mem{mask: ^uint64(0) >> (64 - bits)}
}

func (m *Mem) check(addr, size uint64) (uint64, error) {
	end := addr + size
	if size == 0 {
		return 0, errors.New("zero-size mapping")
	}
	if end-1 < addr || (end-1)&m.mask != end-1 {
		return 0, errors.Errorf("region %#x-%#x outside memory range", addr, end)
	}
	return end, nil
}

// MemMap maps [addr, addr+size). Bytes of any mapping it replaces are kept.
func (m *Mem) MemMap(addr, size uint64, desc string) error {
	end, err := m.check(addr, size)
	if err != nil {
		return err
	}
	page := &Page{Addr: addr, Data: make([]byte, size), Desc: desc}
	kept := make(Pages, 0, len(m.pages)+2)
	for _, p := range m.pages {
		start, stop, ok := p.clip(addr, end)
		if !ok {
			kept = append(kept, p)
			continue
		}
		copy(page.Data[start-addr:], p.Data[start-p.Addr:stop-p.Addr])
		kept = append(kept, p.without(start, stop)...)
	}
	m.pages = append(kept, page)
	m.pages.sort()
	return nil
}

func (m *Mem) MemUnmap(addr, size uint64) error {
	end, err := m.check(addr, size)
	if err != nil {
		return err
	}
	if _, ok := m.pages.run(addr, end); !ok {
		return errors.New("range not mapped")
	}
	kept := make(Pages, 0, len(m.pages)+1)
	for _, p := range m.pages {
		if start, stop, ok := p.clip(addr, end); ok {
			kept = append(kept, p.without(start, stop)...)
		} else {
			kept = append(kept, p)
		}
	}
	m.pages = kept
	return nil
}

func (m *Mem) Mapped(addr, size uint64) bool {
	if size == 0 {
		return true
	}
	_, ok := m.pages.run(addr, addr+size)
	return ok && addr+size > addr
}

// Mappings returns the current pages in address order. Page data is shared.
func (m *Mem) Mappings() Pages {
	return append(Pages(nil), m.pages...)
}

// each calls fn with the page bytes backing [addr, addr+len(p)) in order.
func (m *Mem) each(addr uint64, size uint64, write bool, fn func(mem []byte, off uint64)) error {
	if size == 0 {
		return nil
	}
	end := addr + size
	run, ok := m.pages.run(addr, end)
	if !ok || end < addr {
		return &AccessError{Write: write, Addr: addr, Size: size}
	}
	for _, pg := range run {
		start, stop, _ := pg.clip(addr, end)
		fn(pg.Data[start-pg.Addr:stop-pg.Addr], start-addr)
	}
	return nil
}

func (m *Mem) MemReadInto(p []byte, addr uint64) error {
	return m.each(addr, uint64(len(p)), false, func(mem []byte, off uint64) { copy(p[off:], mem) })
}

func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mem) MemWrite(addr uint64, p []byte) error {
	return m.each(addr, uint64(len(p)), true, func(mem []byte, off uint64) { copy(mem, p[off:]) })
}
