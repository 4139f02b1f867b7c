package models

// MemIO is a cursor over physical memory.
type MemIO struct {
	Mem  PhysMem
	Addr uint64
}

func (m *MemIO) Read(p []byte) (int, error) {
	tmp, err := m.Mem.MemRead(m.Addr, uint64(len(p)))
	if err != nil {
		return 0, err
	}
	copy(p, tmp)
	m.Addr += uint64(len(p))
	return len(p), nil
}

func (m *MemIO) Write(p []byte) (int, error) {
	err := m.Mem.MemWrite(m.Addr, p)
	if err != nil {
		return 0, err
	}
	m.Addr += uint64(len(p))
	return len(p), nil
}
