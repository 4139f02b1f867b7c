package ram

import (
	"fmt"
	"sort"
	"strings"
)

// Page is one contiguous bank of simulated physical memory.
type Page struct {
	Addr uint64
	Data []byte
	Desc string
}

func (p *Page) Size() uint64 { return uint64(len(p.Data)) }
func (p *Page) End() uint64  { return p.Addr + p.Size() }

func (p *Page) Contains(addr uint64) bool {
	return addr >= p.Addr && addr < p.End()
}

func (p *Page) String() string {
	s := fmt.Sprintf("%#x-%#x", p.Addr, p.End())
	if p.Desc != "" {
		s += " [" + p.Desc + "]"
	}
	return s
}

// clip returns the part of [start, end) inside the page.
func (p *Page) clip(start, end uint64) (uint64, uint64, bool) {
	if start < p.Addr {
		start = p.Addr
	}
	if end > p.End() {
		end = p.End()
	}
	return start, end, start < end
}

func (p *Page) sub(start, end uint64) *Page {
	o := start - p.Addr
	n := end - start
	return &Page{Addr: start, Data: p.Data[o : o+n : o+n], Desc: p.Desc}
}

// without drops [start, end) from the page, keeping up to two pieces.
func (p *Page) without(start, end uint64) Pages {
	var ret Pages
	if start > p.Addr {
		ret = append(ret, p.sub(p.Addr, start))
	}
	if end < p.End() {
		ret = append(ret, p.sub(end, p.End()))
	}
	return ret
}

// Pages is kept sorted by address with no two pages overlapping.
type Pages []*Page

func (ps Pages) String() string {
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = p.String()
	}
	return strings.Join(s, "\n")
}

func (ps Pages) sort() {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Addr < ps[j].Addr })
}

// index of the page holding addr, or -1
func (ps Pages) find(addr uint64) int {
	i := sort.Search(len(ps), func(i int) bool { return ps[i].End() > addr })
	if i < len(ps) && ps[i].Contains(addr) {
		return i
	}
	return -1
}

func (ps Pages) Find(addr uint64) *Page {
	if i := ps.find(addr); i >= 0 {
		return ps[i]
	}
	return nil
}

// run returns the pages covering [addr, end) back to back, or false if any
// byte of the range is unmapped.
func (ps Pages) run(addr, end uint64) (Pages, bool) {
	i := ps.find(addr)
	if i < 0 {
		return nil, false
	}
	j := i
	for ps[j].End() < end {
		if j+1 == len(ps) || ps[j+1].Addr != ps[j].End() {
			return nil, false
		}
		j++
	}
	return ps[i : j+1], true
}

type Region struct {
	Addr, Size uint64
}

// Regions covers the pages with align-sized blocks, merging neighbours.
func (ps Pages) Regions(align uint64) []Region {
	var ret []Region
	for _, p := range ps {
		start := p.Addr &^ (align - 1)
		end := (p.End() + align - 1) &^ (align - 1)
		if n := len(ret); n > 0 && start <= ret[n-1].Addr+ret[n-1].Size {
			last := &ret[n-1]
			if end > last.Addr+last.Size {
				last.Size = end - last.Addr
			}
			continue
		}
		ret = append(ret, Region{Addr: start, Size: end - start})
	}
	return ret
}
