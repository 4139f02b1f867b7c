package models

import "fmt"

// Segment is a half-open address range [Start, End).
type Segment struct {
	Start, End uint64
}

func NewSegment(addr, size uint64) Segment {
	return Segment{Start: addr, End: addr + size}
}

func (s *Segment) Size() uint64 {
	return s.End - s.Start
}

func (s *Segment) Empty() bool {
	return s.End <= s.Start
}

func (s *Segment) Overlaps(o *Segment) bool {
	if s.Empty() || o.Empty() {
		return false
	}
	return (s.Start >= o.Start && s.Start < o.End) || (o.Start >= s.Start && o.Start < s.End)
}

func (s *Segment) String() string {
	return fmt.Sprintf("[%#x-%#x)", s.Start, s.End)
}

// NamedSegment tags a range for overlap reports.
type NamedSegment struct {
	Name string
	Segment
}

// CheckOverlap reports the first pair of ranges that share a byte.
func CheckOverlap(segs []NamedSegment) error {
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if segs[i].Overlaps(&segs[j].Segment) {
				return &RelocationOverlapError{
					A: segs[i].Segment, NameA: segs[i].Name,
					B: segs[j].Segment, NameB: segs[j].Name,
				}
			}
		}
	}
	return nil
}

// AlignUp rounds addr up to a power of two boundary.
func AlignUp(addr, align uint64) uint64 {
	return (addr + align - 1) &^ (align - 1)
}
