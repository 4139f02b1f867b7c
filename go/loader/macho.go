package loader

import (
	"bytes"
	"debug/macho"
	"strings"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
)

const (
	machHeaderSize    = 32
	loadCommandSize   = 8
	segmentCommandLen = 72
)

type MachHeader64 struct {
	Magic      uint32
	Cputype    uint32
	Cpusubtype uint32
	Filetype   uint32
	Ncmds      uint32
	Sizeofcmds uint32
	Flags      uint32
	Reserved   uint32
}

type LoadCommand struct {
	Cmd     uint32
	Cmdsize uint32
}

type SegmentCommand64 struct {
	Cmd      uint32
	Cmdsize  uint32
	Name     string `struc:"[16]byte"`
	Vmaddr   uint64
	Vmsize   uint64
	Fileoff  uint64
	Filesize uint64
	Maxprot  int32
	Initprot int32
	Nsects   uint32
	Flags    uint32
}

// Command is one entry of the load command list, still in raw form.
type Command struct {
	LoadCommand
	// Offset of the command from the start of the image.
	Offset uint64
	Raw    []byte
}

// Image is a 64-bit Mach-O kernel held in memory. Only the load command list
// is interpreted; the rest of the file is addressed by segment file offsets.
type Image struct {
	Header   MachHeader64
	Commands []Command

	data []byte
}

func unpack(p []byte, v interface{}) error {
	return struc.UnpackWithOptions(bytes.NewReader(p), v, models.LittleEndian)
}

// ParseImage walks the command list once, advancing by each declared cmdsize.
// Every command must fit inside both sizeofcmds and the buffer.
func ParseImage(data []byte) (*Image, error) {
	if len(data) < machHeaderSize {
		return nil, models.ImageFormatErrorf(0, "image too small for a Mach-O header (%d bytes)", len(data))
	}
	img := &Image{data: data}
	if err := unpack(data[:machHeaderSize], &img.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack Mach-O header")
	}
	if img.Header.Magic != macho.Magic64 {
		return nil, models.ImageFormatErrorf(0, "bad magic %#x, expected a 64-bit Mach-O", img.Header.Magic)
	}
	end := uint64(machHeaderSize) + uint64(img.Header.Sizeofcmds)
	if end > uint64(len(data)) {
		return nil, models.ImageFormatErrorf(0, "sizeofcmds %#x runs past end of image", img.Header.Sizeofcmds)
	}
	off := uint64(machHeaderSize)
	for i := uint32(0); i < img.Header.Ncmds; i++ {
		if off+loadCommandSize > end {
			return nil, models.ImageFormatErrorf(off, "load command %d truncated", i)
		}
		var lc LoadCommand
		if err := unpack(data[off:off+loadCommandSize], &lc); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack load command %d", i)
		}
		if lc.Cmdsize < loadCommandSize {
			return nil, models.ImageFormatErrorf(off, "load command %d has cmdsize %d", i, lc.Cmdsize)
		}
		if off+uint64(lc.Cmdsize) > end {
			return nil, models.ImageFormatErrorf(off, "load command %d (cmdsize %#x) runs past sizeofcmds", i, lc.Cmdsize)
		}
		img.Commands = append(img.Commands, Command{
			LoadCommand: lc,
			Offset:      off,
			Raw:         data[off : off+uint64(lc.Cmdsize)],
		})
		off += uint64(lc.Cmdsize)
	}
	return img, nil
}

func (img *Image) Cpu() macho.Cpu {
	return macho.Cpu(img.Header.Cputype)
}

// Segments decodes every LC_SEGMENT_64 in command order.
func (img *Image) Segments() ([]SegmentCommand64, error) {
	var ret []SegmentCommand64
	for _, c := range img.Commands {
		if macho.LoadCmd(c.Cmd) != macho.LoadCmdSegment64 {
			continue
		}
		if len(c.Raw) < segmentCommandLen {
			return nil, models.ImageFormatErrorf(c.Offset, "segment command too small (%d bytes)", len(c.Raw))
		}
		var seg SegmentCommand64
		if err := unpack(c.Raw[:segmentCommandLen], &seg); err != nil {
			return nil, errors.Wrap(err, "failed to unpack segment command")
		}
		seg.Name = strings.TrimRight(seg.Name, "\x00")
		ret = append(ret, seg)
	}
	return ret, nil
}

// Range returns the virtual span [low, high) covered by all segments.
func (img *Image) Range() (low, high uint64, err error) {
	segs, err := img.Segments()
	if err != nil {
		return 0, 0, err
	}
	if len(segs) == 0 {
		return 0, 0, models.ImageRangeErrorf("image has no LC_SEGMENT_64 commands")
	}
	low = ^uint64(0)
	for _, s := range segs {
		end := s.Vmaddr + s.Vmsize
		if end < s.Vmaddr {
			return 0, 0, models.ImageRangeErrorf("segment %s: vmaddr %#x + vmsize %#x overflows", s.Name, s.Vmaddr, s.Vmsize)
		}
		if s.Vmaddr < low {
			low = s.Vmaddr
		}
		if end > high {
			high = end
		}
	}
	return low, high, nil
}

// Destinations maps each segment's virtual extent into the window at base,
// relative to the image's low address.
func (img *Image) Destinations(base, low uint64) ([]models.NamedSegment, error) {
	segs, err := img.Segments()
	if err != nil {
		return nil, err
	}
	ret := make([]models.NamedSegment, 0, len(segs))
	for _, s := range segs {
		ret = append(ret, models.NamedSegment{
			Name:    "segment " + s.Name,
			Segment: models.NewSegment(base+(s.Vmaddr-low), s.Vmsize),
		})
	}
	return ret, nil
}

// CheckSegments validates file extents against the image.
func (img *Image) CheckSegments() error {
	segs, err := img.Segments()
	if err != nil {
		return err
	}
	size := uint64(len(img.data))
	for _, s := range segs {
		if s.Fileoff > size || s.Filesize > size-s.Fileoff {
			return models.ImageFormatErrorf(s.Fileoff, "segment %s: file range %#x+%#x past end of image (%#x)", s.Name, s.Fileoff, s.Filesize, size)
		}
		if s.Filesize > s.Vmsize {
			return models.ImageFormatErrorf(s.Fileoff, "segment %s: filesize %#x larger than vmsize %#x", s.Name, s.Filesize, s.Vmsize)
		}
	}
	return nil
}

// Relocate copies each segment's file bytes to base + (vmaddr - low).
// With zero set, the vmsize tail past filesize is cleared; otherwise it keeps
// whatever the window held.
func (img *Image) Relocate(mem models.PhysMem, base, low uint64, zero bool) error {
	if err := img.CheckSegments(); err != nil {
		return err
	}
	segs, err := img.Segments()
	if err != nil {
		return err
	}
	for _, s := range segs {
		dst := base + (s.Vmaddr - low)
		if s.Filesize > 0 {
			if err := mem.MemWrite(dst, img.data[s.Fileoff:s.Fileoff+s.Filesize]); err != nil {
				return errors.Wrapf(err, "failed to relocate segment %s to %#x", s.Name, dst)
			}
		}
		if zero && s.Vmsize > s.Filesize {
			if err := mem.MemWrite(dst+s.Filesize, make([]byte, s.Vmsize-s.Filesize)); err != nil {
				return errors.Wrapf(err, "failed to zero-fill segment %s", s.Name)
			}
		}
	}
	return nil
}
