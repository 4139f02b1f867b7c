package models

import (
	"bytes"
	"hash/crc32"
	"io"
	"io/ioutil"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models/ram"
)

// snapshot format:
//
// header (little endian)
// [4]byte "BXNU", uint32(version), uint32(crc32 of uncompressed body),
// uint64(length of compressed body), uint64(entry), uint64(boot args), uint32(page count)
//
// body, snappy block compressed
// 1..count: uint64(addr), uint64(size), [32]byte(desc), <size raw bytes>

var SNAPSHOT_MAGIC = "BXNU"

const snapshotVersion = 1

type snapshotHeader struct {
	Magic    string `struc:"[4]byte"`
	Version  uint32
	Crc      uint32
	Length   uint64
	Entry    uint64
	BootArgs uint64
	Count    uint32
}

type snapshotPage struct {
	Addr uint64
	Size uint64
	Desc string `struc:"[32]byte"`
}

// Snapshot is a staged window: the memory the kernel will see and the two
// registers it starts with.
type Snapshot struct {
	Entry    uint64
	BootArgs uint64
	Pages    ram.Pages
}

func SaveSnapshot(w io.Writer, s *Snapshot) error {
	var body bytes.Buffer
	for _, p := range s.Pages {
		desc := p.Desc
		if len(desc) > 32 {
			desc = desc[:32]
		}
		hdr := &snapshotPage{Addr: p.Addr, Size: p.Size(), Desc: desc}
		if err := struc.PackWithOptions(&body, hdr, LittleEndian); err != nil {
			return errors.Wrap(err, "failed to pack page header")
		}
		body.Write(p.Data)
	}
	raw := body.Bytes()
	data := snappy.Encode(nil, raw)
	header := &snapshotHeader{
		Magic:    SNAPSHOT_MAGIC,
		Version:  snapshotVersion,
		Crc:      crc32.ChecksumIEEE(raw),
		Length:   uint64(len(data)),
		Entry:    s.Entry,
		BootArgs: s.BootArgs,
		Count:    uint32(len(s.Pages)),
	}
	if err := struc.PackWithOptions(w, header, LittleEndian); err != nil {
		return errors.Wrap(err, "failed to pack snapshot header")
	}
	_, err := w.Write(data)
	return errors.Wrap(err, "failed to write snapshot body")
}

func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var header snapshotHeader
	if err := struc.UnpackWithOptions(r, &header, LittleEndian); err != nil {
		return nil, errors.Wrap(err, "failed to unpack snapshot header")
	}
	if header.Magic != SNAPSHOT_MAGIC {
		return nil, errors.New("invalid snapshot magic")
	}
	if header.Version != snapshotVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", header.Version)
	}
	data, err := ioutil.ReadAll(io.LimitReader(r, int64(header.Length)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot body")
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decompress snapshot body")
	}
	if crc32.ChecksumIEEE(raw) != header.Crc {
		return nil, errors.New("snapshot checksum mismatch")
	}
	s := &Snapshot{Entry: header.Entry, BootArgs: header.BootArgs}
	body := bytes.NewReader(raw)
	for i := uint32(0); i < header.Count; i++ {
		var hdr snapshotPage
		if err := struc.UnpackWithOptions(body, &hdr, LittleEndian); err != nil {
			return nil, errors.Wrapf(err, "failed to unpack page %d", i)
		}
		if hdr.Size > uint64(body.Len()) {
			return nil, errors.Errorf("page %d: size %#x past end of snapshot", i, hdr.Size)
		}
		p := make([]byte, hdr.Size)
		io.ReadFull(body, p)
		s.Pages = append(s.Pages, &ram.Page{
			Addr: hdr.Addr,
			Data: p,
			Desc: strings.TrimRight(hdr.Desc, "\x00"),
		})
	}
	return s, nil
}

// Restore maps every page of the snapshot into mem.
func (s *Snapshot) Restore(mem *ram.Mem) error {
	for _, p := range s.Pages {
		if err := mem.MemMap(p.Addr, p.Size(), p.Desc); err != nil {
			return errors.Wrapf(err, "failed to map %s", p)
		}
		if err := mem.MemWrite(p.Addr, p.Data); err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
	}
	return nil
}
