package models

import (
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
)

// XNU on arm64 and every record this loader reads or writes is little endian.
var LittleEndian = &struc.Options{Order: binary.LittleEndian}

type StrucStream struct {
	Stream  io.ReadWriter
	Options *struc.Options
}

func (s *StrucStream) Pack(vals ...interface{}) error {
	for _, i := range vals {
		if err := struc.PackWithOptions(s.Stream, i, s.Options); err != nil {
			return err
		}
	}
	return nil
}

func (s *StrucStream) Unpack(vals ...interface{}) error {
	for _, i := range vals {
		if err := struc.UnpackWithOptions(s.Stream, i, s.Options); err != nil {
			return err
		}
	}
	return nil
}

// StrucAt packs and unpacks directly against physical memory.
func StrucAt(mem PhysMem, addr uint64) *StrucStream {
	return &StrucStream{Stream: &MemIO{Mem: mem, Addr: addr}, Options: LittleEndian}
}
