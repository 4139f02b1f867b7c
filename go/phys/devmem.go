// Package phys reaches real physical memory through /dev/mem.
package phys

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const DefaultPath = "/dev/mem"

// DevMem maps the pages under each access and unmaps them right after, so
// no mapping outlives a read or write.
type DevMem struct {
	Path string

	fd   int
	page uint64
}

func Open(path string) (*DevMem, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return &DevMem{Path: path, fd: fd, page: uint64(unix.Getpagesize())}, nil
}

func (d *DevMem) mmap(addr, size uint64, prot int, fn func(p []byte)) error {
	if size == 0 {
		return nil
	}
	if addr+size < addr {
		return errors.Errorf("%#x+%#x wraps around", addr, size)
	}
	start := addr &^ (d.page - 1)
	end := (addr + size + d.page - 1) &^ (d.page - 1)
	mapped, err := unix.Mmap(d.fd, int64(start), int(end-start), prot, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrapf(err, "mmap %s at %#x-%#x", d.Path, start, end)
	}
	off := addr - start
	fn(mapped[off : off+size])
	return errors.Wrap(unix.Munmap(mapped), "munmap")
}

func (d *DevMem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	err := d.mmap(addr, size, unix.PROT_READ, func(m []byte) { copy(p, m) })
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *DevMem) MemWrite(addr uint64, p []byte) error {
	return d.mmap(addr, uint64(len(p)), unix.PROT_READ|unix.PROT_WRITE, func(m []byte) { copy(m, p) })
}

func (d *DevMem) Close() error {
	return unix.Close(d.fd)
}
