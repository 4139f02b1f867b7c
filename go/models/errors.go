package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fatal boot conditions. All of them are raised while planning, before the
// destination window is touched, because nothing can recover once the kernel
// owns the CPU.

type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return "argument error: " + e.Msg }

type ImageFormatError struct {
	Offset uint64
	Msg    string
}

func (e *ImageFormatError) Error() string {
	return fmt.Sprintf("image format error at %#x: %s", e.Offset, e.Msg)
}

type ImageRangeError struct {
	Msg string
}

func (e *ImageRangeError) Error() string { return "image range error: " + e.Msg }

type DeviceTreeError struct {
	Offset int
	Msg    string
}

func (e *DeviceTreeError) Error() string {
	return fmt.Sprintf("device tree error at %#x: %s", e.Offset, e.Msg)
}

type RelocationOverlapError struct {
	A, B         Segment
	NameA, NameB string
}

func (e *RelocationOverlapError) Error() string {
	return fmt.Sprintf("relocation overlap: %s %s overlaps %s %s", e.NameA, &e.A, e.NameB, &e.B)
}

func ArgumentErrorf(format string, a ...interface{}) error {
	return errors.WithStack(&ArgumentError{Msg: fmt.Sprintf(format, a...)})
}

func ImageFormatErrorf(off uint64, format string, a ...interface{}) error {
	return errors.WithStack(&ImageFormatError{Offset: off, Msg: fmt.Sprintf(format, a...)})
}

func ImageRangeErrorf(format string, a ...interface{}) error {
	return errors.WithStack(&ImageRangeError{Msg: fmt.Sprintf(format, a...)})
}

func DeviceTreeErrorf(off int, format string, a ...interface{}) error {
	return errors.WithStack(&DeviceTreeError{Offset: off, Msg: fmt.Sprintf(format, a...)})
}
