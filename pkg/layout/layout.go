// Package layout holds the fixed-width integer fields and sub-buffer search
// used to lay several file formats over the same bytes.
package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Field is a fixed-width unsigned integer stored at a fixed offset of a
// buffer with a given byte order.
type Field struct {
	Name   string
	Offset int
	Width  int
	Order  binary.ByteOrder
}

// Uint16 returns a 2-byte field.
func Uint16(name string, offset int, order binary.ByteOrder) Field {
	return Field{Name: name, Offset: offset, Width: 2, Order: order}
}

// Uint32 returns a 4-byte field.
func Uint32(name string, offset int, order binary.ByteOrder) Field {
	return Field{Name: name, Offset: offset, Width: 4, Order: order}
}

// End returns the offset right after the field.
func (f Field) End() int {
	return f.Offset + f.Width
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint64 {
	return 1<<(8*uint(f.Width)) - 1
}

// Put encodes v into buf at the field offset.
func (f Field) Put(buf []byte, v uint64) error {
	if f.End() > len(buf) {
		return errors.Errorf("field %s [%d:%d] out of buffer of %d bytes", f.Name, f.Offset, f.End(), len(buf))
	}
	if v > f.Max() {
		return errors.Errorf("value %d overflows %d-byte field %s", v, f.Width, f.Name)
	}
	switch f.Width {
	case 1:
		buf[f.Offset] = byte(v)
	case 2:
		f.Order.PutUint16(buf[f.Offset:], uint16(v))
	case 4:
		f.Order.PutUint32(buf[f.Offset:], uint32(v))
	case 8:
		f.Order.PutUint64(buf[f.Offset:], v)
	default:
		return errors.Errorf("unsupported width %d for field %s", f.Width, f.Name)
	}
	return nil
}

// Get decodes the field from buf. It panics if buf is too short, like the
// encoding/binary accessors it wraps.
func (f Field) Get(buf []byte) uint64 {
	switch f.Width {
	case 1:
		return uint64(buf[f.Offset])
	case 2:
		return uint64(f.Order.Uint16(buf[f.Offset:]))
	case 4:
		return uint64(f.Order.Uint32(buf[f.Offset:]))
	default:
		return f.Order.Uint64(buf[f.Offset:])
	}
}

// PutUint32BE returns v as 4 big-endian bytes.
func PutUint32BE(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// PutUint32LE returns v as 4 little-endian bytes.
func PutUint32LE(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// Index returns the offset of the first occurrence of sub in data searching
// from offset 0, or -1.
func Index(data, sub []byte) int {
	if len(sub) == 0 {
		return -1
	}
	return bytes.Index(data, sub)
}

// IndexFrom is Index starting at from. The returned offset is absolute.
func IndexFrom(data, sub []byte, from int) int {
	if from < 0 || from > len(data) {
		return -1
	}
	i := Index(data[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}
