// Package atom builds the MP4 atoms that double as an icon container and
// places them inside a media file through an external atom editor.
package atom

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Atom types used by the pipeline.
const (
	TypeFtyp = "ftyp"
	TypeSkip = "skip"
)

// Atom is a top-level MP4 box located in a buffer.
type Atom struct {
	Offset int64
	Size   int64
	Type   string
}

// String returns a formatted string representation of the Atom
func (a Atom) String() string {
	return fmt.Sprintf("[%q] @ %d (size: %d)", a.Type, a.Offset, a.Size)
}

// Walk lists the top-level atoms of data. A size of 0 extends to the end of
// data and a size of 1 reads the 64-bit extended size.
func Walk(data []byte) ([]Atom, error) {
	var atoms []Atom
	end := int64(len(data))

	for offset := int64(0); offset < end; {
		if end-offset < 8 {
			return atoms, errors.Errorf("truncated atom header at offset %d", offset)
		}
		size := int64(binary.BigEndian.Uint32(data[offset:]))
		typ := string(data[offset+4 : offset+8])
		header := int64(8)

		switch size {
		case 0:
			size = end - offset
		case 1:
			if end-offset < 16 {
				return atoms, errors.Errorf("truncated extended atom header at offset %d", offset)
			}
			size = int64(binary.BigEndian.Uint64(data[offset+8:]))
			header = 16
		}
		if size < header || size > end-offset {
			return atoms, errors.Errorf("invalid atom size %d for %q at offset %d", size, typ, offset)
		}

		atoms = append(atoms, Atom{Offset: offset, Size: size, Type: typ})
		offset += size
	}

	return atoms, nil
}
