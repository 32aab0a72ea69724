package atom

import (
	"encoding/binary"

	"github.com/crazy-max/beheader/pkg/layout"
	"github.com/pkg/errors"
)

// The header atom is read twice. MP4 parsers see a big-endian atom size
// followed by a four character type. Icon parsers see an ICONDIR followed by
// the first ICONDIRENTRY, all little endian:
//
//	offset  mp4                ico
//	0..2    size (high) = 0    reserved = 0
//	2..4    size (low)         type = 1
//	4..6    type               image count
//	6..8    type               width, height (0 means 256)
//	12..14  -                  bits per pixel
//	14..18  -                  image size
//	18..22  -                  image offset
//	22..    free               free
//
// The size field must read as 0x00000100 for both views to agree, which is
// why the header atom is exactly 256 bytes.
const (
	// HeaderSize is the size of the region shared by both grammars.
	HeaderSize = 256
	// SplitSize is the size of the secondary ftyp atom carved out by Split.
	SplitSize = 32
	// FreeOffset is the first byte not claimed by the icon directory.
	FreeOffset = 22
	// ExtraOffset is where user supplied header bytes are written.
	ExtraOffset = FreeOffset
)

var (
	fieldSize       = layout.Uint32("atom size", 0, binary.BigEndian)
	fieldType       = layout.Field{Name: "atom type", Offset: 4, Width: 4, Order: binary.BigEndian}
	fieldIconType   = layout.Uint16("icon type", 2, binary.LittleEndian)
	fieldIconCount  = layout.Uint16("icon count", 4, binary.LittleEndian)
	fieldIconBPP    = layout.Uint16("icon bit depth", 12, binary.LittleEndian)
	fieldIconSize   = layout.Uint32("icon image size", 14, binary.LittleEndian)
	fieldIconOffset = layout.Uint32("icon image offset", 18, binary.LittleEndian)

	// splitByte is the low byte of the atom size. It holds 0x20 while the
	// header reports HeaderSize+SplitSize and 0x00 once split.
	splitByte = 3
)

// ftypAtom is a complete ftyp atom declaring the isom brand, compatible with
// iso2, avc1 and mp41.
var ftypAtom = []byte{
	0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'i', 's', 'o', '2',
	'a', 'v', 'c', '1', 'm', 'p', '4', '1',
}

// Header is the dual purpose icon header and MP4 atom. It is built once and
// then overwritten field by field across the pipeline stages.
type Header struct {
	buf     []byte
	split   bool
	extra   int
	written int
}

// NewHeader returns a header describing one 32 bpp image of imageSize bytes
// whose offset is not known yet. With split, the atom reports an extra
// SplitSize bytes holding a complete ftyp atom.
func NewHeader(imageSize int, split bool) (*Header, error) {
	size := HeaderSize
	if split {
		size += SplitSize
	}
	h := &Header{
		buf:     make([]byte, size),
		split:   split,
		written: FreeOffset,
	}

	// the icon type reads 1 whenever the size reads HeaderSize
	if err := fieldSize.Put(h.buf, uint64(size)); err != nil {
		return nil, err
	}
	// keep the ftyp tag until the offset is known so the atom editor can
	// find and replace it
	copy(h.buf[fieldType.Offset:fieldType.End()], TypeFtyp)
	if err := fieldIconBPP.Put(h.buf, 32); err != nil {
		return nil, err
	}
	if err := fieldIconSize.Put(h.buf, uint64(imageSize)); err != nil {
		return nil, errors.Wrap(err, "image too large for icon directory")
	}
	if split {
		copy(h.buf[HeaderSize:], ftypAtom)
	}

	return h, nil
}

// SetExtra writes b at ExtraOffset. The bytes are not interpreted.
func (h *Header) SetExtra(b []byte) error {
	if ExtraOffset+len(b) > HeaderSize {
		return errors.Errorf("extra header bytes too large: %d bytes, %d available", len(b), HeaderSize-ExtraOffset)
	}
	copy(h.buf[ExtraOffset:], b)
	h.extra = len(b)
	if end := ExtraOffset + len(b); end > h.written {
		h.written = end
	}
	return nil
}

// Free returns the first unused offset of the shared region and its end.
func (h *Header) Free() (int, int) {
	return h.written, HeaderSize
}

// WriteFree writes b at the start of the free space and returns the offset it
// was written at.
func (h *Header) WriteFree(b []byte) (int, error) {
	start, end := h.Free()
	if start+len(b) > end {
		return 0, errors.Errorf("header atom free space exhausted: need %d bytes, %d available", len(b), end-start)
	}
	copy(h.buf[start:], b)
	h.written = start + len(b)
	return start, nil
}

// Finalize sets the image offset and swaps the ftyp tag for the image
// count, turning the first atom into one MP4 parsers skip.
func (h *Header) Finalize(imageOffset int64) error {
	if imageOffset < 0 {
		return errors.Errorf("invalid image offset %d", imageOffset)
	}
	if err := fieldIconOffset.Put(h.buf, uint64(imageOffset)); err != nil {
		return errors.Wrap(err, "image offset too large for icon directory")
	}
	copy(h.buf[fieldType.Offset:fieldType.End()], []byte{0, 0, 0, 0})
	return fieldIconCount.Put(h.buf, 1)
}

// Split shrinks the size reported by the first atom back to HeaderSize so
// the trailing bytes parse as an independent ftyp atom. Nothing obliges a
// decoder to accept this; it works with those that read sizes only from the
// atom headers.
func (h *Header) Split() {
	if !h.split {
		return
	}
	h.buf[splitByte] = byte(HeaderSize & 0xff)
}

// IsSplit reports whether the header carries a secondary ftyp atom.
func (h *Header) IsSplit() bool {
	return h.split
}

// Len returns the size of the header buffer.
func (h *Header) Len() int {
	return len(h.buf)
}

// Bytes returns the header buffer. It is not a copy.
func (h *Header) Bytes() []byte {
	return h.buf
}

// Size returns the atom size currently reported by the header.
func (h *Header) Size() uint32 {
	return uint32(fieldSize.Get(h.buf))
}

// IconType returns the icon directory type field.
func (h *Header) IconType() uint16 {
	return uint16(fieldIconType.Get(h.buf))
}

// IconCount returns the icon directory image count.
func (h *Header) IconCount() uint16 {
	return uint16(fieldIconCount.Get(h.buf))
}

// IconBitDepth returns the bit depth of the first image.
func (h *Header) IconBitDepth() uint16 {
	return uint16(fieldIconBPP.Get(h.buf))
}

// ImageSize returns the byte size of the first image.
func (h *Header) ImageSize() uint32 {
	return uint32(fieldIconSize.Get(h.buf))
}

// ImageOffset returns the offset of the first image.
func (h *Header) ImageOffset() uint32 {
	return uint32(fieldIconOffset.Get(h.buf))
}

// ParseIcon reads the icon directory fields of a header found at the start
// of data.
func ParseIcon(data []byte) (count uint16, size, offset uint32, err error) {
	if len(data) < FreeOffset {
		return 0, 0, 0, errors.Errorf("icon directory truncated: %d bytes", len(data))
	}
	if fieldIconType.Get(data) != 1 {
		return 0, 0, 0, errors.Errorf("not an icon directory: type %d", fieldIconType.Get(data))
	}
	return uint16(fieldIconCount.Get(data)), uint32(fieldIconSize.Get(data)), uint32(fieldIconOffset.Get(data)), nil
}
