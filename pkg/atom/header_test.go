package atom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeader(t *testing.T) {
	testCases := []struct {
		desc  string
		split bool
		size  uint32
	}{
		{
			desc: "single atom",
			size: HeaderSize,
		},
		{
			desc:  "split padding",
			split: true,
			size:  HeaderSize + SplitSize,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			h, err := NewHeader(10000, tt.split)
			require.NoError(t, err)
			assert.Equal(t, int(tt.size), h.Len())
			assert.Equal(t, tt.size, h.Size())
			assert.Equal(t, TypeFtyp, string(h.Bytes()[4:8]))
			assert.Equal(t, uint16(32), h.IconBitDepth())
			assert.Equal(t, uint32(10000), h.ImageSize())
			assert.Equal(t, uint32(0), h.ImageOffset())
			assert.Equal(t, tt.split, h.IsSplit())
			if tt.split {
				assert.Equal(t, ftypAtom, h.Bytes()[HeaderSize:])
			}
		})
	}
}

func TestHeaderFinalize(t *testing.T) {
	h, err := NewHeader(10000, false)
	require.NoError(t, err)
	require.NoError(t, h.Finalize(1234))

	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00}, h.Bytes()[:8])
	assert.Equal(t, uint16(1), h.IconType())
	assert.Equal(t, uint16(1), h.IconCount())
	assert.Equal(t, uint32(1234), h.ImageOffset())

	count, size, offset, err := ParseIcon(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(1), count)
	assert.Equal(t, uint32(10000), size)
	assert.Equal(t, uint32(1234), offset)

	assert.Error(t, h.Finalize(-1))
	assert.Error(t, h.Finalize(1<<32))
}

func TestHeaderSplit(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h, err := NewHeader(42, false)
		require.NoError(t, err)
		require.NoError(t, h.Finalize(512))
		h.Split()

		assert.LessOrEqual(t, h.Size(), uint32(HeaderSize))
		atoms, err := Walk(h.Bytes())
		require.NoError(t, err)
		require.Len(t, atoms, 1)
	})

	t.Run("enabled", func(t *testing.T) {
		h, err := NewHeader(42, true)
		require.NoError(t, err)
		require.NoError(t, h.Finalize(512))

		atoms, err := Walk(h.Bytes())
		require.NoError(t, err)
		require.Len(t, atoms, 1)
		assert.Equal(t, int64(HeaderSize+SplitSize), atoms[0].Size)

		h.Split()
		assert.Equal(t, uint32(HeaderSize), h.Size())
		assert.Equal(t, uint16(1), h.IconType())

		atoms, err = Walk(h.Bytes())
		require.NoError(t, err)
		require.Len(t, atoms, 2)
		assert.Equal(t, Atom{Offset: 0, Size: HeaderSize, Type: "\x01\x00\x00\x00"}, atoms[0])
		assert.Equal(t, Atom{Offset: HeaderSize, Size: SplitSize, Type: TypeFtyp}, atoms[1])
	})
}

func TestHeaderFreeSpace(t *testing.T) {
	h, err := NewHeader(1, false)
	require.NoError(t, err)

	start, end := h.Free()
	assert.Equal(t, FreeOffset, start)
	assert.Equal(t, HeaderSize, end)

	require.NoError(t, h.SetExtra([]byte("hello")))
	assert.Equal(t, []byte("hello"), h.Bytes()[ExtraOffset:ExtraOffset+5])
	start, _ = h.Free()
	assert.Equal(t, ExtraOffset+5, start)

	at, err := h.WriteFree([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, ExtraOffset+5, at)
	assert.Equal(t, []byte("helloworld"), h.Bytes()[ExtraOffset:ExtraOffset+10])

	_, err = h.WriteFree(make([]byte, HeaderSize))
	assert.Error(t, err)
	assert.Error(t, h.SetExtra(make([]byte, HeaderSize-ExtraOffset+1)))
	assert.NoError(t, h.SetExtra(make([]byte, HeaderSize-ExtraOffset)))
}

func TestWalk(t *testing.T) {
	testCases := []struct {
		desc     string
		data     []byte
		expected []Atom
		err      bool
	}{
		{
			desc: "two atoms",
			data: append(box("ftyp", 8), box("mdat", 4)...),
			expected: []Atom{
				{Offset: 0, Size: 16, Type: "ftyp"},
				{Offset: 16, Size: 12, Type: "mdat"},
			},
		},
		{
			desc: "size zero extends to end",
			data: append(box("ftyp", 0), 0x00, 0x00, 0x00, 0x00, 'm', 'd', 'a', 't', 0x01, 0x02),
			expected: []Atom{
				{Offset: 0, Size: 8, Type: "ftyp"},
				{Offset: 8, Size: 10, Type: "mdat"},
			},
		},
		{
			desc: "truncated",
			data: append(box("ftyp", 0), 0x00, 0x00),
			err:  true,
		},
		{
			desc: "oversized",
			data: []byte{0x00, 0x00, 0x01, 0x00, 'f', 't', 'y', 'p'},
			err:  true,
		},
		{
			desc: "extended size overflows offset",
			data: append(box("free", 0),
				0x00, 0x00, 0x00, 0x01, 'm', 'd', 'a', 't',
				0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			),
			err: true,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			atoms, err := Walk(tt.data)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, atoms)
		})
	}
}

func TestLocate(t *testing.T) {
	image := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 100)
	p, err := NewPayload(image, nil)
	require.NoError(t, err)

	for _, prefix := range []int{0, 1, 7, 255, 4096} {
		data := append(bytes.Repeat([]byte{0xfe}, prefix), p.Bytes()...)
		o, err := Locate(data, p.Signature())
		require.NoError(t, err)
		assert.Equal(t, int64(prefix+8), o)
		assert.Equal(t, p.Signature(), data[o-8:o])
		assert.Equal(t, image, data[o:o+int64(len(image))])
	}

	_, err = Locate(bytes.Repeat([]byte{0xfe}, 64), p.Signature())
	assert.ErrorIs(t, err, ErrSignatureNotFound)
}

func TestPayload(t *testing.T) {
	p, err := NewPayload([]byte("img"), []byte("<b>hi</b>"))
	require.NoError(t, err)

	wrapped := WrapHTML([]byte("<b>hi</b>"))
	assert.Equal(t, htmlPrefix+"<b>hi</b>"+htmlSuffix, string(wrapped))
	assert.Equal(t, 8+3+len(wrapped), len(p.Bytes()))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, byte(8 + 3 + len(wrapped)), 's', 'k', 'i', 'p'}, p.Signature())
	assert.Nil(t, WrapHTML(nil))
}

func box(typ string, n int) []byte {
	b := []byte{0x00, 0x00, 0x00, byte(8 + n)}
	b = append(b, typ...)
	return append(b, make([]byte, n)...)
}
