package atom

import (
	"math"

	"github.com/crazy-max/beheader/pkg/layout"
	"github.com/pkg/errors"
)

// HTML is wrapped so that browsers sniffing the file as a document hide the
// surrounding binary and only render the fragment.
const (
	htmlPrefix = "--><style>body{font-size:0}</style><div style=font-size:initial>"
	htmlSuffix = "</div><!--"
)

// WrapHTML shields an HTML fragment from the bytes around it.
func WrapHTML(html []byte) []byte {
	if len(html) == 0 {
		return nil
	}
	b := make([]byte, 0, len(htmlPrefix)+len(html)+len(htmlSuffix))
	b = append(b, htmlPrefix...)
	b = append(b, html...)
	return append(b, htmlSuffix...)
}

// Payload is the skip atom carrying the image and the optional HTML.
type Payload struct {
	buf []byte
}

// NewPayload builds a skip atom holding image followed by the wrapped html.
func NewPayload(image, html []byte) (*Payload, error) {
	wrapped := WrapHTML(html)
	size := 8 + len(image) + len(wrapped)
	if uint64(size) > math.MaxUint32 {
		return nil, errors.Errorf("payload atom too large: %d bytes", size)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, layout.PutUint32BE(uint32(size))...)
	buf = append(buf, TypeSkip...)
	buf = append(buf, image...)
	buf = append(buf, wrapped...)

	return &Payload{buf: buf}, nil
}

// Signature returns the length and tag header used to find the atom again
// once the editor has placed it.
func (p *Payload) Signature() []byte {
	return p.buf[:8]
}

// Bytes returns the whole atom.
func (p *Payload) Bytes() []byte {
	return p.buf
}

// ErrSignatureNotFound is returned when the payload atom cannot be found in
// the edited container.
var ErrSignatureNotFound = errors.New("payload atom signature not found")

// Locate returns the offset of the data following the first occurrence of
// signature in data. A coincidental earlier match of the signature is not
// detected.
func Locate(data, signature []byte) (int64, error) {
	i := layout.Index(data, signature)
	if i < 0 {
		return 0, ErrSignatureNotFound
	}
	return int64(i + len(signature)), nil
}
