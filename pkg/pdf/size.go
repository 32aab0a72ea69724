// Package pdf embeds a PDF document into a composite file. The bytes between
// a synthesized stream header near the start of the file and the appended
// document become the content of one stream object.
package pdf

import (
	"strconv"
	"strings"
)

// HeaderSize is the number of bytes copied from the source document so that
// readers looking for %PDF-x.y near the start of the file find it.
const HeaderSize = 9

// Terminator closes the stream opened by the prologue.
const Terminator = "\nendstream\nendobj\n"

// Prologue returns the document header followed by a stream object whose
// Length is length. pad adds spaces before the Length value.
func Prologue(header []byte, length, pad int) []byte {
	var b strings.Builder
	b.Write(header)
	b.WriteString("1 0 obj\n<</Length ")
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(strconv.Itoa(length))
	b.WriteString(">>\nstream\n")
	return []byte(b.String())
}

// Size finds where the stream starts when the prologue is written at base and
// the stream runs to total. The Length field encodes total-start, and start
// is base plus the prologue length, so the prologue has to describe its own
// size. Starting from an upper bound, start is decremented until both agree.
// When a decimal digit boundary makes the iteration overshoot, one byte of
// padding is added and the search restarts.
func Size(header []byte, base, total int) (int, []byte) {
	for pad := 0; ; pad++ {
		k := base + len(Prologue(header, total, pad))
		for {
			p := Prologue(header, total-k, pad)
			switch predicted := base + len(p); {
			case predicted == k:
				return k, p
			case predicted < k:
				k--
				continue
			}
			break
		}
	}
}
