package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/crazy-max/beheader/pkg/layout"
	"github.com/pkg/errors"
)

var (
	xrefKeyword      = []byte("\nxref")
	startxrefKeyword = []byte("\nstartxref")
	eofMarker        = []byte("%%EOF")

	subsectionRe = regexp.MustCompile(`^(\d+)[ ]+(\d+)[ \t]*\r?\n`)
	entryRe      = regexp.MustCompile(`\d{10} \d{5} [nf]`)
)

const (
	entrySize   = 20
	offsetWidth = 10
	maxOffset   = 9999999999
)

// Relocate returns a copy of data with the offsets of the first
// cross-reference table and the startxref pointer moved by shift. Only in-use
// entries are rewritten; free entries hold object numbers, not offsets. The
// trailing %%EOF is written again right after the new startxref value and the
// stale bytes up to the end of the old marker are zero filled. When the new
// value does not fit in front of the last marker of the file, the result grows
// by the missing bytes.
func Relocate(data []byte, shift int64) ([]byte, error) {
	out := bytes.Clone(data)

	xref := layout.Index(out, xrefKeyword)
	if xref < 0 {
		return nil, errors.New("cross-reference table not found")
	}
	end, err := relocateTable(out, xref+len(xrefKeyword), shift)
	if err != nil {
		return nil, errors.Wrapf(err, "cross-reference table at offset %d", xref+1)
	}

	startxref := layout.IndexFrom(out, startxrefKeyword, end)
	if startxref < 0 {
		return nil, errors.New("startxref not found after cross-reference table")
	}
	return relocateStartxref(out, startxref+len(startxrefKeyword), shift)
}

// relocateTable rewrites every subsection following the xref keyword and
// returns the offset right after the last entry.
func relocateTable(data []byte, pos int, shift int64) (int, error) {
	pos = skipSpace(data, pos)
	sections := 0

	for {
		m := subsectionRe.FindSubmatchIndex(data[pos:])
		if m == nil {
			break
		}
		count, err := strconv.Atoi(string(data[pos+m[4] : pos+m[5]]))
		if err != nil {
			return 0, errors.Wrap(err, "invalid subsection entry count")
		}
		pos += m[1]

		first := entryRe.FindIndex(data[pos:])
		if first == nil || first[0] > 2 {
			return 0, errors.Errorf("no entry after subsection header at offset %d", pos)
		}
		pos += first[0]

		for i := 0; i < count; i++ {
			e := pos + i*entrySize
			if e+entrySize-2 > len(data) || !entryRe.Match(data[e:e+entrySize-2]) {
				return 0, errors.Errorf("malformed entry %d of %d at offset %d", i, count, e)
			}
			if data[e+entrySize-3] != 'n' {
				continue
			}
			v, err := strconv.ParseInt(string(data[e:e+offsetWidth]), 10, 64)
			if err != nil {
				return 0, errors.Wrapf(err, "entry %d", i)
			}
			if v+shift > maxOffset {
				return 0, errors.Errorf("entry %d offset %d overflows %d digits", i, v+shift, offsetWidth)
			}
			copy(data[e:], fmt.Sprintf("%0*d", offsetWidth, v+shift))
		}

		pos += count * entrySize
		sections++
	}

	if sections == 0 {
		return 0, errors.New("no subsection header")
	}
	return pos, nil
}

// relocateStartxref rewrites the value starting after the startxref keyword
// at pos, followed by the end of file marker.
func relocateStartxref(data []byte, pos int, shift int64) ([]byte, error) {
	start := skipSpace(data, pos)
	digits := start
	for digits < len(data) && data[digits] >= '0' && data[digits] <= '9' {
		digits++
	}
	if digits == start {
		return nil, errors.Errorf("startxref value missing at offset %d", start)
	}
	v, err := strconv.ParseInt(string(data[start:digits]), 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid startxref value")
	}

	eof := layout.IndexFrom(data, eofMarker, digits)
	if eof < 0 {
		return nil, errors.New("end of file marker not found after startxref")
	}
	stale := skipSpace(data, eof+len(eofMarker))

	tail := []byte(strconv.FormatInt(v+shift, 10) + "\n" + string(eofMarker))
	if start+len(tail) > stale {
		if stale < len(data) {
			return nil, errors.Errorf("no room for startxref value %d before offset %d", v+shift, stale)
		}
		data = append(data, make([]byte, start+len(tail)-stale)...)
		stale = len(data)
	}
	n := copy(data[start:], tail)
	clear(data[start+n : stale])

	return data, nil
}

// skipSpace returns the offset of the first byte from pos that is not PDF
// white space.
func skipSpace(data []byte, pos int) int {
	for pos < len(data) {
		switch data[pos] {
		case 0x00, '\t', '\n', '\f', '\r', ' ':
			pos++
		default:
			return pos
		}
	}
	return pos
}
