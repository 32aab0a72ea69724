package pdf

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var pdfHeader = []byte("%PDF-")

// Region is the free space of a header the prologue is written into.
type Region interface {
	Free() (int, int)
	WriteFree(b []byte) (int, error)
}

// Document is a source PDF being embedded.
type Document struct {
	data   []byte
	logger zerolog.Logger
}

// Open reads the PDF document at path.
func Open(path string, logger zerolog.Logger) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read pdf %s", path)
	}
	return New(data, logger)
}

// New returns a document for data.
func New(data []byte, logger zerolog.Logger) (*Document, error) {
	if len(data) < HeaderSize || !bytes.HasPrefix(data, pdfHeader) {
		return nil, errors.New("not a pdf document")
	}
	return &Document{
		data:   data,
		logger: logger,
	}, nil
}

// Len returns the size of the source document.
func (d *Document) Len() int {
	return len(d.data)
}

// Prepare writes the document header and the stream prologue into the free
// space of r. total is the size of the composite file before the document is
// appended; the stream spans from the end of the prologue to total. It
// returns the offset the stream starts at.
func (d *Document) Prepare(r Region, total int64) (int, error) {
	base, end := r.Free()
	if total < int64(end) {
		return 0, errors.Errorf("composite file of %d bytes too small for a stream", total)
	}

	start, prologue := Size(d.data[:HeaderSize], base, int(total))
	if start > end {
		return 0, errors.Errorf("pdf prologue needs %d bytes, %d available in header atom", len(prologue), end-base)
	}
	if _, err := r.WriteFree(prologue); err != nil {
		return 0, err
	}

	d.logger.Debug().Int("offset", base).Int("stream", start).Int64("length", total-int64(start)).Msg("PDF prologue written")
	return start, nil
}

// Append closes the stream opened by Prepare and writes the document with its
// cross-reference table moved past the size bytes already in the composite
// file. A table that cannot be relocated is logged and the document is
// written unmodified. It returns the number of bytes written.
func (d *Document) Append(w io.Writer, size int64) (int64, error) {
	prefix := size + int64(len(Terminator))

	data, err := Relocate(d.data, prefix)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Cannot relocate cross-reference table, appending pdf unmodified")
		data = d.data
	} else {
		d.logger.Debug().Int64("shift", prefix).Msg("Cross-reference table relocated")
	}

	n, err := io.WriteString(w, Terminator)
	if err != nil {
		return int64(n), errors.Wrap(err, "cannot write stream terminator")
	}
	m, err := w.Write(data)
	if err != nil {
		return int64(n + m), errors.Wrap(err, "cannot write pdf")
	}
	return int64(n + m), nil
}
