// Package atomtest provides an in-memory atom editor for tests.
package atomtest

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/crazy-max/beheader/pkg/atom"
	"github.com/pkg/errors"
)

// Editor edits top-level atoms without any external tool. Replace swaps the
// first atom of the given type, Insert appends the atom after the last one.
// Neither fixes chunk offsets, so the output is only meaningful as bytes.
type Editor struct {
	// Calls records "replace:<type>" and "insert:<type>" in call order.
	Calls []string
}

// Replace implements atom.Editor.
func (e *Editor) Replace(_ context.Context, typ, blob, src, dst string) error {
	e.Calls = append(e.Calls, "replace:"+typ)
	data, b, err := load(blob, src)
	if err != nil {
		return err
	}
	atoms, err := atom.Walk(data)
	if err != nil {
		return err
	}
	for _, a := range atoms {
		if a.Type != typ {
			continue
		}
		var out bytes.Buffer
		out.Write(data[:a.Offset])
		out.Write(b)
		out.Write(data[a.Offset+a.Size:])
		return os.WriteFile(dst, out.Bytes(), 0o600)
	}
	return errors.Errorf("no %s atom in %s", typ, src)
}

// Insert implements atom.Editor.
func (e *Editor) Insert(_ context.Context, typ, blob, src, dst string) error {
	e.Calls = append(e.Calls, "insert:"+typ)
	data, b, err := load(blob, src)
	if err != nil {
		return err
	}
	if string(b[4:8]) != typ {
		return errors.Errorf("atom type %q does not match %q", b[4:8], typ)
	}
	return os.WriteFile(dst, append(data, b...), 0o600)
}

func load(blob, src string) ([]byte, []byte, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, nil, err
	}
	b, err := os.ReadFile(blob)
	if err != nil {
		return nil, nil, err
	}
	if len(b) < 8 || int(binary.BigEndian.Uint32(b)) != len(b) {
		return nil, nil, errors.Errorf("malformed atom in %s", blob)
	}
	return data, b, nil
}

// Box returns a top-level atom of the given type wrapping body.
func Box(typ string, body []byte) []byte {
	if len(typ) != 4 {
		panic(fmt.Sprintf("invalid atom type %q", typ))
	}
	b := binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))
	b = append(b, typ...)
	return append(b, body...)
}

// MP4 returns a minimal container with ftyp, moov and mdat atoms. The moov
// and mdat bodies are filler.
func MP4(mdat int) []byte {
	var b []byte
	b = append(b, Box("ftyp", []byte("isom\x00\x00\x02\x00isomiso2avc1mp41"))...)
	b = append(b, Box("moov", bytes.Repeat([]byte{0x6d}, 64))...)
	return append(b, Box("mdat", bytes.Repeat([]byte{0xaa}, mdat))...)
}
