package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	fi, err := f.Stat()
	require.NoError(t, err)

	zr, err := zip.NewReader(f, fi.Size())
	require.NoError(t, err)
	files := make(map[string]string)
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[zf.Name] = string(b)
	}
	return files
}

func TestStageLastWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.jar")
	writeZip(t, first, map[string]string{
		"readme.txt":   "first",
		"only/one.txt": "one",
	})
	writeZip(t, second, map[string]string{
		"readme.txt":   "second",
		"only/two.txt": "two",
	})

	staging := filepath.Join(dir, "staging")
	require.NoError(t, os.MkdirAll(staging, 0o700))
	require.NoError(t, Stage([]string{first, second}, staging, StageOpts{
		Context: context.Background(),
		Logger:  zerolog.Nop(),
	}))

	for name, expected := range map[string]string{
		"readme.txt":   "second",
		"only/one.txt": "one",
		"only/two.txt": "two",
	} {
		b, err := os.ReadFile(filepath.Join(staging, name))
		require.NoError(t, err)
		assert.Equal(t, expected, string(b), name)
	}
}

func TestStageUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.bin")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte{0x01}, 64), 0o600))
	assert.Error(t, Stage([]string{junk}, dir, StageOpts{Logger: zerolog.Nop()}))
}

func TestRepairOffsets(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.zip")
	writeZip(t, archive, map[string]string{
		"a.txt": "alpha",
		"b.txt": "bravo",
	})
	raw, err := os.ReadFile(archive)
	require.NoError(t, err)

	prefix := bytes.Repeat([]byte{0xee}, 1234)
	composite := filepath.Join(dir, "composite.bin")
	require.NoError(t, os.WriteFile(composite, prefix, 0o600))

	offset, err := AppendFile(composite, archive)
	require.NoError(t, err)
	assert.Equal(t, int64(len(prefix)), offset)

	shift, err := RepairOffsets(composite)
	require.NoError(t, err)
	assert.Equal(t, int64(len(prefix)), shift)

	data, err := os.ReadFile(composite)
	require.NoError(t, err)
	require.Len(t, data, len(prefix)+len(raw))
	assert.Equal(t, prefix, data[:len(prefix)])

	eocd, err := findEndOfDir(data)
	require.NoError(t, err)
	cd := int(binary.LittleEndian.Uint32(data[eocd+16:]))
	assert.Equal(t, eocd-int(binary.LittleEndian.Uint32(data[eocd+12:])), cd)
	assert.Equal(t, uint32(sigCentralDir), binary.LittleEndian.Uint32(data[cd:]))

	// every local header offset points at a local file header
	entries := int(binary.LittleEndian.Uint16(data[eocd+10:]))
	for i, p := 0, cd; i < entries; i++ {
		local := binary.LittleEndian.Uint32(data[p+localOffsetPos:])
		assert.Equal(t, []byte("PK\x03\x04"), data[local:local+4])
		p += centralDirLen +
			int(binary.LittleEndian.Uint16(data[p+28:])) +
			int(binary.LittleEndian.Uint16(data[p+30:])) +
			int(binary.LittleEndian.Uint16(data[p+32:]))
	}

	shift, err = RepairOffsets(composite)
	require.NoError(t, err)
	assert.Equal(t, int64(0), shift)

	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.txt": "bravo"}, readZip(t, composite))
}

func TestRepairOffsetsNoArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x00}, 100), 0o600))
	_, err := RepairOffsets(path)
	assert.Error(t, err)
}

func TestFuse(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.zip")
	writeZip(t, first, map[string]string{"readme.txt": "first", "a/b.txt": "b"})
	writeZip(t, second, map[string]string{"readme.txt": "second"})

	output := filepath.Join(dir, "output.bin")
	prefix := bytes.Repeat([]byte{0x11}, 4096)
	require.NoError(t, os.WriteFile(output, prefix, 0o600))

	tmp := t.TempDir()
	require.NoError(t, Fuse(output, []string{first, second}, FuseOpts{
		Context: context.Background(),
		Logger:  zerolog.Nop(),
		Temp:    func(name string) string { return filepath.Join(tmp, name) },
	}))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, prefix, data[:len(prefix)])
	assert.Equal(t, map[string]string{"readme.txt": "second", "a/b.txt": "b"}, readZip(t, output))
}

func TestFuseNothing(t *testing.T) {
	output := filepath.Join(t.TempDir(), "output.bin")
	require.NoError(t, os.WriteFile(output, []byte("data"), 0o600))
	require.NoError(t, Fuse(output, nil, FuseOpts{Logger: zerolog.Nop()}))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}
