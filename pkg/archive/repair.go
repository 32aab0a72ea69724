package archive

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

const (
	sigCentralDir   = 0x02014b50
	sigEndOfDir     = 0x06054b50
	sigZip64Locator = 0x07064b50

	centralDirLen  = 46
	endOfDirLen    = 22
	zip64LocLen    = 20
	maxCommentLen  = 0xffff
	zip64Sentinel  = 0xffffffff
	localOffsetPos = 42
)

// RepairOffsets fixes the absolute offsets of a zip archive stored at the end
// of path after other bytes were written in front of it, like zip -A does
// for self-extracting archives. It returns the shift that was applied.
func RepairOffsets(path string) (int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}

	eocd, err := findEndOfDir(data)
	if err != nil {
		return 0, err
	}
	if eocd >= zip64LocLen && binary.LittleEndian.Uint32(data[eocd-zip64LocLen:]) == sigZip64Locator {
		return 0, errors.New("zip64 archives are not supported")
	}

	entries := int(binary.LittleEndian.Uint16(data[eocd+10:]))
	size := int64(binary.LittleEndian.Uint32(data[eocd+12:]))
	recorded := int64(binary.LittleEndian.Uint32(data[eocd+16:]))
	if recorded == zip64Sentinel {
		return 0, errors.New("zip64 archives are not supported")
	}

	actual := int64(eocd) - size
	shift := actual - recorded
	switch {
	case actual < 0 || shift < 0:
		return 0, errors.Errorf("central directory of %d bytes does not fit before offset %d", size, eocd)
	case shift == 0:
		return 0, nil
	}

	p := actual
	for i := 0; i < entries; i++ {
		if p+centralDirLen > int64(eocd) || binary.LittleEndian.Uint32(data[p:]) != sigCentralDir {
			return 0, errors.Errorf("malformed central directory entry %d at offset %d", i, p)
		}
		local := int64(binary.LittleEndian.Uint32(data[p+localOffsetPos:]))
		if local == zip64Sentinel || local+shift >= zip64Sentinel {
			return 0, errors.Errorf("local header offset of entry %d needs zip64", i)
		}
		binary.LittleEndian.PutUint32(data[p+localOffsetPos:], uint32(local+shift))

		nameLen := int64(binary.LittleEndian.Uint16(data[p+28:]))
		extraLen := int64(binary.LittleEndian.Uint16(data[p+30:]))
		commentLen := int64(binary.LittleEndian.Uint16(data[p+32:]))
		p += centralDirLen + nameLen + extraLen + commentLen
	}
	if actual >= zip64Sentinel {
		return 0, errors.New("central directory offset needs zip64")
	}
	binary.LittleEndian.PutUint32(data[eocd+16:], uint32(actual))

	if _, err := f.WriteAt(data[actual:], actual); err != nil {
		return 0, errors.Wrap(err, "cannot write repaired central directory")
	}
	return shift, f.Close()
}

// findEndOfDir returns the offset of the end of central directory record,
// searching backwards over a possible archive comment.
func findEndOfDir(data []byte) (int, error) {
	if len(data) < endOfDirLen {
		return 0, errors.New("no zip archive at end of file")
	}
	lowest := len(data) - endOfDirLen - maxCommentLen
	if lowest < 0 {
		lowest = 0
	}
	for i := len(data) - endOfDirLen; i >= lowest; i-- {
		if binary.LittleEndian.Uint32(data[i:]) != sigEndOfDir {
			continue
		}
		if i+endOfDirLen+int(binary.LittleEndian.Uint16(data[i+20:])) == len(data) {
			return i, nil
		}
	}
	return 0, errors.New("end of central directory not found")
}

// Verify opens the archive at the end of path and reads every entry.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return 0, errors.Wrap(err, "cannot open appended archive")
	}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return 0, errors.Wrapf(err, "cannot open %s", zf.Name)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return 0, errors.Wrapf(err, "cannot read %s", zf.Name)
		}
	}
	return len(zr.File), nil
}
