package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// Create writes a zip archive of the contents of dir to dst. Entries are
// stored relative to dir.
func Create(ctx context.Context, dir, dst string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "cannot read staging directory %s", dir)
	}

	filenames := make(map[string]string, len(entries))
	for _, e := range entries {
		filenames[filepath.Join(dir, e.Name())] = ""
	}
	files, err := archives.FilesFromDisk(ctx, nil, filenames)
	if err != nil {
		return errors.Wrap(err, "cannot list staged files")
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	format := archives.Zip{
		SelectiveCompression: true,
		Compression:          zip.Deflate,
	}
	if err := format.Archive(ctx, out, files); err != nil {
		return errors.Wrap(err, "cannot create archive")
	}

	return out.Close()
}

// AppendFile copies src to the end of dst and returns the offset it starts
// at.
func AppendFile(dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	fi, err := out.Stat()
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(out, in); err != nil {
		return 0, errors.Wrapf(err, "cannot append %s", src)
	}

	return fi.Size(), out.Close()
}
