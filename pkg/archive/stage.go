package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// StageOpts holds stage options
type StageOpts struct {
	Context context.Context
	Logger  zerolog.Logger
}

// Stage extracts every archive in order into dest. A file extracted later
// replaces any file already staged at the same path.
func Stage(filenames []string, dest string, opts StageOpts) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	for _, filename := range filenames {
		logger := opts.Logger.With().Str("archive", filename).Logger()
		if err := stageOne(opts.Context, logger, filename, dest); err != nil {
			return errors.Wrapf(err, "cannot extract %s", filename)
		}
	}
	return nil
}

func stageOne(ctx context.Context, logger zerolog.Logger, filename string, dest string) error {
	logger.Info().Msg("Extracting archive")

	dt, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer dt.Close()

	format, input, err := archives.Identify(ctx, filepath.Base(filename), dt)
	if err != nil {
		return errors.Wrap(err, "archive format not recognized")
	}
	logger.Debug().Msgf("Archive format %s detected", format.Extension())

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return errors.Errorf("archive format not supported: %s", format.Extension())
	}

	return extractor.Extract(ctx, input, func(ctx context.Context, f archives.FileInfo) error {
		if f.FileInfo.IsDir() {
			logger.Trace().Msgf("Extracting %s", f.NameInArchive)
		} else {
			logger.Debug().Msgf("Extracting %s", f.NameInArchive)
		}

		path, err := securejoin.SecureJoin(dest, f.NameInArchive)
		if err != nil {
			return err
		}
		if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return err
		}

		switch {
		case f.FileInfo.IsDir():
			return os.MkdirAll(path, f.Mode()|0o700)
		case f.FileInfo.Mode().IsRegular():
			return writeFile(ctx, path, f)
		case f.FileInfo.Mode()&fs.ModeSymlink != 0:
			return writeSymlink(path, f)
		default:
			return errors.Errorf("cannot handle file mode: %v", f.FileInfo.Mode())
		}
	})
}

func writeFile(ctx context.Context, path string, f archives.FileInfo) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	// a read-only file staged by an earlier archive cannot be truncated
	if err := removeExisting(path); err != nil {
		return err
	}

	w, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.Copy(w, readerContext(ctx, r))
	return err
}

func writeSymlink(path string, f archives.FileInfo) error {
	if f.LinkTarget == "" {
		return errors.Errorf("symlink target is empty for %s", f.Name())
	}
	if err := removeExisting(path); err != nil {
		return err
	}
	return os.Symlink(f.LinkTarget, path)
}

func removeExisting(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	if fi.IsDir() {
		return errors.Errorf("cannot replace directory %s with a file", path)
	}
	return os.Remove(path)
}

type reader struct {
	ctx context.Context
	r   io.Reader
}

func readerContext(ctx context.Context, r io.Reader) io.Reader {
	return reader{ctx, r}
}

func (r reader) Read(p []byte) (int, error) {
	err := r.ctx.Err()
	if err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil {
		return n, err
	}
	return n, r.ctx.Err()
}
