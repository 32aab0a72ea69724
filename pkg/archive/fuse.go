// Package archive merges zip-like archives into one and appends it to a file
// whose leading bytes belong to other formats.
package archive

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// FuseOpts holds fuse options
type FuseOpts struct {
	Context context.Context
	Logger  zerolog.Logger
	// Temp returns the path of a temporary artifact. Callers own the cleanup.
	Temp func(name string) string
}

// Fuse merges filenames into one archive, last one wins on conflicting paths,
// appends it to output and repairs its offsets. Nothing is done without
// filenames.
func Fuse(output string, filenames []string, opts FuseOpts) error {
	if len(filenames) == 0 {
		return nil
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	staging := opts.Temp("staging")
	if err := os.MkdirAll(staging, 0o700); err != nil {
		return errors.Wrap(err, "cannot create staging directory")
	}
	if err := Stage(filenames, staging, StageOpts{
		Context: opts.Context,
		Logger:  opts.Logger,
	}); err != nil {
		return err
	}

	merged := opts.Temp("merged.zip")
	if err := Create(opts.Context, staging, merged); err != nil {
		return err
	}

	offset, err := AppendFile(output, merged)
	if err != nil {
		return err
	}
	opts.Logger.Debug().Int64("offset", offset).Msg("Archive appended")

	shift, err := RepairOffsets(output)
	if err != nil {
		return errors.Wrap(err, "cannot repair archive offsets")
	}
	count, err := Verify(output)
	if err != nil {
		return err
	}
	opts.Logger.Info().Int("entries", count).Int64("shift", shift).Msg("Archive fused")

	return nil
}
