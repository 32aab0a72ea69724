package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/crazy-max/beheader/pkg/atom"
	"github.com/crazy-max/beheader/pkg/config"
	"github.com/crazy-max/beheader/pkg/scratch"
	"github.com/crazy-max/beheader/pkg/tool"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ImageTranscoder converts an image to a 32 bpp PNG.
type ImageTranscoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// MediaTranscoder normalizes audio or video to MP4.
type MediaTranscoder interface {
	HasVideo(ctx context.Context, src string) (bool, error)
	Transcode(ctx context.Context, src, dst string, video bool) error
}

// Beheader represents an active beheader object
type Beheader struct {
	ctx    context.Context
	cancel context.CancelFunc
	meta   config.Meta
	cli    config.Cli
	logger zerolog.Logger

	image  ImageTranscoder
	media  MediaTranscoder
	editor atom.Editor

	mu      sync.Mutex
	scratch *scratch.Dir
}

// New creates new beheader instance
func New(meta config.Meta, cli config.Cli) (*Beheader, error) {
	output, err := filepath.Abs(cli.Output)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid output %q", cli.Output)
	}
	inputs := []string{cli.Image, cli.Media, cli.HTML, cli.PDF, cli.Extra}
	inputs = append(inputs, cli.Zips...)
	inputs = append(inputs, cli.Appendables...)
	for _, input := range inputs {
		if input == "" {
			continue
		}
		if abs, err := filepath.Abs(input); err == nil && abs == output {
			return nil, errors.Errorf("output %q would overwrite input", cli.Output)
		}
	}

	logger := log.With().Str("output", cli.Output).Logger()
	runner := tool.Runner{Logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Beheader{
		ctx:    ctx,
		cancel: cancel,
		meta:   meta,
		cli:    cli,
		logger: logger,
		image: tool.ImageMagick{
			Runner: runner,
			Bin:    cli.ConvertBin,
		},
		media: tool.FFmpeg{
			Runner:   runner,
			Bin:      cli.FFmpegBin,
			ProbeBin: cli.FFprobeBin,
		},
		editor: tool.MP4Edit{
			Runner: runner,
			Bin:    cli.MP4EditBin,
		},
	}, nil
}

// Start builds the output file. Temporary files are removed whatever the
// outcome.
func (c *Beheader) Start() error {
	sd, err := scratch.New(c.cli.TmpDir, c.meta.ID+"-*")
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.scratch = sd
	c.mu.Unlock()
	defer sd.Cleanup()

	c.logger.Debug().Str("dir", sd.Root()).Msg("Scratch directory created")
	if err := c.build(sd); err != nil {
		return err
	}

	f, err := os.Open(c.cli.Output)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	dgst, err := digest.FromReader(f)
	if err != nil {
		return errors.Wrap(err, "cannot compute output digest")
	}
	c.logger.Info().Int64("size", fi.Size()).Str("digest", dgst.String()).Msg("Output written")

	return nil
}

// Close stops the pipeline and removes temporary files
func (c *Beheader) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scratch != nil {
		c.scratch.Cleanup()
	}
}
