package app

import (
	"bytes"
	"io"
	"os"

	"github.com/crazy-max/beheader/pkg/archive"
	"github.com/crazy-max/beheader/pkg/atom"
	"github.com/crazy-max/beheader/pkg/pdf"
	"github.com/crazy-max/beheader/pkg/scratch"
	"github.com/pkg/errors"
)

// build runs every stage in order. Each stage needs the output of the
// previous one, so nothing runs concurrently.
func (c *Beheader) build(sd *scratch.Dir) error {
	c.logger.Info().Str("src", c.cli.Image).Msg("Transcoding image")
	png := sd.Path("image.png")
	if err := c.image.Transcode(c.ctx, c.cli.Image, png); err != nil {
		return errors.Wrap(err, "cannot transcode image")
	}
	image, err := os.ReadFile(png)
	if err != nil {
		return errors.Wrap(err, "cannot read transcoded image")
	}

	video, err := c.media.HasVideo(c.ctx, c.cli.Media)
	if err != nil {
		return err
	}
	c.logger.Info().Str("src", c.cli.Media).Bool("video", video).Msg("Transcoding media")
	media := sd.Path("media.mp4")
	if err := c.media.Transcode(c.ctx, c.cli.Media, media, video); err != nil {
		return errors.Wrap(err, "cannot transcode media")
	}

	header, payload, err := c.atoms(image)
	if err != nil {
		return err
	}

	c.logger.Info().Int("size", len(image)).Msg("Embedding image")
	final := sd.Path("final.mp4")
	offset, err := atom.Embed(header, payload, media, final, atom.EmbedOpts{
		Context: c.ctx,
		Logger:  c.logger.With().Str("stage", "atom").Logger(),
		Editor:  c.editor,
		Temp:    sd.Path,
	})
	if err != nil {
		return err
	}
	composite, err := os.ReadFile(final)
	if err != nil {
		return errors.Wrap(err, "cannot read container")
	}
	if !bytes.HasPrefix(composite, header.Bytes()) {
		return errors.New("header atom is not at the start of the container")
	}
	c.logger.Debug().Int64("offset", offset).Int("size", len(composite)).Msg("Container ready")

	var doc *pdf.Document
	if c.cli.PDF != "" {
		c.logger.Info().Str("src", c.cli.PDF).Msg("Embedding pdf")
		if doc, err = pdf.Open(c.cli.PDF, c.logger.With().Str("stage", "pdf").Logger()); err != nil {
			return err
		}
		if _, err := doc.Prepare(header, int64(len(composite))); err != nil {
			return err
		}
	}

	// the header was placed with the padded size, only now can the
	// secondary ftyp atom be carved out of it
	header.Split()
	copy(composite, header.Bytes())
	c.logAtoms(composite)

	if err := c.write(composite, doc); err != nil {
		return err
	}

	if len(c.cli.Zips) > 0 {
		c.logger.Info().Int("count", len(c.cli.Zips)).Msg("Fusing archives")
	}
	return archive.Fuse(c.cli.Output, c.cli.Zips, archive.FuseOpts{
		Context: c.ctx,
		Logger:  c.logger.With().Str("stage", "archive").Logger(),
		Temp:    sd.Path,
	})
}

// atoms builds the header and payload atoms for image with the optional
// extra header bytes and HTML.
func (c *Beheader) atoms(image []byte) (*atom.Header, *atom.Payload, error) {
	header, err := atom.NewHeader(len(image), !c.cli.NoFtypSplit)
	if err != nil {
		return nil, nil, err
	}
	if c.cli.Extra != "" {
		extra, err := os.ReadFile(c.cli.Extra)
		if err != nil {
			return nil, nil, errors.Wrap(err, "cannot read extra header bytes")
		}
		if err := header.SetExtra(extra); err != nil {
			return nil, nil, err
		}
	}

	var html []byte
	if c.cli.HTML != "" {
		if html, err = os.ReadFile(c.cli.HTML); err != nil {
			return nil, nil, errors.Wrap(err, "cannot read html")
		}
	}
	payload, err := atom.NewPayload(image, html)
	if err != nil {
		return nil, nil, err
	}

	return header, payload, nil
}

// write writes the composite, the pdf and the appendables to the output.
func (c *Beheader) write(composite []byte, doc *pdf.Document) error {
	out, err := os.OpenFile(c.cli.Output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "cannot create output")
	}
	defer out.Close()

	if _, err := out.Write(composite); err != nil {
		return errors.Wrap(err, "cannot write output")
	}
	if doc != nil {
		if _, err := doc.Append(out, int64(len(composite))); err != nil {
			return err
		}
	}

	for _, path := range c.cli.Appendables {
		c.logger.Info().Str("src", path).Msg("Appending file")
		if err := appendFile(out, path); err != nil {
			return err
		}
	}

	return out.Close()
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "cannot append %s", path)
	}
	return nil
}

func (c *Beheader) logAtoms(composite []byte) {
	atoms, err := atom.Walk(composite)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Container does not walk cleanly")
		return
	}
	for _, a := range atoms {
		c.logger.Trace().Msg(a.String())
	}
}
