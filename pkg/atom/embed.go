package atom

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Editor edits top-level atoms of an MP4 file. Both operations read src and
// write a new file at dst; blob is the path of a file holding the raw atom.
type Editor interface {
	Replace(ctx context.Context, typ, blob, src, dst string) error
	Insert(ctx context.Context, typ, blob, src, dst string) error
}

// EmbedOpts holds embed options
type EmbedOpts struct {
	Context context.Context
	Logger  zerolog.Logger
	Editor  Editor
	// Temp returns the path of a temporary artifact. Callers own the cleanup.
	Temp func(name string) string
}

// Embed writes header and payload into the media file src and saves the
// result to dst. The payload offset depends on atoms the editor writes, so
// the header is first placed with a zero offset, the payload inserted, its
// offset found by searching the result, and the header placed again with
// the real offset. It returns the offset of the payload data in dst.
func Embed(header *Header, payload *Payload, src, dst string, opts EmbedOpts) (int64, error) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	headerAtom := opts.Temp("header.atom")
	payloadAtom := opts.Temp("payload.atom")
	probed := opts.Temp("probe.mp4")
	placed := opts.Temp("placed.mp4")

	opts.Logger.Debug().Int("size", header.Len()).Msg("Placing header atom")
	if err := os.WriteFile(headerAtom, header.Bytes(), 0o600); err != nil {
		return 0, errors.Wrap(err, "cannot write header atom")
	}
	if err := opts.Editor.Replace(opts.Context, TypeFtyp, headerAtom, src, probed); err != nil {
		return 0, errors.Wrap(err, "cannot place header atom")
	}

	opts.Logger.Debug().Int("size", len(payload.Bytes())).Msg("Inserting payload atom")
	if err := os.WriteFile(payloadAtom, payload.Bytes(), 0o600); err != nil {
		return 0, errors.Wrap(err, "cannot write payload atom")
	}
	if err := opts.Editor.Insert(opts.Context, TypeSkip, payloadAtom, probed, placed); err != nil {
		return 0, errors.Wrap(err, "cannot insert payload atom")
	}

	data, err := os.ReadFile(placed)
	if err != nil {
		return 0, errors.Wrap(err, "cannot read edited container")
	}
	offset, err := Locate(data, payload.Signature())
	if err != nil {
		return 0, errors.Wrapf(err, "searching %d bytes of %s", len(data), placed)
	}
	opts.Logger.Debug().Int64("offset", offset).Msg("Payload offset found")

	if err := header.Finalize(offset); err != nil {
		return 0, err
	}
	if err := os.WriteFile(headerAtom, header.Bytes(), 0o600); err != nil {
		return 0, errors.Wrap(err, "cannot write header atom")
	}
	if err := opts.Editor.Replace(opts.Context, TypeFtyp, headerAtom, placed, dst); err != nil {
		return 0, errors.Wrap(err, "cannot place final header atom")
	}

	return offset, nil
}
