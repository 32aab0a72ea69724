package tool

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// FFmpeg normalizes audio and video inputs to MP4.
type FFmpeg struct {
	Runner
	Bin      string
	ProbeBin string
}

// HasVideo reports whether src has at least one video stream.
func (f FFmpeg) HasVideo(ctx context.Context, src string) (bool, error) {
	out, err := f.Run(ctx, or(f.ProbeBin, "ffprobe"),
		"-v", "error",
		"-select_streams", "v",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		src,
	)
	if err != nil {
		return false, errors.Wrapf(err, "cannot probe %s", src)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// Transcode encodes src to an MP4 at dst. Video is encoded as H.264 with
// even dimensions; audio-only inputs are encoded as AAC without a video
// track.
func (f FFmpeg) Transcode(ctx context.Context, src, dst string, video bool) error {
	args := []string{"-y", "-hide_banner", "-i", src}
	if video {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "slow",
			"-pix_fmt", "yuv420p",
			"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
			"-c:a", "aac",
		)
	} else {
		args = append(args,
			"-vn",
			"-c:a", "aac",
			"-b:a", "192k",
		)
	}
	args = append(args, "-strict", "-2", "-f", "mp4", dst)

	_, err := f.Run(ctx, or(f.Bin, "ffmpeg"), args...)
	return err
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
