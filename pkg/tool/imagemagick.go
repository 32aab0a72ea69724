package tool

import (
	"context"
)

// ImageMagick converts images with the ImageMagick convert command.
type ImageMagick struct {
	Runner
	Bin string
}

// Transcode writes src as a PNG with 8-bit RGBA samples and no metadata, so
// the icon directory can announce it as a 32 bpp image.
func (im ImageMagick) Transcode(ctx context.Context, src, dst string) error {
	_, err := im.Run(ctx, or(im.Bin, "convert"),
		src,
		"-define", "png:color-type=6",
		"-depth", "8",
		"-alpha", "on",
		"-strip",
		"png:"+dst,
	)
	return err
}
