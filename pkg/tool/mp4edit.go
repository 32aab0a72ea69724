package tool

import (
	"context"
)

// MP4Edit edits top-level atoms with the Bento4 mp4edit command.
type MP4Edit struct {
	Runner
	Bin string
}

// Replace implements atom.Editor.
func (m MP4Edit) Replace(ctx context.Context, typ, blob, src, dst string) error {
	_, err := m.Run(ctx, or(m.Bin, "mp4edit"), "--replace", typ+":"+blob, src, dst)
	return err
}

// Insert implements atom.Editor.
func (m MP4Edit) Insert(ctx context.Context, typ, blob, src, dst string) error {
	_, err := m.Run(ctx, or(m.Bin, "mp4edit"), "--insert", typ+":"+blob, src, dst)
	return err
}
