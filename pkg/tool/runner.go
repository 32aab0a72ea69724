// Package tool runs the external programs the pipeline relies on to
// transcode images and media and to edit MP4 atoms.
package tool

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Runner runs external commands synchronously.
type Runner struct {
	Logger zerolog.Logger
}

// Run runs name with args and returns its standard output. The standard
// error of a failed command is attached to the returned error.
func (r Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.Logger.Debug().Str("cmd", name).Strs("args", args).Msg("Running command")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); len(msg) > 0 {
			return nil, errors.Wrapf(err, "%s failed: %s", name, tail(msg, 2048))
		}
		return nil, errors.Wrapf(err, "%s failed", name)
	}
	if stderr.Len() > 0 {
		r.Logger.Trace().Str("cmd", name).Msg(strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// tail keeps the last n bytes of s where tools report the actual failure.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
