package config

import (
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAML is a kong configuration loader for YAML files. Keys are flag names,
// with dashes or underscores:
//
//	mp4edit-bin: /opt/bento4/bin/mp4edit
//	log_level: debug
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "cannot decode yaml configuration")
	}

	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if v, ok := values[key]; ok {
				return v, nil
			}
		}
		return nil, nil
	}), nil
}
