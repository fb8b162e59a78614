// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// loadConfig reads a flat YAML mapping of flag names to values.
func loadConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return values, nil
}

// applyConfig sets every flag named in values that was not given on the
// command line. Unknown names are rejected.
func applyConfig(ctx *cli.Context, flags []cli.Flag, values map[string]any) error {
	known := make(map[string]bool, len(flags))
	for _, f := range flags {
		known[f.GetName()] = true
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !known[name] || name == configFlag.Name {
			return errors.Errorf("config: unknown option %q", name)
		}
		if ctx.IsSet(name) {
			continue
		}
		var value string
		switch v := values[name].(type) {
		case nil:
			continue
		case map[string]any, []any:
			return errors.Errorf("config: option %q must be a scalar", name)
		default:
			value = fmt.Sprint(v)
		}
		if err := ctx.Set(name, value); err != nil {
			return errors.Wrapf(err, "config: option %q", name)
		}
	}
	return nil
}
