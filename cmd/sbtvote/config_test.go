// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// runWithConfig runs an app over args and returns the context seen by its action.
func runWithConfig(t *testing.T, args ...string) (*cli.Context, error) {
	var seen *cli.Context
	app := cli.NewApp()
	app.Flags = flags
	app.Action = func(ctx *cli.Context) error {
		values, err := loadConfig(ctx.String(configFlag.Name))
		if err != nil {
			return err
		}
		if err := applyConfig(ctx, flags, values); err != nil {
			return err
		}
		seen = ctx
		return nil
	}
	err := app.Run(append([]string{"sbtvote"}, args...))
	return seen, err
}

func TestApplyConfig(t *testing.T) {
	path := writeConfig(t, `
api-addr: 0.0.0.0:9000
db-engine: badger
verbosity: 5
enable-metrics: true
oracle-url: http://oracle:8080
dao: "0x0000000000000000000000000000000000000001"
`)
	ctx, err := runWithConfig(t, "--config", path, "--api-addr", "localhost:1")
	require.NoError(t, err)

	// command line wins
	assert.Equal(t, "localhost:1", ctx.String(apiAddrFlag.Name))
	assert.Equal(t, "badger", ctx.String(dbEngineFlag.Name))
	assert.Equal(t, uint64(5), ctx.Uint64(verbosityFlag.Name))
	assert.True(t, ctx.Bool(enableMetricsFlag.Name))
	assert.Equal(t, "http://oracle:8080", ctx.String(oracleURLFlag.Name))

	dao, err := parseAddress(ctx, daoFlag)
	require.NoError(t, err)
	require.NotNil(t, dao)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", dao.String())

	// untouched defaults
	assert.Equal(t, blockIntervalFlag.Value, ctx.Uint64(blockIntervalFlag.Name))
}

func TestApplyConfigErrors(t *testing.T) {
	_, err := runWithConfig(t, "--config", writeConfig(t, "no-such-flag: 1\n"))
	assert.ErrorContains(t, err, "unknown option")

	_, err = runWithConfig(t, "--config", writeConfig(t, "api-cors: [a, b]\n"))
	assert.ErrorContains(t, err, "must be a scalar")

	_, err = runWithConfig(t, "--config", writeConfig(t, "verbosity: loud\n"))
	assert.Error(t, err)

	_, err = runWithConfig(t, "--config", writeConfig(t, "api-cors: [unclosed\n"))
	assert.ErrorContains(t, err, "decode config")

	_, err = runWithConfig(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}
