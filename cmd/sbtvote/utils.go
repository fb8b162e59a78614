// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/sbtvote/badgerdb"
	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/lvldb"
	"github.com/vechain/sbtvote/ownership"
	"github.com/vechain/sbtvote/thor"
)

func readIntFromUInt64Flag(val uint64) (int, error) {
	if val > math.MaxInt {
		return 0, errors.Errorf("invalid value %d", val)
	}
	return int(val), nil
}

// newLogHandler writes logfmt to terminals and JSON elsewhere or when asked to.
func newLogHandler(w io.Writer, fd uintptr, forceJSON bool, level *slog.LevelVar) slog.Handler {
	if forceJSON || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		return log.JSONHandlerWithLevel(w, level)
	}
	return log.LogfmtHandlerWithLevel(w, level)
}

func initLogger(ctx *cli.Context) error {
	lvl, err := readIntFromUInt64Flag(ctx.Uint64(verbosityFlag.Name))
	if err != nil {
		return errors.Wrap(err, "parse verbosity flag")
	}
	level := new(slog.LevelVar)
	level.Set(log.FromLegacyLevel(lvl))
	log.SetDefault(log.NewLogger(newLogHandler(os.Stderr, os.Stderr.Fd(), ctx.Bool(jsonLogsFlag.Name), level)))
	return nil
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".sbtvote")
	}
	return "./.sbtvote"
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// openStore opens the ledger database of the chosen engine under dataDir.
func openStore(ctx *cli.Context, dataDir string) (kv.Store, string, error) {
	engine := ctx.String(dbEngineFlag.Name)
	switch engine {
	case "leveldb":
		dir := filepath.Join(dataDir, "ledger.db")
		db, err := lvldb.New(dir, lvldb.Options{
			CacheSize:              ctx.Int(dbCacheFlag.Name),
			OpenFilesCacheCapacity: 64,
		})
		return db, dir, err
	case "badger":
		dir := filepath.Join(dataDir, "ledger.badger")
		db, err := badgerdb.New(dir)
		return db, dir, err
	default:
		return nil, "", errors.Errorf("unsupported db engine %q", engine)
	}
}

func parseAddress(ctx *cli.Context, flag cli.StringFlag) (*thor.Address, error) {
	s := ctx.String(flag.Name)
	if s == "" {
		return nil, nil
	}
	addr, err := thor.ParseAddress(s)
	if err != nil {
		return nil, errors.Wrap(err, "-"+flag.Name)
	}
	return &addr, nil
}

func newClock(ctx *cli.Context) (*chain.IntervalClock, error) {
	interval := ctx.Uint64(blockIntervalFlag.Name)
	if interval == 0 {
		return nil, errors.New("-" + blockIntervalFlag.Name + ": must be positive")
	}
	genesis := ctx.Uint64(genesisTimeFlag.Name)
	if genesis > math.MaxInt64 {
		return nil, errors.New("-" + genesisTimeFlag.Name + ": out of range")
	}
	return chain.NewIntervalClock(time.Unix(int64(genesis), 0), interval), nil
}

func newOracle(ctx *cli.Context) ownership.Oracle {
	url := ctx.String(oracleURLFlag.Name)
	if url == "" {
		logger.Warn("no ownership oracle configured, using an empty in-memory oracle")
		return ownership.NewStatic()
	}
	timeout := time.Duration(ctx.Uint64(oracleTimeoutFlag.Name)) * time.Millisecond
	return ownership.NewClient(url, timeout)
}

// handleExitSignal returns a context cancelled on the first interrupt.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
