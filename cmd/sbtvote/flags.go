// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/dispatch"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/ownership"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a YAML file providing values for flags not set on the command line",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger database",
	}
	dbEngineFlag = cli.StringFlag{
		Name:  "db-engine",
		Value: "leveldb",
		Usage: "storage engine (leveldb|badger)",
	}
	dbCacheFlag = cli.IntFlag{
		Name:  "db-cache",
		Value: 64,
		Usage: "leveldb cache size in MiB",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8670",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiSlowQueriesThresholdFlag = cli.Uint64Flag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "all queries with duration longer than this threshold in milliseconds will be logged",
	}
	daoFlag = cli.StringFlag{
		Name:  "dao",
		Usage: "address of the governing body, required on first start",
	}
	ownerFlag = cli.StringFlag{
		Name:  "owner",
		Usage: "address of the initial owner, defaults to the governing body",
	}
	nftContractFlag = cli.StringFlag{
		Name:  "nft-contract",
		Usage: "name of the token collection the oracle answers for",
	}
	oracleURLFlag = cli.StringFlag{
		Name:  "oracle-url",
		Usage: "base URL of the ownership oracle, an in-memory oracle is used when empty",
	}
	oracleTimeoutFlag = cli.Uint64Flag{
		Name:  "oracle-timeout",
		Value: uint64(ownership.DefaultQueryTimeout.Milliseconds()),
		Usage: "ownership oracle request timeout in milliseconds",
	}
	blockIntervalFlag = cli.Uint64Flag{
		Name:  "block-interval",
		Value: chain.DefaultBlockInterval,
		Usage: "seconds per height",
	}
	genesisTimeFlag = cli.Uint64Flag{
		Name:  "genesis-time",
		Value: 0,
		Usage: "unix time of height 0",
	}
	dispatchQueueFlag = cli.IntFlag{
		Name:  "hooks-queue",
		Value: dispatch.DefaultOptions.QueueSize,
		Usage: "number of hook messages waiting for delivery before new ones are dropped",
	}
	dispatchWorkersFlag = cli.IntFlag{
		Name:  "hooks-workers",
		Value: dispatch.DefaultOptions.Workers,
		Usage: "number of concurrent hook deliveries",
	}
	disableHooksFlag = cli.BoolFlag{
		Name:  "disable-hooks",
		Usage: "do not deliver hook messages",
	}
	disableJournalFlag = cli.BoolFlag{
		Name:  "disable-journal",
		Usage: "do not journal receipts, disables the receipts api",
	}
	receiptsLimitFlag = cli.Uint64Flag{
		Name:  "api-receipts-limit",
		Value: 1000,
		Usage: "limit the number of receipts returned by one query",
	}
	subscriptionsBacklogFlag = cli.IntFlag{
		Name:  "api-subscriptions-backlog",
		Value: 64,
		Usage: "receipts buffered per websocket subscriber before it misses some",
	}
	healthWindowFlag = cli.Uint64Flag{
		Name:  "health-window",
		Value: 60,
		Usage: "seconds a journal failure keeps the service unhealthy",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format, the default when stderr is not a terminal",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address, empty to serve /metrics on the API address",
	}
)
