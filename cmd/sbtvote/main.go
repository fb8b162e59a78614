// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// sbtvote serves the soul-bound token voting power ledger over HTTP.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/sbtvote/api"
	"github.com/vechain/sbtvote/api/ledger"
	"github.com/vechain/sbtvote/api/subscriptions"
	"github.com/vechain/sbtvote/dispatch"
	"github.com/vechain/sbtvote/health"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/logdb"
	"github.com/vechain/sbtvote/metrics"
	"github.com/vechain/sbtvote/voting"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")

	flags = []cli.Flag{
		configFlag,
		dataDirFlag,
		dbEngineFlag,
		dbCacheFlag,
		apiAddrFlag,
		apiCorsFlag,
		enableAPILogsFlag,
		apiSlowQueriesThresholdFlag,
		daoFlag,
		ownerFlag,
		nftContractFlag,
		oracleURLFlag,
		oracleTimeoutFlag,
		blockIntervalFlag,
		genesisTimeFlag,
		dispatchQueueFlag,
		dispatchWorkersFlag,
		disableHooksFlag,
		disableJournalFlag,
		receiptsLimitFlag,
		subscriptionsBacklogFlag,
		healthWindowFlag,
		verbosityFlag,
		jsonLogsFlag,
		enableMetricsFlag,
		metricsAddrFlag,
	}
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "sbtvote",
		Usage:     "Voting power ledger for soul-bound token holders",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags:     flags,
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if path := ctx.String(configFlag.Name); path != "" {
		values, err := loadConfig(path)
		if err != nil {
			return err
		}
		if err := applyConfig(ctx, flags, values); err != nil {
			return err
		}
	}
	if err := initLogger(ctx); err != nil {
		return err
	}
	defer func() { logger.Info("exited") }()

	// meters bind on first use, so the provider goes first
	metricsOn := ctx.Bool(enableMetricsFlag.Name)
	if metricsOn {
		metrics.InitializePrometheusMetrics()
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	store, dbPath, err := openStore(ctx, dataDir)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() { logger.Info("closing database..."); store.Close() }()

	clock, err := newClock(ctx)
	if err != nil {
		return err
	}
	v, err := voting.New(store, clock, newOracle(ctx))
	if err != nil {
		return err
	}

	h := health.New(clock, time.Duration(ctx.Uint64(healthWindowFlag.Name))*time.Second)
	var journal *logdb.LogDB
	journalPath := "disabled"
	if !ctx.Bool(disableJournalFlag.Name) {
		if journal, err = logdb.New(filepath.Join(dataDir, "receipts.db")); err != nil {
			return errors.Wrap(err, "open receipt journal")
		}
		defer func() { logger.Info("closing receipt journal..."); journal.Close() }()
		journalPath = journal.Path()
		v.Observe(journal.Observer(h.JournalFailed))
	}
	v.Observe(h.Committed)

	if err := instantiate(ctx, v); err != nil {
		return err
	}
	if _, err := v.Migrate(); err != nil {
		return errors.Wrap(err, "migrate")
	}

	var dispatcher ledger.Dispatcher
	if !ctx.Bool(disableHooksFlag.Name) {
		d := dispatch.New(dispatch.Options{
			Workers:   ctx.Int(dispatchWorkersFlag.Name),
			QueueSize: ctx.Int(dispatchQueueFlag.Name),
		})
		defer func() { logger.Info("stopping hook dispatcher..."); d.Close() }()
		dispatcher = d
	}

	origins := strings.Split(ctx.String(apiCorsFlag.Name), ",")
	for i, o := range origins {
		origins[i] = strings.TrimSpace(o)
	}
	subs := subscriptions.New(origins, ctx.Int(subscriptionsBacklogFlag.Name))
	defer subs.Close()
	v.Observe(subs.Observe)

	metricsAddr := ctx.String(metricsAddrFlag.Name)
	handler := api.New(v, dispatcher, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		EnableReqLogger:      ctx.Bool(enableAPILogsFlag.Name),
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		EnableMetrics:        metricsOn,
		ExposeMetrics:        metricsOn && metricsAddr == "",
		LogDB:                journal,
		ReceiptsLimit:        ctx.Uint64(receiptsLimitFlag.Name),
		Health:               h,
		Subscriptions:        subs,
	})

	group, gctx := errgroup.WithContext(handleExitSignal())
	apiURL, err := serve(gctx, group, ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	// hijacked websocket connections outlive the server shutdown
	group.Go(func() error {
		<-gctx.Done()
		subs.Close()
		return nil
	})
	metricsURL := ""
	if metricsOn && metricsAddr != "" {
		router := mux.NewRouter()
		router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
		if metricsURL, err = serve(gctx, group, metricsAddr, handlers.CompressHandler(router)); err != nil {
			return err
		}
		metricsURL += "metrics"
	}

	printStartupMessage(v, clock.Block().Height, dbPath, journalPath, apiURL, metricsURL)
	return group.Wait()
}

// instantiate sets up a new ledger from the flags, or warns about flags that
// disagree with an existing one.
func instantiate(ctx *cli.Context, v *voting.Voting) error {
	dao, err := parseAddress(ctx, daoFlag)
	if err != nil {
		return err
	}
	owner, err := parseAddress(ctx, ownerFlag)
	if err != nil {
		return err
	}

	existing, err := v.Dao()
	switch {
	case err == nil:
		if dao != nil && *dao != existing {
			logger.Warn("ignoring -dao, the ledger is governed by another address", "dao", existing)
		}
		return nil
	case !errors.Is(err, voting.ErrNotInstantiated):
		return err
	}

	if dao == nil {
		return errors.New("-" + daoFlag.Name + ": required on first start")
	}
	r, err := v.Instantiate(*dao, voting.InstantiateParams{
		Owner:       owner,
		NftContract: ctx.String(nftContractFlag.Name),
	})
	if err != nil {
		return errors.Wrap(err, "instantiate")
	}
	logger.Info("ledger instantiated", "dao", dao, "owner", r.Attributes["owner"], "height", r.Height)
	return nil
}

// serve runs an http server in group until ctx is done.
func serve(ctx context.Context, group *errgroup.Group, addr string, handler http.Handler) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "listen addr [%v]", addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	group.Go(func() error {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return "http://" + listener.Addr().String() + "/", nil
}

func printStartupMessage(v *voting.Voting, height uint64, dbPath, journalPath, apiURL, metricsURL string) {
	dao, _ := v.Dao()
	nft, _ := v.NftContract()
	info, _ := v.Info()
	ow, _ := v.Ownership()

	owner := "none"
	if ow != nil && ow.Owner != nil {
		owner = ow.Owner.String()
	}
	schema := "unknown"
	if info != nil {
		schema = info.Contract + "@" + info.Version
	}
	if metricsURL == "" {
		metricsURL = "disabled"
	}

	fmt.Printf(`Starting %v
    Schema       [ %v ]
    Dao          [ %v ]
    Owner        [ %v ]
    NFT contract [ %v ]
    Height       [ %v ]
    Database     [ %v ]
    Journal      [ %v ]
    API portal   [ %v ]
    Metrics      [ %v ]
`,
		"sbtvote "+fullVersion(),
		schema,
		dao,
		owner,
		nft,
		height,
		dbPath,
		journalPath,
		apiURL,
		metricsURL)
}
