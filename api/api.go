// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/sbtvote/api/ledger"
	"github.com/vechain/sbtvote/api/middleware"
	"github.com/vechain/sbtvote/api/subscriptions"
	"github.com/vechain/sbtvote/health"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/logdb"
	"github.com/vechain/sbtvote/metrics"
	"github.com/vechain/sbtvote/voting"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	EnableReqLogger      bool
	SlowQueriesThreshold time.Duration
	EnableMetrics        bool // records request metrics
	ExposeMetrics        bool // serves /metrics
	LogDB                *logdb.LogDB
	ReceiptsLimit        uint64
	Health               *health.Health
	Subscriptions        *subscriptions.Subscriptions
}

// New returns the api handler. dispatcher may be nil. The receipts, health and
// subscription routes are served when their sources are set.
func New(v *voting.Voting, dispatcher ledger.Dispatcher, opts Options) http.Handler {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	ledger.New(v, dispatcher, opts.LogDB, opts.ReceiptsLimit).
		Mount(router, "/voting")
	if opts.Subscriptions != nil {
		opts.Subscriptions.Mount(router, "/voting/subscriptions")
	}
	if opts.Health != nil {
		mountHealth(router, opts.Health)
	}

	if opts.ExposeMetrics {
		router.Path("/metrics").Methods(http.MethodGet).Handler(metrics.HTTPHandler())
	}
	if opts.EnableMetrics {
		router.Use(middleware.MetricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	return middleware.RequestLoggerMiddleware(logger, opts.EnableReqLogger, opts.SlowQueriesThreshold)(handler)
}
