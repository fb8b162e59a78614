// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vechain/sbtvote/metrics"
)

var (
	metricReqCount    = metrics.LazyLoadCounterVec("api_request_count", []string{"path", "code", "method"})
	metricReqDuration = metrics.LazyLoadHistogramVec("api_duration_ms", []string{"path", "code", "method"}, metrics.BucketHTTPReqs)
)

// MetricsMiddleware counts requests and records their duration by route.
// Requests matching no route are recorded under "unknown".
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := "unknown"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		sw := newStatusWriter(w)
		start := time.Now()
		next.ServeHTTP(sw, r)

		labels := map[string]string{"path": path, "code": strconv.Itoa(sw.status), "method": r.Method}
		metricReqCount().AddWithLabel(1, labels)
		metricReqDuration().ObserveWithLabels(time.Since(start).Milliseconds(), labels)
	})
}
