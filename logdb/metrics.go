// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"strings"

	"github.com/vechain/sbtvote/metrics"
)

var (
	metricRecords         = metrics.LazyLoadCounterVec("logdb_records_count", []string{"action"})
	metricQueryParameters = metrics.LazyLoadCounterVec("logdb_query_parameters", []string{"parameters"})
	metricQueryOrder      = metrics.LazyLoadCounterVec("logdb_query_order", []string{"order"})
	metricLimitBucket     = metrics.LazyLoadHistogramVec("logdb_query_limit_bucket", []string{"type"}, []int64{
		0, 5, 10, 25, 50, 100, 250, 500, 1000,
	})
)

func metricsHandleFilter(filter *Filter) {
	params := make([]string, 0, 4)
	if filter.Action != "" {
		params = append(params, "action")
	}
	if filter.Voter != nil {
		params = append(params, "voter")
	}
	if filter.TokenID != nil {
		params = append(params, "tokenId")
	}
	if filter.Range != nil {
		params = append(params, string(filter.Range.Unit))
	}
	metricQueryParameters().AddWithLabel(1, map[string]string{"parameters": strings.Join(params, ",")})

	order := string(ASC)
	if filter.Order == DESC {
		order = string(DESC)
	}
	metricQueryOrder().AddWithLabel(1, map[string]string{"order": order})

	if filter.Options != nil {
		limit := filter.Options.Limit
		if limit > 1000 {
			limit = 1001
		}
		metricLimitBucket().ObserveWithLabels(int64(limit), map[string]string{"type": "receipt"})
	}
}
