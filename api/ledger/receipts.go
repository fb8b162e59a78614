// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math"
	"net/http"

	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/api/utils"
	"github.com/vechain/sbtvote/logdb"
	"github.com/vechain/sbtvote/thor"
)

// DefaultReceiptsLimit bounds a receipts page.
const DefaultReceiptsLimit = 1000

// parseReceiptsFilter reads action, voter, tokenId, unit, from, to, order,
// offset and limit from the query.
func (l *Ledger) parseReceiptsFilter(req *http.Request) (*logdb.Filter, error) {
	query := req.URL.Query()
	filter := &logdb.Filter{
		Action: query.Get("action"),
		Order:  logdb.Order(query.Get("order")),
	}
	switch filter.Order {
	case "", logdb.ASC, logdb.DESC:
	default:
		return nil, utils.BadRequest(errors.Errorf("order: unsupported %q", filter.Order))
	}

	if s := query.Get("voter"); s != "" {
		addr, err := thor.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "voter"))
		}
		filter.Voter = &addr
	}
	if s := query.Get("tokenId"); s != "" {
		filter.TokenID = &s
	}

	from, err := utils.StringToUint64(query.Get("from"))
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "from"))
	}
	to, err := utils.StringToUint64(query.Get("to"))
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "to"))
	}
	if from != nil || to != nil {
		unit := logdb.RangeType(query.Get("unit"))
		switch unit {
		case "":
			unit = logdb.Height
		case logdb.Height, logdb.Time:
		default:
			return nil, utils.BadRequest(errors.Errorf("unit: unsupported %q", unit))
		}
		rng := &logdb.Range{Unit: unit, To: math.MaxInt64}
		if from != nil {
			if *from > math.MaxInt64 {
				return nil, utils.BadRequest(errors.New("from: out of range"))
			}
			rng.From = *from
		}
		if to != nil && *to < math.MaxInt64 {
			if *to < rng.From {
				return nil, utils.BadRequest(errors.New("to: less than from"))
			}
			rng.To = *to
		}
		filter.Range = rng
	}

	offset, err := utils.StringToUint64(query.Get("offset"))
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "offset"))
	}
	limit, err := utils.StringToUint64(query.Get("limit"))
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "limit"))
	}
	filter.Options = &logdb.Options{Limit: l.limit}
	if offset != nil {
		if *offset > math.MaxInt64 {
			return nil, utils.BadRequest(errors.New("offset: out of range"))
		}
		filter.Options.Offset = *offset
	}
	if limit != nil {
		if *limit > l.limit {
			return nil, utils.BadRequest(errors.Errorf("limit: exceeds %d", l.limit))
		}
		filter.Options.Limit = *limit
	}
	return filter, nil
}

func (l *Ledger) handleFilterReceipts(w http.ResponseWriter, req *http.Request) error {
	filter, err := l.parseReceiptsFilter(req)
	if err != nil {
		return err
	}
	entries, err := l.logDB.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, entries)
}
