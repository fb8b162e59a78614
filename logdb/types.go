// Copyright (c) 2018 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/thor"
)

// Entry is a journaled receipt.
type Entry struct {
	Seq        uint64            `json:"seq"`
	Height     uint64            `json:"height"`
	Time       uint64            `json:"time"`
	Action     string            `json:"action"`
	Voter      *thor.Address     `json:"voter"`   // the voter the receipt is about, if any
	TokenID    *string           `json:"tokenId"` // the token the receipt is about, if any
	Attributes map[string]string `json:"attributes"`
	Messages   []hooks.Message   `json:"messages"`
}

type RangeType string

const (
	Height RangeType = "height"
	Time   RangeType = "time"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

type Range struct {
	Unit RangeType
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects entries. Nil criteria match everything.
type Filter struct {
	Action  string
	Voter   *thor.Address
	TokenID *string
	Range   *Range
	Options *Options
	Order   Order // default asc
}
