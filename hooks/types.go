// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package hooks

import "github.com/vechain/sbtvote/thor"

// EventKind tells subscribers whether tokens joined or left a voter.
type EventKind string

const (
	Stake   EventKind = "stake"
	Unstake EventKind = "unstake"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Kind     EventKind    `json:"kind"`
	Voter    thor.Address `json:"voter"`
	TokenIDs []string     `json:"tokenIds"`
}

// Message is one notification addressed to one subscriber.
type Message struct {
	Endpoint string `json:"endpoint"`
	Event    Event  `json:"event"`
}
