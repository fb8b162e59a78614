// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"github.com/holiman/uint256"

	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/thor"
)

const (
	// ContractName identifies the ledger in its schema marker.
	ContractName = "sbtvote:dao-voting-sbt"
	// ContractVersion is the current schema version.
	ContractVersion = "1.0.0"

	// DefaultListLimit is the page size of ListVoters when none is given.
	DefaultListLimit uint32 = 30
	// MaxListLimit bounds the page size of ListVoters.
	MaxListLimit uint32 = 1000
)

// Receipt is the outcome of a mutating call.
type Receipt struct {
	Action     string            `json:"action"`
	Height     uint64            `json:"height"`
	Time       uint64            `json:"time"`
	Attributes map[string]string `json:"attributes"`
	// Messages are the notifications to deliver, one per subscriber.
	Messages []hooks.Message `json:"messages"`
}

// CommitObserver is told about every committed receipt, in commit order.
// It runs while mutating calls are blocked and must not call back into the ledger.
type CommitObserver func(r *Receipt)

func newReceipt(action string, height uint64, attrs ...string) *Receipt {
	r := &Receipt{
		Action:     action,
		Height:     height,
		Attributes: map[string]string{"action": action},
		Messages:   []hooks.Message{},
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		r.Attributes[attrs[i]] = attrs[i+1]
	}
	return r
}

// PowerAtHeight is a voting power observed at a height.
type PowerAtHeight struct {
	Power  *uint256.Int `json:"power"`
	Height uint64       `json:"height"`
}

// Info is the schema marker.
type Info struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// InstantiateParams configures a new ledger.
type InstantiateParams struct {
	// Owner defaults to the governing body.
	Owner *thor.Address
	// NftContract names the token collection the oracle answers for.
	NftContract string
}

// ActionKind selects an ownership update.
type ActionKind string

const (
	TransferOwnership ActionKind = "transfer"
	AcceptOwnership   ActionKind = "accept"
	RenounceOwnership ActionKind = "renounce"
)

// OwnershipAction is an ownership update request.
type OwnershipAction struct {
	Kind     ActionKind
	NewOwner thor.Address        // transfer only
	Expiry   *ownable.Expiration // transfer only, nil never expires
}
