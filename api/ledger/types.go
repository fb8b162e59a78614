// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/holiman/uint256"

	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/thor"
)

// Dispatcher delivers the messages of a receipt.
type Dispatcher interface {
	Dispatch(msgs []hooks.Message) int
}

// CallerRequest carries the identity of the caller. It is trusted as is.
type CallerRequest struct {
	Caller *thor.Address `json:"caller"`
}

type SetVotingPowerRequest struct {
	Caller  *thor.Address `json:"caller"`
	TokenID string        `json:"tokenId"`
	Power   *uint256.Int  `json:"power"`
}

type SyncRequest struct {
	Caller  *thor.Address `json:"caller"`
	TokenID string        `json:"tokenId"`
}

type HookRequest struct {
	Caller *thor.Address `json:"caller"`
	Addr   string        `json:"addr"`
}

type OwnershipRequest struct {
	Caller   *thor.Address       `json:"caller"`
	Action   string              `json:"action"`
	NewOwner *thor.Address       `json:"newOwner,omitempty"`
	Expiry   *ownable.Expiration `json:"expiry,omitempty"`
}

type RegisteredNft struct {
	TokenID *string `json:"tokenId"`
}

type Config struct {
	Dao         thor.Address `json:"dao"`
	NftContract string       `json:"nftContract"`
}
