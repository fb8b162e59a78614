// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/reverts"
)

var (
	ErrAlreadyRegistered    = reverts.New("You are already registered to vote")
	ErrNotRegistered        = reverts.New("You have not yet registered to vote")
	ErrCannotRegister       = reverts.New("You must own an NFT before registering to vote")
	ErrTooManyNfts          = reverts.New("You should not be able to own more than one NFT at a time")
	ErrNftAlreadyRegistered = reverts.New("Your NFT was somehow registered by another voter")
	ErrTransferToSelf       = reverts.New("Cannot transfer ownership to the DAO, renounce ownership instead")
	ErrOverflow             = reverts.New("Voting power overflow")
	ErrUnderflow            = reverts.New("Voting power underflow")
	ErrHeightRegressed      = reverts.New("Block height is lower than the last executed height")
	ErrInvalidLimit         = reverts.New("Limit exceeds the maximum page size")
	ErrInvalidAction        = reverts.New("Unknown ownership action")
	ErrAlreadyInstantiated  = reverts.New("Contract is already instantiated")
	ErrNotInstantiated      = reverts.New("Contract is not instantiated")

	ErrNotOwner              = ownable.ErrNotOwner
	ErrTransferNotFound      = ownable.ErrTransferNotFound
	ErrNotPendingOwner       = ownable.ErrNotPendingOwner
	ErrTransferExpired       = ownable.ErrTransferExpired
	ErrHookAlreadyRegistered = hooks.ErrHookAlreadyRegistered
	ErrHookNotRegistered     = hooks.ErrHookNotRegistered
)
