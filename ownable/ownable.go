// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ownable implements a two step ownership transfer: the owner proposes
// a new owner, who must accept before the proposal expires.
package ownable

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/reverts"
	"github.com/vechain/sbtvote/thor"
)

var (
	ErrNotOwner         = reverts.NewUnauthorized("Caller is not the contract's current owner")
	ErrNoOwner          = reverts.NewUnauthorized("Contract ownership has been renounced")
	ErrTransferNotFound = reverts.New("Ownership transfer not found")
	ErrNotPendingOwner  = reverts.NewUnauthorized("Caller is not the contract's pending owner")
	ErrTransferExpired  = reverts.New("Ownership transfer expired")
	ErrReadOnly         = errors.New("ownable: read-only")
)

var ownershipKey = []byte("ownership")

// ExpiryKind selects how an Expiration is evaluated.
type ExpiryKind uint8

const (
	Never ExpiryKind = iota
	AtHeight
	AtTime
)

// Expiration bounds a pending ownership transfer.
type Expiration struct {
	Kind  ExpiryKind
	Value uint64 // height, or unix seconds
}

// IsExpired tells whether the expiration is reached at the given block.
func (e Expiration) IsExpired(b chain.Block) bool {
	switch e.Kind {
	case AtHeight:
		return b.Height >= e.Value
	case AtTime:
		return b.Time >= e.Value
	default:
		return false
	}
}

func (e Expiration) String() string {
	switch e.Kind {
	case AtHeight:
		return fmt.Sprintf("expiration height: %d", e.Value)
	case AtTime:
		return fmt.Sprintf("expiration time: %d", e.Value)
	default:
		return "expiration: never"
	}
}

type expirationJSON struct {
	AtHeight *uint64   `json:"atHeight,omitempty"`
	AtTime   *uint64   `json:"atTime,omitempty"`
	Never    *struct{} `json:"never,omitempty"`
}

// MarshalJSON renders {"atHeight":n}, {"atTime":n} or {"never":{}}.
func (e Expiration) MarshalJSON() ([]byte, error) {
	var j expirationJSON
	switch e.Kind {
	case AtHeight:
		j.AtHeight = &e.Value
	case AtTime:
		j.AtTime = &e.Value
	default:
		j.Never = &struct{}{}
	}
	return json.Marshal(&j)
}

// UnmarshalJSON parses exactly one of the forms produced by MarshalJSON.
func (e *Expiration) UnmarshalJSON(data []byte) error {
	var j expirationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	set := 0
	if j.AtHeight != nil {
		*e = Expiration{AtHeight, *j.AtHeight}
		set++
	}
	if j.AtTime != nil {
		*e = Expiration{AtTime, *j.AtTime}
		set++
	}
	if j.Never != nil {
		*e = Expiration{}
		set++
	}
	if set != 1 {
		return errors.New("expiration: exactly one of atHeight, atTime, never required")
	}
	return nil
}

// Ownership is the stored ownership state.
type Ownership struct {
	Owner         *thor.Address `json:"owner"         rlp:"nil"`
	PendingOwner  *thor.Address `json:"pendingOwner"  rlp:"nil"`
	PendingExpiry *Expiration   `json:"pendingExpiry" rlp:"nil"`
}

// Attributes describes the ownership the way receipts report it.
func (o *Ownership) Attributes() map[string]string {
	str := func(a *thor.Address) string {
		if a == nil {
			return "none"
		}
		return a.String()
	}
	expiry := "none"
	if o.PendingExpiry != nil {
		expiry = o.PendingExpiry.String()
	}
	return map[string]string{
		"action":         "update_ownership",
		"owner":          str(o.Owner),
		"pending_owner":  str(o.PendingOwner),
		"pending_expiry": expiry,
	}
}

// Ownable stores the ownership.
type Ownable struct {
	r kv.Getter
	w kv.Putter
}

// New creates an ownable in the given bucket. Writes are only possible when
// src is a kv.ReadWriter.
func New(src kv.Reader, bucket kv.Bucket) *Ownable {
	if rw, ok := src.(kv.ReadWriter); ok {
		brw := bucket.NewReadWriter(rw)
		return &Ownable{brw, brw}
	}
	return &Ownable{r: bucket.NewGetter(src)}
}

// Get returns the ownership, empty when never initialized.
func (o *Ownable) Get() (*Ownership, error) {
	raw, err := o.r.Get(ownershipKey)
	if err != nil {
		if o.r.IsNotFound(err) {
			return &Ownership{}, nil
		}
		return nil, errors.Wrap(err, "get ownership")
	}
	var ow Ownership
	if err := rlp.DecodeBytes(raw, &ow); err != nil {
		return nil, errors.Wrap(err, "decode ownership")
	}
	return &ow, nil
}

// Current returns the ownership as seen at block: a pending transfer that
// expired is no longer reported.
func (o *Ownable) Current(block chain.Block) (*Ownership, error) {
	ow, err := o.Get()
	if err != nil {
		return nil, err
	}
	if ow.PendingExpiry != nil && ow.PendingExpiry.IsExpired(block) {
		ow.PendingOwner = nil
		ow.PendingExpiry = nil
	}
	return ow, nil
}

func (o *Ownable) set(ow *Ownership) error {
	if o.w == nil {
		return ErrReadOnly
	}
	data, err := rlp.EncodeToBytes(ow)
	if err != nil {
		return errors.Wrap(err, "encode ownership")
	}
	return o.w.Put(ownershipKey, data)
}

// Initialize sets the owner and clears any pending transfer.
func (o *Ownable) Initialize(owner thor.Address) (*Ownership, error) {
	ow := &Ownership{Owner: &owner}
	return ow, o.set(ow)
}

// AssertOwner fails unless sender is the current owner.
func (o *Ownable) AssertOwner(sender thor.Address) error {
	ow, err := o.Get()
	if err != nil {
		return err
	}
	return ow.assertOwner(sender)
}

func (ow *Ownership) assertOwner(sender thor.Address) error {
	if ow.Owner == nil {
		return ErrNoOwner
	}
	if *ow.Owner != sender {
		return ErrNotOwner
	}
	return nil
}

// Transfer proposes newOwner. An earlier proposal is replaced.
func (o *Ownable) Transfer(sender, newOwner thor.Address, expiry *Expiration, block chain.Block) (*Ownership, error) {
	ow, err := o.Get()
	if err != nil {
		return nil, err
	}
	if err := ow.assertOwner(sender); err != nil {
		return nil, err
	}
	if expiry != nil && expiry.IsExpired(block) {
		return nil, ErrTransferExpired
	}
	ow.PendingOwner = &newOwner
	ow.PendingExpiry = expiry
	return ow, o.set(ow)
}

// Accept completes the pending transfer.
func (o *Ownable) Accept(sender thor.Address, block chain.Block) (*Ownership, error) {
	ow, err := o.Get()
	if err != nil {
		return nil, err
	}
	if ow.PendingOwner == nil {
		return nil, ErrTransferNotFound
	}
	if *ow.PendingOwner != sender {
		return nil, ErrNotPendingOwner
	}
	if ow.PendingExpiry != nil && ow.PendingExpiry.IsExpired(block) {
		return nil, ErrTransferExpired
	}
	ow = &Ownership{Owner: ow.PendingOwner}
	return ow, o.set(ow)
}
