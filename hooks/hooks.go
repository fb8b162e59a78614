// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package hooks keeps the ordered subscriber set and builds the stake and
// unstake notifications sent to it.
package hooks

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/reverts"
	"github.com/vechain/sbtvote/thor"
)

var (
	ErrHookAlreadyRegistered = reverts.New("Given address already registered as a hook")
	ErrHookNotRegistered     = reverts.New("Given address not registered as a hook")
	ErrInvalidEndpoint       = reverts.New("hook address must not be empty")
	ErrReadOnly              = errors.New("hooks: read-only")
)

var (
	headKey = []byte("head")
	tailKey = []byte("tail")
)

const (
	ptrBucket   = kv.Bucket("p")
	entryBucket = kv.Bucket("e")
)

type entry struct {
	Prev *string `rlp:"nil"`
	Next *string `rlp:"nil"`
}

// Hooks implements the subscriber set as a doubly linked list.
type Hooks struct {
	ptrs    kv.Reader
	entries kv.Reader
	// nil when read-only
	ptrsW    kv.Putter
	entriesW kv.Putter
}

// New creates the subscriber set in the given bucket.
func New(src kv.Reader, bucket kv.Bucket) *Hooks {
	if rw, ok := src.(kv.ReadWriter); ok {
		ptrs := (bucket + ptrBucket).NewReadWriter(rw)
		entries := (bucket + entryBucket).NewReadWriter(rw)
		return &Hooks{ptrs, entries, ptrs, entries}
	}
	return &Hooks{
		ptrs:    (bucket + ptrBucket).NewReader(src),
		entries: (bucket + entryBucket).NewReader(src),
	}
}

func (h *Hooks) getEntry(endpoint string) (*entry, bool, error) {
	raw, err := h.entries.Get([]byte(endpoint))
	if err != nil {
		if h.entries.IsNotFound(err) {
			return &entry{}, false, nil
		}
		return nil, false, errors.Wrap(err, "get hook entry")
	}
	var e entry
	if err := rlp.DecodeBytes(raw, &e); err != nil {
		return nil, false, errors.Wrap(err, "decode hook entry")
	}
	return &e, true, nil
}

func (h *Hooks) setEntry(endpoint string, e *entry) error {
	data, err := rlp.EncodeToBytes(e)
	if err != nil {
		return errors.Wrap(err, "encode hook entry")
	}
	return h.entriesW.Put([]byte(endpoint), data)
}

func (h *Hooks) getPtr(key []byte) (*string, error) {
	raw, err := h.ptrs.Get(key)
	if err != nil {
		if h.ptrs.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get hook pointer")
	}
	ptr := string(raw)
	return &ptr, nil
}

func (h *Hooks) setPtr(key []byte, ptr *string) error {
	if ptr == nil {
		return h.ptrsW.Delete(key)
	}
	return h.ptrsW.Put(key, []byte(*ptr))
}

// Has returns whether the endpoint is subscribed.
func (h *Hooks) Has(endpoint string) (bool, error) {
	return h.entries.Has([]byte(endpoint))
}

// Add appends the endpoint to the set.
func (h *Hooks) Add(endpoint string) error {
	if h.entriesW == nil {
		return ErrReadOnly
	}
	if endpoint == "" {
		return ErrInvalidEndpoint
	}
	e, listed, err := h.getEntry(endpoint)
	if err != nil {
		return err
	}
	if listed {
		return ErrHookAlreadyRegistered
	}

	tailPtr, err := h.getPtr(tailKey)
	if err != nil {
		return err
	}
	e.Prev = tailPtr

	if err := h.setPtr(tailKey, &endpoint); err != nil {
		return err
	}
	if tailPtr == nil {
		if err := h.setPtr(headKey, &endpoint); err != nil {
			return err
		}
	} else {
		tail, ok, err := h.getEntry(*tailPtr)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("hooks: dangling tail %q", *tailPtr)
		}
		tail.Next = &endpoint
		if err := h.setEntry(*tailPtr, tail); err != nil {
			return err
		}
	}
	return h.setEntry(endpoint, e)
}

// Remove unlinks the endpoint from the set.
func (h *Hooks) Remove(endpoint string) error {
	if h.entriesW == nil {
		return ErrReadOnly
	}
	e, listed, err := h.getEntry(endpoint)
	if err != nil {
		return err
	}
	if !listed {
		return ErrHookNotRegistered
	}

	if e.Prev == nil {
		if err := h.setPtr(headKey, e.Next); err != nil {
			return err
		}
	} else {
		prev, ok, err := h.getEntry(*e.Prev)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("hooks: dangling prev %q", *e.Prev)
		}
		prev.Next = e.Next
		if err := h.setEntry(*e.Prev, prev); err != nil {
			return err
		}
	}

	if e.Next == nil {
		if err := h.setPtr(tailKey, e.Prev); err != nil {
			return err
		}
	} else {
		next, ok, err := h.getEntry(*e.Next)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("hooks: dangling next %q", *e.Next)
		}
		next.Prev = e.Prev
		if err := h.setEntry(*e.Next, next); err != nil {
			return err
		}
	}
	return h.entriesW.Delete([]byte(endpoint))
}

// List returns all endpoints in insertion order.
func (h *Hooks) List() ([]string, error) {
	ptr, err := h.getPtr(headKey)
	if err != nil {
		return nil, err
	}
	var list []string
	for ptr != nil {
		e, ok, err := h.getEntry(*ptr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Errorf("hooks: dangling entry %q", *ptr)
		}
		list = append(list, *ptr)
		ptr = e.Next
	}
	return list, nil
}

// StakeMessages builds the notifications for a newly registered token.
func (h *Hooks) StakeMessages(voter thor.Address, tokenID string) ([]Message, error) {
	return h.messages(Event{Kind: Stake, Voter: voter, TokenIDs: []string{tokenID}})
}

// UnstakeMessages builds the notifications for tokens leaving the voter.
func (h *Hooks) UnstakeMessages(voter thor.Address, tokenIDs []string) ([]Message, error) {
	return h.messages(Event{Kind: Unstake, Voter: voter, TokenIDs: tokenIDs})
}

func (h *Hooks) messages(ev Event) ([]Message, error) {
	endpoints, err := h.List()
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(endpoints))
	for _, ep := range endpoints {
		msgs = append(msgs, Message{Endpoint: ep, Event: ev})
	}
	return msgs, nil
}
