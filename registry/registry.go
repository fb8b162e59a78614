// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry keeps token records and the participant to token mapping.
// It performs no validation, the voting state machine owns all invariants.
package registry

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/thor"
)

const (
	tokenBucket = kv.Bucket("t")
	voterBucket = kv.Bucket("v")
)

// Token is the record of a soul-bound token.
type Token struct {
	Voter  *thor.Address `rlp:"nil"` // set iff a participant registered the token
	Weight *uint256.Int
}

// ErrReadOnly is returned when writing through a registry opened on a reader.
var ErrReadOnly = errors.New("registry: read-only")

// Registry implements the token and voter tables.
type Registry struct {
	tokens kv.Reader
	voters kv.Reader
	// nil when read-only
	tokensW kv.Putter
	votersW kv.Putter
}

// New creates a registry in the given bucket. Writes are only possible when src
// is a kv.ReadWriter.
func New(src kv.Reader, bucket kv.Bucket) *Registry {
	if rw, ok := src.(kv.ReadWriter); ok {
		tokens := (bucket + tokenBucket).NewReadWriter(rw)
		voters := (bucket + voterBucket).NewReadWriter(rw)
		return &Registry{tokens, voters, tokens, voters}
	}
	return &Registry{
		tokens: (bucket + tokenBucket).NewReader(src),
		voters: (bucket + voterBucket).NewReader(src),
	}
}

func writer(w kv.Putter) (kv.Putter, error) {
	if w == nil {
		return nil, ErrReadOnly
	}
	return w, nil
}

// Token returns the record of the token, nil when absent.
func (r *Registry) Token(id string) (*Token, error) {
	raw, err := r.tokens.Get([]byte(id))
	if err != nil {
		if r.tokens.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get token")
	}
	var tok Token
	if err := rlp.DecodeBytes(raw, &tok); err != nil {
		return nil, errors.Wrap(err, "decode token")
	}
	if tok.Weight == nil {
		tok.Weight = new(uint256.Int)
	}
	return &tok, nil
}

// SetToken stores the record of the token.
func (r *Registry) SetToken(id string, tok *Token) error {
	w, err := writer(r.tokensW)
	if err != nil {
		return err
	}
	data, err := rlp.EncodeToBytes(tok)
	if err != nil {
		return errors.Wrap(err, "encode token")
	}
	return w.Put([]byte(id), data)
}

// VoterToken returns the token registered by the voter.
func (r *Registry) VoterToken(voter thor.Address) (string, bool, error) {
	raw, err := r.voters.Get(voter.Bytes())
	if err != nil {
		if r.voters.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "get voter token")
	}
	return string(raw), true, nil
}

// SetVoterToken maps the voter to the token.
func (r *Registry) SetVoterToken(voter thor.Address, id string) error {
	w, err := writer(r.votersW)
	if err != nil {
		return err
	}
	return w.Put(voter.Bytes(), []byte(id))
}

// RemoveVoterToken drops the voter's mapping.
func (r *Registry) RemoveVoterToken(voter thor.Address) error {
	w, err := writer(r.votersW)
	if err != nil {
		return err
	}
	return w.Delete(voter.Bytes())
}

// Voters lists registered voters in ascending address order, starting after
// the given address when set.
func (r *Registry) Voters(startAfter *thor.Address, limit uint32) ([]thor.Address, error) {
	var rng kv.Range
	if startAfter != nil {
		rng.Start = append(startAfter.Bytes(), 0)
	}
	it := r.voters.Iterate(rng)
	defer it.Release()

	voters := make([]thor.Address, 0, limit)
	for uint32(len(voters)) < limit && it.Next() {
		voters = append(voters, thor.BytesToAddress(it.Key()))
	}
	return voters, errors.Wrap(it.Error(), "iterate voters")
}
