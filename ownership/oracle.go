// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ownership answers which soul-bound tokens a participant holds.
package ownership

import (
	"context"
	"slices"
	"sync"

	"github.com/vechain/sbtvote/thor"
)

//go:generate mockgen -source=oracle.go -destination=mocks/oracle.go -package=mocks -mock_names=Oracle=MockOracle

// Oracle lists the tokens currently owned by a participant.
type Oracle interface {
	TokensOwnedBy(ctx context.Context, owner thor.Address) ([]string, error)
}

// Static is an in-memory oracle.
type Static struct {
	mu     sync.RWMutex
	tokens map[thor.Address][]string
}

var _ Oracle = (*Static)(nil)

// NewStatic creates an empty oracle.
func NewStatic() *Static {
	return &Static{tokens: make(map[thor.Address][]string)}
}

// TokensOwnedBy implements Oracle.
func (s *Static) TokensOwnedBy(_ context.Context, owner thor.Address) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tokens[owner]), nil
}

// Mint gives the token to owner, taking it from any previous owner.
func (s *Static) Mint(owner thor.Address, tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.burn(tokenID)
	s.tokens[owner] = append(s.tokens[owner], tokenID)
}

// Burn destroys the token.
func (s *Static) Burn(tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.burn(tokenID)
}

func (s *Static) burn(tokenID string) {
	for owner, ids := range s.tokens {
		if i := slices.Index(ids, tokenID); i >= 0 {
			ids = slices.Delete(ids, i, i+1)
			if len(ids) == 0 {
				delete(s.tokens, owner)
			} else {
				s.tokens[owner] = ids
			}
			return
		}
	}
}
