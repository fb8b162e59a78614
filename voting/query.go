// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"github.com/holiman/uint256"

	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/thor"
)

type powerKey struct {
	voter  thor.Address
	height uint64
}

type totalKey uint64

// readState reads the committed state.
func (v *Voting) readState() *state {
	return newState(v.store)
}

// resolveHeight defaults height to the current one and tells whether results
// at that height are final.
func (v *Voting) resolveHeight(height *uint64) (uint64, bool) {
	cur := v.clock.Block().Height
	if height == nil {
		height = &cur
	}
	if *height > cur {
		return *height, false
	}
	// writes below cur are refused from now on, so results up to cur are final.
	// Sealing under the call lock waits out a write still in flight.
	if v.sealed.Load() < cur {
		v.mu.Lock()
		v.seal(cur)
		v.mu.Unlock()
	}
	return *height, true
}

func (v *Voting) cachedPower(key any, final bool, load func() (*uint256.Int, error)) (*uint256.Int, error) {
	if !final {
		return load()
	}
	val, err := v.cache.GetOrLoad(key, func(any) (any, error) { return load() })
	if err != nil {
		return nil, err
	}
	if smp := v.cache.Stats().Sample(); smp.Moved {
		metricCacheHitRate().Set(smp.Permille)
		logger.Debug("query cache stats", "hit", smp.Hits, "miss", smp.Misses)
	}
	return val.(*uint256.Int).Clone(), nil
}

// WeightAt returns the voter's power at height, the current height when nil.
func (v *Voting) WeightAt(voter thor.Address, height *uint64) (*PowerAtHeight, error) {
	h, final := v.resolveHeight(height)
	power, err := v.cachedPower(powerKey{voter, h}, final, func() (*uint256.Int, error) {
		return v.readState().weightAt(voter, h)
	})
	if err != nil {
		return nil, err
	}
	return &PowerAtHeight{Power: power, Height: h}, nil
}

// TotalAt returns the total power at height, the current height when nil.
func (v *Voting) TotalAt(height *uint64) (*PowerAtHeight, error) {
	h, final := v.resolveHeight(height)
	power, err := v.cachedPower(totalKey(h), final, func() (*uint256.Int, error) {
		return v.readState().totalAt(h)
	})
	if err != nil {
		return nil, err
	}
	return &PowerAtHeight{Power: power, Height: h}, nil
}

// RegisteredNft returns the token the voter registered, nil when none.
func (v *Voting) RegisteredNft(voter thor.Address) (*string, error) {
	id, ok, err := v.readState().registry.VoterToken(voter)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

// ListVoters pages through registered voters in ascending address order,
// starting after startAfter when set. The limit defaults to DefaultListLimit.
func (v *Voting) ListVoters(startAfter *thor.Address, limit *uint32) ([]thor.Address, error) {
	n := DefaultListLimit
	if limit != nil {
		n = *limit
	}
	if n > MaxListLimit {
		return nil, ErrInvalidLimit
	}
	return v.readState().registry.Voters(startAfter, n)
}

// Hooks lists the subscribed endpoints in subscription order.
func (v *Voting) Hooks() ([]string, error) {
	list, err := v.readState().hooks.List()
	if list == nil && err == nil {
		list = []string{}
	}
	return list, err
}

// Ownership returns the current ownership.
func (v *Voting) Ownership() (*ownable.Ownership, error) {
	return v.readState().ownership.Current(v.clock.Block())
}

// Dao returns the governing body.
func (v *Voting) Dao() (thor.Address, error) {
	return v.readState().dao()
}

// NftContract returns the token collection the ledger tracks.
func (v *Voting) NftContract() (string, error) {
	s := v.readState()
	if _, err := s.dao(); err != nil {
		return "", err
	}
	return s.nftContract()
}

// Info returns the schema marker.
func (v *Voting) Info() (*Info, error) {
	return v.readState().info()
}
