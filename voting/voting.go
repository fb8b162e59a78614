// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package voting tracks voting power derived from soul-bound token ownership.
//
// A participant registers the single token it holds, the governing body or the
// owner assigns token weights, and per-participant powers aggregate into a
// total. Powers and the total are kept with their history, so both can be read
// at any past height. Every mutating call is one atomic unit: it commits all of
// its effects or none.
package voting

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-version"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/cache"
	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/metrics"
	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/ownership"
	"github.com/vechain/sbtvote/registry"
	"github.com/vechain/sbtvote/reverts"
	"github.com/vechain/sbtvote/thor"
)

var (
	logger = log.WithContext("pkg", "voting")

	metricCalls  = metrics.LazyLoadCounterVec("voting_calls_count", []string{"action", "result"})
	metricHeight = metrics.LazyLoadGauge("voting_last_write_height")
	// hits per thousand final-height queries
	metricCacheHitRate = metrics.LazyLoadGauge("voting_query_cache_hit_permille")
)

// SetLogger replaces the package logger.
func SetLogger(l log.Logger) {
	logger = l
}

// DefaultQueryCacheSize is the number of historical query results kept.
const DefaultQueryCacheSize = 4096

// Voting is the voting power ledger.
type Voting struct {
	store  kv.Store
	clock  chain.Clock
	oracle ownership.Oracle

	mu        sync.Mutex // serializes mutating calls
	cache     *cache.LRU
	sealed    atomic.Uint64 // highest height whose queries may be cached
	observers []CommitObserver
}

// New creates the ledger over store. Call Instantiate once before using a new store.
func New(store kv.Store, clock chain.Clock, oracle ownership.Oracle) (*Voting, error) {
	c, err := cache.NewLRU(DefaultQueryCacheSize)
	if err != nil {
		return nil, err
	}
	v := &Voting{
		store:  store,
		clock:  clock,
		oracle: oracle,
		cache:  c,
	}
	last, err := newState(store).lastHeight()
	if err != nil {
		return nil, err
	}
	v.sealed.Store(last)
	return v, nil
}

// execute runs fn as one atomic unit at the current block. The transaction is
// committed when fn succeeds and wrote anything, discarded otherwise.
func (v *Voting) execute(action string, fn func(s *state, block chain.Block) (*Receipt, error)) (receipt *Receipt, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	block := v.clock.Block()
	defer func() {
		result := "ok"
		switch {
		case reverts.IsRevertErr(err):
			result = "revert"
		case err != nil:
			result = "error"
			logger.Error("call failed", "action", action, "height", block.Height, "err", err)
		}
		metricCalls().AddWithLabel(1, map[string]string{"action": action, "result": result})
	}()

	if block.Height < v.sealed.Load() {
		return nil, ErrHeightRegressed
	}

	inner, err := v.store.Transaction()
	if err != nil {
		return nil, err
	}
	tx := &trackedTx{Tx: inner}
	defer tx.Discard()

	s := newState(tx)
	last, err := s.lastHeight()
	if err != nil {
		return nil, err
	}
	if block.Height < last {
		return nil, ErrHeightRegressed
	}

	if receipt, err = fn(s, block); err != nil {
		return nil, err
	}
	receipt.Time = block.Time
	if !tx.dirty {
		return receipt, nil
	}
	if err := s.setMeta(heightKey, block.Height); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	v.seal(block.Height)
	metricHeight().Set(int64(block.Height))
	logger.Debug("executed", "action", action, "height", block.Height, "messages", len(receipt.Messages))

	for _, observe := range v.observers {
		observe(receipt)
	}
	return receipt, nil
}

// Observe registers fn to be told about committed receipts. Register
// observers before the ledger is shared.
func (v *Voting) Observe(fn CommitObserver) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, fn)
}

// seal raises the height below which writes are refused.
func (v *Voting) seal(height uint64) {
	for {
		cur := v.sealed.Load()
		if height <= cur || v.sealed.CompareAndSwap(cur, height) {
			return
		}
	}
}

// Instantiate initializes a new ledger governed by dao. The owner defaults to dao.
func (v *Voting) Instantiate(dao thor.Address, params InstantiateParams) (*Receipt, error) {
	return v.execute("instantiate", func(s *state, block chain.Block) (*Receipt, error) {
		if _, err := s.dao(); err == nil {
			return nil, ErrAlreadyInstantiated
		} else if !errors.Is(err, ErrNotInstantiated) {
			return nil, err
		}

		owner := dao
		if params.Owner != nil {
			owner = *params.Owner
		}
		if _, err := s.ownership.Initialize(owner); err != nil {
			return nil, err
		}
		if err := s.setMeta(infoKey, &Info{ContractName, ContractVersion}); err != nil {
			return nil, err
		}
		if err := s.setMeta(daoKey, dao); err != nil {
			return nil, err
		}
		if err := s.setMeta(nftKey, params.NftContract); err != nil {
			return nil, err
		}
		if err := s.total.Init(block.Height, new(uint256.Int)); err != nil {
			return nil, err
		}
		return newReceipt("instantiate", block.Height, "nft", params.NftContract, "owner", owner.String()), nil
	})
}

// Migrate bumps the schema marker when the stored version is older than ContractVersion.
func (v *Voting) Migrate() (*Receipt, error) {
	return v.execute("migrate", func(s *state, block chain.Block) (*Receipt, error) {
		info, err := s.info()
		if err != nil {
			return nil, err
		}
		stored, err := version.NewVersion(info.Version)
		if err != nil {
			return nil, errors.Wrap(err, "parse stored version")
		}
		if stored.LessThan(version.Must(version.NewVersion(ContractVersion))) {
			logger.Info("migrating schema", "from", info.Version, "to", ContractVersion)
			if err := s.setMeta(infoKey, &Info{ContractName, ContractVersion}); err != nil {
				return nil, err
			}
		}
		return newReceipt("migrate", block.Height), nil
	})
}

// tokenOf asks the oracle for the single token the participant holds.
func (v *Voting) tokenOf(ctx context.Context, voter thor.Address) (string, error) {
	ids, err := v.oracle.TokensOwnedBy(ctx, voter)
	if err != nil {
		return "", errors.Wrap(err, "query token ownership")
	}
	switch len(ids) {
	case 0:
		return "", ErrCannotRegister
	case 1:
		return ids[0], nil
	default:
		return "", ErrTooManyNfts
	}
}

// Register binds the caller's token to the caller. Its weight counts towards
// the caller's power and the total from the next height on.
func (v *Voting) Register(ctx context.Context, caller thor.Address) (*Receipt, error) {
	return v.execute("register", func(s *state, block chain.Block) (*Receipt, error) {
		if _, err := s.dao(); err != nil {
			return nil, err
		}
		if _, ok, err := s.registry.VoterToken(caller); err != nil {
			return nil, err
		} else if ok {
			return nil, ErrAlreadyRegistered
		}

		tokenID, err := v.tokenOf(ctx, caller)
		if err != nil {
			return nil, err
		}

		tok, err := s.registry.Token(tokenID)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			tok = &registry.Token{Weight: new(uint256.Int)}
		} else if tok.Voter != nil {
			return nil, ErrNftAlreadyRegistered
		}
		tok.Voter = &caller

		if err := s.registry.SetToken(tokenID, tok); err != nil {
			return nil, err
		}
		if err := s.registry.SetVoterToken(caller, tokenID); err != nil {
			return nil, err
		}
		if _, err := s.weights.Update(caller, block.Height, adder(tok.Weight)); err != nil {
			return nil, err
		}
		if _, err := s.total.Update(block.Height, adder(tok.Weight)); err != nil {
			return nil, err
		}

		msgs, err := s.hooks.StakeMessages(caller, tokenID)
		if err != nil {
			return nil, err
		}
		r := newReceipt("register", block.Height, "voter", caller.String(), "token_id", tokenID)
		r.Messages = msgs
		return r, nil
	})
}

// Unregister releases the caller's token. The caller's power drops to zero
// from the next height on.
func (v *Voting) Unregister(_ context.Context, caller thor.Address) (*Receipt, error) {
	return v.execute("unregister", func(s *state, block chain.Block) (*Receipt, error) {
		tokenID, ok, err := s.registry.VoterToken(caller)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotRegistered
		}
		msgs, err := unregister(s, block, caller, tokenID)
		if err != nil {
			return nil, err
		}
		r := newReceipt("unregister", block.Height, "voter", caller.String(), "token_id", tokenID)
		r.Messages = msgs
		return r, nil
	})
}

// unregister detaches voter from tokenID and withdraws its power.
func unregister(s *state, block chain.Block, voter thor.Address, tokenID string) ([]hooks.Message, error) {
	if err := s.registry.RemoveVoterToken(voter); err != nil {
		return nil, err
	}
	tok, err := s.registry.Token(tokenID)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, errors.Errorf("registered token %q not found", tokenID)
	}
	tok.Voter = nil
	if err := s.registry.SetToken(tokenID, tok); err != nil {
		return nil, err
	}

	power, ok, err := s.weights.Get(voter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("voting power of registered voter %v not found", voter)
	}
	if err := s.weights.Remove(voter, block.Height); err != nil {
		return nil, err
	}
	if _, err := s.total.Update(block.Height, subber(power)); err != nil {
		return nil, err
	}
	return s.hooks.UnstakeMessages(voter, []string{tokenID})
}

// SetVotingPower sets the weight of a token. When the token is registered the
// difference applies to its voter's power and the total.
func (v *Voting) SetVotingPower(_ context.Context, caller thor.Address, tokenID string, power *uint256.Int) (*Receipt, error) {
	return v.execute("set_voting_power", func(s *state, block chain.Block) (*Receipt, error) {
		if err := s.authorize(caller); err != nil {
			return nil, err
		}
		power := orZero(power).Clone()
		if power.Gt(maxWeight) {
			return nil, ErrOverflow
		}

		tok, err := s.registry.Token(tokenID)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			if err := s.registry.SetToken(tokenID, &registry.Token{Weight: power}); err != nil {
				return nil, err
			}
			return newReceipt("set_voting_power", block.Height,
				"token_id", tokenID, "voting_power", power.Dec()), nil
		}

		voter := "none"
		if tok.Voter != nil {
			voter = tok.Voter.String()
			update := adder(new(uint256.Int).Sub(power, tok.Weight))
			if power.Lt(tok.Weight) {
				update = subber(new(uint256.Int).Sub(tok.Weight, power))
			}
			if _, err := s.weights.Update(*tok.Voter, block.Height, func(prev *uint256.Int, ok bool) (*uint256.Int, error) {
				if !ok {
					return nil, errors.Errorf("voting power of registered voter %v not found", voter)
				}
				return update(prev, ok)
			}); err != nil {
				return nil, err
			}
			if _, err := s.total.Update(block.Height, update); err != nil {
				return nil, err
			}
		}

		tok.Weight = power
		if err := s.registry.SetToken(tokenID, tok); err != nil {
			return nil, err
		}
		return newReceipt("set_voting_power", block.Height,
			"token_id", tokenID, "voting_power", power.Dec(), "voter", voter), nil
	})
}

// Sync unregisters the voter of tokenID when the oracle no longer lists the
// token among the voter's tokens. Anyone may call it; otherwise it does nothing.
func (v *Voting) Sync(ctx context.Context, _ thor.Address, tokenID string) (*Receipt, error) {
	return v.execute("sync", func(s *state, block chain.Block) (*Receipt, error) {
		r := newReceipt("sync", block.Height, "token_id", tokenID, "unregistered", "false")

		tok, err := s.registry.Token(tokenID)
		if err != nil {
			return nil, err
		}
		if tok == nil || tok.Voter == nil {
			return r, nil
		}
		voter := *tok.Voter
		r.Attributes["voter"] = voter.String()

		ids, err := v.oracle.TokensOwnedBy(ctx, voter)
		if err != nil {
			return nil, errors.Wrap(err, "query token ownership")
		}
		if slices.Contains(ids, tokenID) {
			return r, nil
		}

		logger.Debug("token left its voter", "voter", voter, "token", tokenID)
		if r.Messages, err = unregister(s, block, voter, tokenID); err != nil {
			return nil, err
		}
		r.Attributes["unregistered"] = "true"
		return r, nil
	})
}

// AddHook subscribes endpoint to stake and unstake notifications.
func (v *Voting) AddHook(_ context.Context, caller thor.Address, endpoint string) (*Receipt, error) {
	return v.execute("add_hook", func(s *state, block chain.Block) (*Receipt, error) {
		if err := s.authorize(caller); err != nil {
			return nil, err
		}
		if err := s.hooks.Add(endpoint); err != nil {
			return nil, err
		}
		return newReceipt("add_hook", block.Height, "hook", endpoint), nil
	})
}

// RemoveHook unsubscribes endpoint.
func (v *Voting) RemoveHook(_ context.Context, caller thor.Address, endpoint string) (*Receipt, error) {
	return v.execute("remove_hook", func(s *state, block chain.Block) (*Receipt, error) {
		if err := s.authorize(caller); err != nil {
			return nil, err
		}
		if err := s.hooks.Remove(endpoint); err != nil {
			return nil, err
		}
		return newReceipt("remove_hook", block.Height, "hook", endpoint), nil
	})
}

// UpdateOwnership transfers, accepts or renounces ownership. Renouncing hands
// ownership back to the governing body, which may also transfer on behalf of
// the current owner.
func (v *Voting) UpdateOwnership(_ context.Context, caller thor.Address, action OwnershipAction) (*Receipt, error) {
	return v.execute("update_ownership", func(s *state, block chain.Block) (*Receipt, error) {
		dao, err := s.dao()
		if err != nil {
			return nil, err
		}

		var ow *ownable.Ownership
		switch action.Kind {
		case RenounceOwnership:
			if caller != dao {
				if err := s.ownership.AssertOwner(caller); err != nil {
					return nil, err
				}
			}
			if _, err := s.ownership.Initialize(dao); err != nil {
				return nil, err
			}
			return newReceipt("update_owner", block.Height, "new_owner", dao.String()), nil
		case TransferOwnership:
			sender := caller
			if caller == dao {
				if action.NewOwner == dao {
					return nil, ErrTransferToSelf
				}
				// the governing body acts as the current owner
				cur, err := s.ownership.Get()
				if err != nil {
					return nil, err
				}
				if cur.Owner != nil {
					sender = *cur.Owner
				}
			}
			ow, err = s.ownership.Transfer(sender, action.NewOwner, action.Expiry, block)
		case AcceptOwnership:
			ow, err = s.ownership.Accept(caller, block)
		default:
			return nil, ErrInvalidAction
		}
		if err != nil {
			return nil, err
		}

		r := newReceipt("update_ownership", block.Height)
		for k, val := range ow.Attributes() {
			r.Attributes[k] = val
		}
		return r, nil
	})
}
