// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/checkpoint"
	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/registry"
	"github.com/vechain/sbtvote/thor"
)

const (
	metaBucket      = kv.Bucket("meta:")
	registryBucket  = kv.Bucket("reg:")
	weightsBucket   = kv.Bucket("vvp:")
	totalBucket     = kv.Bucket("tvp:")
	hooksBucket     = kv.Bucket("hooks:")
	ownershipBucket = kv.Bucket("own:")
)

var (
	daoKey    = []byte("dao")
	nftKey    = []byte("nft")
	infoKey   = []byte("info")
	heightKey = []byte("height")
)

// maxWeight is the largest weight, voting power and total representable.
var maxWeight = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// state groups the stores of the ledger over one kv source.
type state struct {
	meta      kv.Reader
	metaW     kv.Putter
	registry  *registry.Registry
	weights   *checkpoint.Map[thor.Address, *uint256.Int]
	total     *checkpoint.Item[*uint256.Int]
	hooks     *hooks.Hooks
	ownership *ownable.Ownable
}

func newState(src kv.Reader) *state {
	s := &state{
		meta:      metaBucket.NewReader(src),
		registry:  registry.New(src, registryBucket),
		weights:   checkpoint.NewMap[thor.Address, *uint256.Int](src, weightsBucket),
		total:     checkpoint.NewItem[*uint256.Int](src, totalBucket),
		hooks:     hooks.New(src, hooksBucket),
		ownership: ownable.New(src, ownershipBucket),
	}
	if rw, ok := src.(kv.ReadWriter); ok {
		s.metaW = metaBucket.NewPutter(rw)
	}
	return s
}

func (s *state) getMeta(key []byte, val any) (bool, error) {
	raw, err := s.meta.Get(key)
	if err != nil {
		if s.meta.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get %s", key)
	}
	return true, errors.Wrapf(rlp.DecodeBytes(raw, val), "decode %s", key)
}

func (s *state) setMeta(key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return s.metaW.Put(key, data)
}

// dao returns the governing body.
func (s *state) dao() (thor.Address, error) {
	var dao thor.Address
	ok, err := s.getMeta(daoKey, &dao)
	if err != nil {
		return thor.Address{}, err
	}
	if !ok {
		return thor.Address{}, ErrNotInstantiated
	}
	return dao, nil
}

func (s *state) nftContract() (string, error) {
	var nft string
	if _, err := s.getMeta(nftKey, &nft); err != nil {
		return "", err
	}
	return nft, nil
}

func (s *state) info() (*Info, error) {
	var info Info
	ok, err := s.getMeta(infoKey, &info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInstantiated
	}
	return &info, nil
}

// lastHeight returns the height of the last committed write.
func (s *state) lastHeight() (uint64, error) {
	var h uint64
	_, err := s.getMeta(heightKey, &h)
	return h, err
}

// authorize passes the governing body and the owner.
func (s *state) authorize(caller thor.Address) error {
	dao, err := s.dao()
	if err != nil {
		return err
	}
	if caller == dao {
		return nil
	}
	return s.ownership.AssertOwner(caller)
}

// weightAt returns the voter's power at height, zero when unregistered.
func (s *state) weightAt(voter thor.Address, height uint64) (*uint256.Int, error) {
	w, _, err := s.weights.GetAt(voter, height)
	return orZero(w), err
}

func (s *state) totalAt(height uint64) (*uint256.Int, error) {
	w, _, err := s.total.GetAt(height)
	return orZero(w), err
}

func orZero(w *uint256.Int) *uint256.Int {
	if w == nil {
		return new(uint256.Int)
	}
	return w
}

// adder returns an update adding delta, bounded to 128 bits.
func adder(delta *uint256.Int) func(*uint256.Int, bool) (*uint256.Int, error) {
	return func(prev *uint256.Int, _ bool) (*uint256.Int, error) {
		sum, overflow := new(uint256.Int).AddOverflow(orZero(prev), delta)
		if overflow || sum.Gt(maxWeight) {
			return nil, ErrOverflow
		}
		return sum, nil
	}
}

// subber returns an update subtracting delta, failing below zero.
func subber(delta *uint256.Int) func(*uint256.Int, bool) (*uint256.Int, error) {
	return func(prev *uint256.Int, _ bool) (*uint256.Int, error) {
		prev = orZero(prev)
		if prev.Lt(delta) {
			return nil, ErrUnderflow
		}
		return new(uint256.Int).Sub(prev, delta), nil
	}
}

// trackedTx records whether anything was written through it.
type trackedTx struct {
	kv.Tx
	dirty bool
}

func (t *trackedTx) Put(key, val []byte) error {
	t.dirty = true
	return t.Tx.Put(key, val)
}

func (t *trackedTx) Delete(key []byte) error {
	t.dirty = true
	return t.Tx.Delete(key)
}
