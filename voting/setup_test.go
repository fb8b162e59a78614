// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/sbtvote/badgerdb"
	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/lvldb"
	"github.com/vechain/sbtvote/ownership"
	"github.com/vechain/sbtvote/thor"
)

var (
	creator = thor.BytesToAddress([]byte("creator"))
	owner   = thor.BytesToAddress([]byte("owner"))
	other   = thor.BytesToAddress([]byte("other"))
	nobody  = thor.BytesToAddress([]byte("nobody"))
)

type testEnv struct {
	*Voting
	clock  *chain.ManualClock
	oracle *ownership.Static
	ctx    context.Context
}

var engines = map[string]func(t *testing.T) kv.Store{
	"leveldb": func(t *testing.T) kv.Store {
		db, err := lvldb.NewMem()
		require.NoError(t, err)
		return db
	},
	"badger": func(t *testing.T) kv.Store {
		db, err := badgerdb.NewMem()
		require.NoError(t, err)
		return db
	},
}

// forEachEngine runs fn against every storage engine.
func forEachEngine(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	for name, newStore := range engines {
		t.Run(name, func(t *testing.T) {
			fn(t, setup(t, newStore(t)))
		})
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return setup(t, engines["leveldb"](t))
}

// setup instantiates a ledger governed by creator and owned by owner.
func setup(t *testing.T, store kv.Store) *testEnv {
	t.Cleanup(func() { store.Close() })

	clock := chain.NewManualClock(chain.Block{Height: 12345, Time: 1571797419}, 5)
	oracle := ownership.NewStatic()
	v, err := New(store, clock, oracle)
	require.NoError(t, err)

	_, err = v.Instantiate(creator, InstantiateParams{Owner: &owner, NftContract: "nft"})
	require.NoError(t, err)

	return &testEnv{v, clock, oracle, context.Background()}
}

func (e *testEnv) nextBlock() {
	e.clock.Next(1)
}

func (e *testEnv) mintAndRegister(t *testing.T, voter thor.Address, tokenID string) {
	t.Helper()
	e.oracle.Mint(voter, tokenID)
	_, err := e.SetVotingPower(e.ctx, creator, tokenID, uint256.NewInt(1))
	require.NoError(t, err)
	_, err = e.Register(e.ctx, voter)
	require.NoError(t, err)
}

// powers returns the total and the voter's power at the current height.
func (e *testEnv) powers(t *testing.T, voter thor.Address) (uint64, uint64) {
	t.Helper()
	total, err := e.TotalAt(nil)
	require.NoError(t, err)
	personal, err := e.WeightAt(voter, nil)
	require.NoError(t, err)
	return total.Power.Uint64(), personal.Power.Uint64()
}

func (e *testEnv) assertPowers(t *testing.T, voter thor.Address, total, personal uint64) {
	t.Helper()
	gotTotal, gotPersonal := e.powers(t, voter)
	assert.Equal(t, total, gotTotal, "total")
	assert.Equal(t, personal, gotPersonal, "personal")
}

func ptr[T any](v T) *T {
	return &v
}
