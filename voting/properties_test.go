// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/sbtvote/thor"
)

// TestRandomOperations drives random calls and checks after every block that
// the total is the sum of all powers and that voters and tokens pair uniquely.
func TestRandomOperations(t *testing.T) {
	forEachEngine(t, func(t *testing.T, env *testEnv) {
		rnd := rand.New(rand.NewSource(42))
		voters := make([]thor.Address, 8)
		for i := range voters {
			voters[i] = thor.BytesToAddress([]byte{byte(i + 1)})
			env.oracle.Mint(voters[i], fmt.Sprint(i))
		}

		type snapshot struct {
			height uint64
			total  uint64
			powers map[thor.Address]uint64
		}
		var snapshots []snapshot

		for round := 0; round < 60; round++ {
			for op := 0; op < 3; op++ {
				voter := voters[rnd.Intn(len(voters))]
				switch rnd.Intn(4) {
				case 0:
					_, _ = env.Register(env.ctx, voter)
				case 1:
					_, _ = env.Unregister(env.ctx, voter)
				case 2:
					_, err := env.SetVotingPower(env.ctx, creator, fmt.Sprint(rnd.Intn(len(voters))), uint256.NewInt(uint64(rnd.Intn(100))))
					require.NoError(t, err)
				case 3:
					// hand a token to another participant
					id := fmt.Sprint(rnd.Intn(len(voters)))
					env.oracle.Mint(voters[rnd.Intn(len(voters))], id)
					_, err := env.Sync(env.ctx, nobody, id)
					require.NoError(t, err)
				}
			}
			env.nextBlock()

			snap := snapshot{height: env.clock.Block().Height, powers: map[thor.Address]uint64{}}
			var sum uint64
			for _, voter := range voters {
				p, err := env.WeightAt(voter, nil)
				require.NoError(t, err)
				snap.powers[voter] = p.Power.Uint64()
				sum += p.Power.Uint64()
			}
			total, err := env.TotalAt(nil)
			require.NoError(t, err)
			snap.total = total.Power.Uint64()
			assert.Equal(t, sum, snap.total, "conservation at %d", snap.height)
			snapshots = append(snapshots, snap)

			assertUnique(t, env)
		}

		// history never changes once observed
		for _, snap := range snapshots {
			total, err := env.TotalAt(&snap.height)
			require.NoError(t, err)
			assert.Equal(t, snap.total, total.Power.Uint64())
			for voter, want := range snap.powers {
				p, err := env.WeightAt(voter, &snap.height)
				require.NoError(t, err)
				assert.Equal(t, want, p.Power.Uint64())
			}
		}
	})
}

func assertUnique(t *testing.T, env *testEnv) {
	t.Helper()
	s := env.readState()
	voters, err := env.ListVoters(nil, ptr(MaxListLimit))
	require.NoError(t, err)

	seen := map[string]thor.Address{}
	for _, voter := range voters {
		id, ok, err := s.registry.VoterToken(voter)
		require.NoError(t, err)
		require.True(t, ok)
		prev, dup := seen[id]
		require.False(t, dup, "token %s held by %v and %v", id, prev, voter)
		seen[id] = voter

		tok, err := s.registry.Token(id)
		require.NoError(t, err)
		require.NotNil(t, tok.Voter)
		assert.Equal(t, voter, *tok.Voter)
	}
}

func TestDelayedVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndRegister(t, other, "2")
	env.nextBlock()

	env.oracle.Mint(creator, "1")
	_, err := env.SetVotingPower(env.ctx, owner, "1", uint256.NewInt(5))
	require.NoError(t, err)
	_, err = env.Register(env.ctx, creator)
	require.NoError(t, err)
	_, err = env.Unregister(env.ctx, creator)
	require.NoError(t, err)

	env.assertPowers(t, creator, 1, 0)
	env.nextBlock()
	env.assertPowers(t, creator, 1, 0)
}

func TestTimeTravel(t *testing.T) {
	env := newTestEnv(t)
	env.oracle.Mint(creator, "1")
	_, err := env.SetVotingPower(env.ctx, owner, "1", uint256.NewInt(5))
	require.NoError(t, err)
	_, err = env.Register(env.ctx, creator)
	require.NoError(t, err)
	h := env.clock.Block().Height

	at := func(height uint64) (uint64, uint64) {
		p, err := env.WeightAt(creator, &height)
		require.NoError(t, err)
		total, err := env.TotalAt(&height)
		require.NoError(t, err)
		assert.Equal(t, height, p.Height)
		return p.Power.Uint64(), total.Power.Uint64()
	}

	// future heights see the latest state without freezing it
	p, total := at(h + 100)
	assert.Equal(t, uint64(5), p)
	assert.Equal(t, uint64(5), total)
	p, total = at(h)
	assert.Zero(t, p)
	assert.Zero(t, total)

	_, err = env.SetVotingPower(env.ctx, owner, "1", uint256.NewInt(8))
	require.NoError(t, err)
	p, _ = at(h + 100)
	assert.Equal(t, uint64(8), p)

	env.clock.Next(200)
	p, _ = at(h + 1)
	assert.Equal(t, uint64(8), p)
	p, _ = at(h + 100)
	assert.Equal(t, uint64(8), p)
}

func TestSyncIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.mintAndRegister(t, creator, "1")
	env.nextBlock()
	env.oracle.Burn("1")

	r, err := env.Sync(env.ctx, nobody, "1")
	require.NoError(t, err)
	assert.Equal(t, "true", r.Attributes["unregistered"])
	last, err := env.readState().lastHeight()
	require.NoError(t, err)

	env.nextBlock()
	r, err = env.Sync(env.ctx, nobody, "1")
	require.NoError(t, err)
	assert.Equal(t, "false", r.Attributes["unregistered"])
	after, err := env.readState().lastHeight()
	require.NoError(t, err)
	assert.Equal(t, last, after)
	env.assertPowers(t, creator, 0, 0)
}
