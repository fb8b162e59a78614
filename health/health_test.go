// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/voting"
)

func TestHealth(t *testing.T) {
	clock := chain.NewManualClock(chain.Block{Height: 10}, 10)
	h := New(clock, time.Minute)
	now := time.Unix(1_000_000, 0)
	h.now = func() time.Time { return now }

	status := h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, uint64(10), status.Height)
	assert.Nil(t, status.LastCommit)

	h.Committed(&voting.Receipt{Action: "register", Height: 10})
	status = h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, &Commit{10, "register", now}, status.LastCommit)

	clock.Set(chain.Block{Height: 9})
	status = h.Status()
	assert.False(t, status.Healthy)
	assert.True(t, status.ClockBehind)

	clock.Set(chain.Block{Height: 11})
	h.JournalFailed(errors.New("disk full"))
	status = h.Status()
	assert.False(t, status.Healthy)
	assert.Equal(t, uint64(1), status.JournalFailures)
	assert.Equal(t, &now, status.LastJournalError)

	// failures age out
	now = now.Add(2 * time.Minute)
	status = h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, uint64(1), status.JournalFailures)
}
