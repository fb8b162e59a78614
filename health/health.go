// Copyright (c) 2024 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"

	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/voting"
)

type Commit struct {
	Height    uint64    `json:"height"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type Status struct {
	Healthy          bool       `json:"healthy"`
	Height           uint64     `json:"height"`
	LastCommit       *Commit    `json:"lastCommit"`
	ClockBehind      bool       `json:"clockBehind"`
	JournalFailures  uint64     `json:"journalFailures"`
	LastJournalError *time.Time `json:"lastJournalError"`
}

// Health tracks ledger commits. It is unhealthy while the clock is behind the
// last committed height, or when journaling failed within the recent window.
type Health struct {
	lock   sync.RWMutex
	clock  chain.Clock
	window time.Duration
	now    func() time.Time

	lastCommit       *Commit
	journalFailures  uint64
	lastJournalError time.Time
}

func New(clock chain.Clock, window time.Duration) *Health {
	return &Health{clock: clock, window: window, now: time.Now}
}

// Committed is a commit observer.
func (h *Health) Committed(r *voting.Receipt) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastCommit = &Commit{r.Height, r.Action, h.now()}
}

// JournalFailed records a failure to journal a receipt.
func (h *Health) JournalFailed(error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.journalFailures++
	h.lastJournalError = h.now()
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	status := &Status{
		Height:          h.clock.Block().Height,
		JournalFailures: h.journalFailures,
	}
	if h.lastCommit != nil {
		c := *h.lastCommit
		status.LastCommit = &c
		status.ClockBehind = status.Height < c.Height
	}
	recentFailure := false
	if h.journalFailures > 0 {
		t := h.lastJournalError
		status.LastJournalError = &t
		recentFailure = h.now().Sub(t) < h.window
	}
	status.Healthy = !status.ClockBehind && !recentFailure
	return status
}
