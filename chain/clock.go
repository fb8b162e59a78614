// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain tells the height and time the ledger is executing at.
package chain

import (
	"sync"
	"time"
)

// DefaultBlockInterval is the time between two consecutive heights, in seconds.
const DefaultBlockInterval uint64 = 10

// Block is the host block a call executes in.
type Block struct {
	Height uint64 `json:"height"`
	Time   uint64 `json:"time"` // unix seconds
}

// Clock provides the current block.
type Clock interface {
	Block() Block
}

// IntervalClock derives heights from wall time: height 0 starts at genesis and
// a new height begins every interval seconds.
type IntervalClock struct {
	genesis  uint64
	interval uint64
	now      func() time.Time
}

// NewIntervalClock creates a clock. A zero interval falls back to DefaultBlockInterval.
func NewIntervalClock(genesis time.Time, interval uint64) *IntervalClock {
	if interval == 0 {
		interval = DefaultBlockInterval
	}
	return &IntervalClock{
		genesis:  uint64(genesis.Unix()),
		interval: interval,
		now:      time.Now,
	}
}

// Block returns the block containing the current wall time. Before genesis it
// stays at height 0.
func (c *IntervalClock) Block() Block {
	now := uint64(c.now().Unix())
	if now < c.genesis {
		return Block{Height: 0, Time: c.genesis}
	}
	height := (now - c.genesis) / c.interval
	return Block{Height: height, Time: c.genesis + height*c.interval}
}

// ManualClock is a clock driven by its owner, used by tests and tooling.
type ManualClock struct {
	mu       sync.Mutex
	block    Block
	interval uint64
}

// NewManualClock creates a clock at the given block. Next advances time by interval seconds.
func NewManualClock(block Block, interval uint64) *ManualClock {
	return &ManualClock{block: block, interval: interval}
}

// Block returns the current block.
func (c *ManualClock) Block() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// Set moves the clock to the given block.
func (c *ManualClock) Set(block Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = block
}

// Next advances the clock by n heights and returns the new block.
func (c *ManualClock) Next(n uint64) Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block.Height += n
	c.block.Time += n * c.interval
	return c.block
}
