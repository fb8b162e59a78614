// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts cache lookups.
type Stats struct {
	hits, misses atomic.Int64
	permille     atomic.Int64 // hit rate at the last Sample
}

// Sample is a snapshot of the lookup counters.
type Sample struct {
	Hits, Misses int64
	Permille     int64 // hits per thousand lookups
	Moved        bool  // Permille differs from the previous sample
}

// Hit records a hit.
func (s *Stats) Hit() { s.hits.Add(1) }

// Miss records a miss.
func (s *Stats) Miss() { s.misses.Add(1) }

// Sample snapshots the counters.
func (s *Stats) Sample() Sample {
	smp := Sample{Hits: s.hits.Load(), Misses: s.misses.Load()}
	if total := smp.Hits + smp.Misses; total > 0 {
		smp.Permille = smp.Hits * 1000 / total
	}
	smp.Moved = s.permille.Swap(smp.Permille) != smp.Permille
	return smp
}
