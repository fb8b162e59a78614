// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSample(t *testing.T) {
	var s Stats
	assert.Equal(t, Sample{}, s.Sample())

	s.Hit()
	s.Miss()
	assert.Equal(t, Sample{Hits: 1, Misses: 1, Permille: 500, Moved: true}, s.Sample())
	assert.False(t, s.Sample().Moved)

	s.Hit()
	s.Hit()
	smp := s.Sample()
	assert.Equal(t, int64(750), smp.Permille)
	assert.True(t, smp.Moved)
}
