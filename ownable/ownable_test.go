// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ownable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/lvldb"
	"github.com/vechain/sbtvote/thor"
)

var (
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
	carol = thor.BytesToAddress([]byte("carol"))
)

func newOwnable(t *testing.T) *Ownable {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tx, err := db.Transaction()
	require.NoError(t, err)
	t.Cleanup(tx.Discard)
	return New(tx, "o")
}

func TestTransferAndAccept(t *testing.T) {
	o := newOwnable(t)
	block := chain.Block{Height: 10, Time: 100}

	ow, err := o.Get()
	require.NoError(t, err)
	assert.Nil(t, ow.Owner)
	assert.Equal(t, ErrNoOwner, o.AssertOwner(alice))

	_, err = o.Initialize(alice)
	require.NoError(t, err)
	assert.NoError(t, o.AssertOwner(alice))
	assert.Equal(t, ErrNotOwner, o.AssertOwner(bob))

	_, err = o.Accept(bob, block)
	assert.Equal(t, ErrTransferNotFound, err)

	_, err = o.Transfer(bob, carol, nil, block)
	assert.Equal(t, ErrNotOwner, err)

	_, err = o.Transfer(alice, bob, &Expiration{AtHeight, 10}, block)
	assert.Equal(t, ErrTransferExpired, err)

	ow, err = o.Transfer(alice, bob, &Expiration{AtHeight, 12}, block)
	require.NoError(t, err)
	assert.Equal(t, &bob, ow.PendingOwner)

	_, err = o.Accept(carol, block)
	assert.Equal(t, ErrNotPendingOwner, err)

	_, err = o.Accept(bob, chain.Block{Height: 12, Time: 120})
	assert.Equal(t, ErrTransferExpired, err)

	ow, err = o.Accept(bob, chain.Block{Height: 11, Time: 110})
	require.NoError(t, err)
	assert.Equal(t, &Ownership{Owner: &bob}, ow)

	stored, err := o.Get()
	require.NoError(t, err)
	assert.Equal(t, ow, stored)
	assert.Equal(t, map[string]string{
		"action":         "update_ownership",
		"owner":          bob.String(),
		"pending_owner":  "none",
		"pending_expiry": "none",
	}, stored.Attributes())
}

func TestExpiration(t *testing.T) {
	b := chain.Block{Height: 5, Time: 50}
	assert.False(t, Expiration{}.IsExpired(b))
	assert.True(t, Expiration{AtHeight, 5}.IsExpired(b))
	assert.False(t, Expiration{AtHeight, 6}.IsExpired(b))
	assert.True(t, Expiration{AtTime, 50}.IsExpired(b))
	assert.False(t, Expiration{AtTime, 51}.IsExpired(b))

	for _, tt := range []struct {
		exp  Expiration
		json string
	}{
		{Expiration{}, `{"never":{}}`},
		{Expiration{AtHeight, 7}, `{"atHeight":7}`},
		{Expiration{AtTime, 9}, `{"atTime":9}`},
	} {
		data, err := json.Marshal(tt.exp)
		assert.NoError(t, err)
		assert.JSONEq(t, tt.json, string(data))

		var parsed Expiration
		assert.NoError(t, json.Unmarshal([]byte(tt.json), &parsed))
		assert.Equal(t, tt.exp, parsed)
	}

	var e Expiration
	assert.Error(t, json.Unmarshal([]byte(`{}`), &e))
	assert.Error(t, json.Unmarshal([]byte(`{"atHeight":1,"atTime":2}`), &e))
}

func TestCurrentDropsExpiredTransfer(t *testing.T) {
	o := newOwnable(t)
	_, err := o.Initialize(alice)
	require.NoError(t, err)

	b := chain.Block{Height: 10, Time: 100}
	_, err = o.Transfer(alice, bob, &Expiration{AtHeight, 12}, b)
	require.NoError(t, err)

	ow, err := o.Current(chain.Block{Height: 11, Time: 110})
	require.NoError(t, err)
	assert.Equal(t, &bob, ow.PendingOwner)
	assert.Equal(t, &Expiration{AtHeight, 12}, ow.PendingExpiry)

	ow, err = o.Current(chain.Block{Height: 12, Time: 120})
	require.NoError(t, err)
	assert.Equal(t, &alice, ow.Owner)
	assert.Nil(t, ow.PendingOwner)
	assert.Nil(t, ow.PendingExpiry)
	assert.Equal(t, "none", ow.Attributes()["pending_owner"])

	// a transfer without expiry stays pending
	_, err = o.Transfer(alice, carol, nil, b)
	require.NoError(t, err)
	ow, err = o.Current(chain.Block{Height: 1000, Time: 10000})
	require.NoError(t, err)
	assert.Equal(t, &carol, ow.PendingOwner)
}

func TestReadOnly(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	_, err = New(db, "o").Initialize(alice)
	assert.Equal(t, ErrReadOnly, err)
}
