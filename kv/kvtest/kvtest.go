// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kvtest holds behaviour checks shared by every kv.Store engine.
package kvtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/sbtvote/kv"
)

// Run exercises the store returned by newStore. The store is closed by Run.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Run("CommitAndDiscard", func(t *testing.T) {
		st := newStore(t)
		defer st.Close()
		testCommitAndDiscard(t, st)
	})
	t.Run("Iterate", func(t *testing.T) {
		st := newStore(t)
		defer st.Close()
		testIterate(t, st)
	})
	t.Run("TxReadsOwnWrites", func(t *testing.T) {
		st := newStore(t)
		defer st.Close()
		testTxReadsOwnWrites(t, st)
	})
}

func put(t *testing.T, st kv.Store, kvs ...string) {
	tx, err := st.Transaction()
	require.NoError(t, err)
	for i := 0; i < len(kvs); i += 2 {
		require.NoError(t, tx.Put([]byte(kvs[i]), []byte(kvs[i+1])))
	}
	require.NoError(t, tx.Commit())
}

func keys(t *testing.T, r kv.Reader, rng kv.Range) []string {
	it := r.Iterate(rng)
	defer it.Release()
	var out []string
	for it.Next() {
		out = append(out, string(it.Key()))
	}
	require.NoError(t, it.Error())
	return out
}

func testCommitAndDiscard(t *testing.T, st kv.Store) {
	_, err := st.Get([]byte("k"))
	assert.True(t, st.IsNotFound(err))

	put(t, st, "k", "v")
	val, err := st.Get([]byte("k"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	tx, err := st.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k"), []byte("v2")))
	require.NoError(t, tx.Put([]byte("k2"), []byte("v2")))
	tx.Discard()

	val, err = st.Get([]byte("k"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	has, err := st.Has([]byte("k2"))
	assert.NoError(t, err)
	assert.False(t, has)

	tx, err = st.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Delete([]byte("k")))
	require.NoError(t, tx.Commit())

	has, err = st.Has([]byte("k"))
	assert.NoError(t, err)
	assert.False(t, has)
}

func testIterate(t *testing.T, st kv.Store) {
	put(t, st, "a", "1", "b1", "2", "b2", "3", "b3", "4", "c", "5")

	assert.Equal(t, []string{"b1", "b2", "b3"}, keys(t, st, kv.Range{Start: []byte("b"), Limit: []byte("c")}))
	assert.Equal(t, []string{"b3", "b2", "b1"}, keys(t, st, kv.Range{Start: []byte("b"), Limit: []byte("c"), Reverse: true}))
	assert.Equal(t, []string{"b2", "b1"}, keys(t, st, kv.Range{Start: []byte("b"), Limit: []byte("b3"), Reverse: true}))
	assert.Empty(t, keys(t, st, kv.Range{Start: []byte("d"), Limit: []byte("e")}))
	assert.Empty(t, keys(t, st, kv.Range{Start: []byte("d"), Limit: []byte("e"), Reverse: true}))

	bucket := kv.Bucket("b").NewReader(st)
	assert.Equal(t, []string{"3", "2", "1"}, keys(t, bucket, kv.Range{Reverse: true}))
}

func testTxReadsOwnWrites(t *testing.T, st kv.Store) {
	put(t, st, "x1", "1", "x3", "3")

	tx, err := st.Transaction()
	require.NoError(t, err)
	defer tx.Discard()

	require.NoError(t, tx.Put([]byte("x2"), []byte("2")))
	require.NoError(t, tx.Delete([]byte("x3")))

	val, err := tx.Get([]byte("x2"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("2"), val)

	_, err = tx.Get([]byte("x3"))
	assert.True(t, tx.IsNotFound(err))

	assert.Equal(t, []string{"x1", "x2"}, keys(t, tx, kv.Range{Start: []byte("x"), Limit: []byte("y")}))
	assert.Equal(t, []string{"x2", "x1"}, keys(t, tx, kv.Range{Start: []byte("x"), Limit: []byte("y"), Reverse: true}))
}
