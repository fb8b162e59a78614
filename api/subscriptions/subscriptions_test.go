// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/lvldb"
	"github.com/vechain/sbtvote/ownership"
	"github.com/vechain/sbtvote/thor"
	"github.com/vechain/sbtvote/voting"
)

var (
	dao   = thor.BytesToAddress([]byte("dao"))
	alice = thor.BytesToAddress([]byte("alice"))
)

type testEnv struct {
	*httptest.Server
	subs   *Subscriptions
	voting *voting.Voting
	oracle *ownership.Static
}

func newTestEnv(t *testing.T, origins ...string) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	oracle := ownership.NewStatic()
	v, err := voting.New(db, chain.NewManualClock(chain.Block{Height: 10, Time: 100}, 10), oracle)
	require.NoError(t, err)

	subs := New(origins, 0)
	v.Observe(subs.Observe)

	router := mux.NewRouter()
	subs.Mount(router, "/voting/subscriptions")
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		subs.Close()
		ts.Close()
	})
	return &testEnv{ts, subs, v, oracle}
}

func (env *testEnv) dial(t *testing.T, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	u := url.URL{
		Scheme:   "ws",
		Host:     strings.TrimPrefix(env.URL, "http://"),
		Path:     "/voting/subscriptions/receipts",
		RawQuery: query,
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readReceipt(t *testing.T, conn *websocket.Conn) *voting.Receipt {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var r voting.Receipt
	require.NoError(t, conn.ReadJSON(&r))
	return &r
}

func TestStreamReceipts(t *testing.T) {
	env := newTestEnv(t)

	all, resp, err := env.dial(t, "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	registers, _, err := env.dial(t, "action=register&voter="+alice.String(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = env.voting.Instantiate(dao, voting.InstantiateParams{})
	require.NoError(t, err)
	_, err = env.voting.SetVotingPower(ctx, dao, "7", uint256.NewInt(3))
	require.NoError(t, err)
	env.oracle.Mint(alice, "7")
	_, err = env.voting.Register(ctx, alice)
	require.NoError(t, err)

	// every committed receipt in commit order
	for _, action := range []string{"instantiate", "set_voting_power", "register"} {
		r := readReceipt(t, all)
		assert.Equal(t, action, r.Action)
		assert.Equal(t, uint64(10), r.Height)
		assert.Equal(t, uint64(100), r.Time)
	}

	r := readReceipt(t, registers)
	assert.Equal(t, "register", r.Action)
	assert.Equal(t, alice.String(), r.Attributes["voter"])
	assert.Equal(t, "7", r.Attributes["token_id"])
}

func TestInvalidFilter(t *testing.T) {
	env := newTestEnv(t)

	_, resp, err := env.dial(t, "voter=xyz", nil)
	assert.Equal(t, websocket.ErrBadHandshake, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	env := newTestEnv(t, "https://Example.org")

	_, resp, err := env.dial(t, "", http.Header{"Origin": {"https://evil.org"}})
	assert.Equal(t, websocket.ErrBadHandshake, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, _, err = env.dial(t, "", http.Header{"Origin": {"https://example.org"}})
	assert.NoError(t, err)
}

func TestSlowSubscriberMisses(t *testing.T) {
	subs := New(nil, 1)
	ch, ok := subs.subscribe()
	require.True(t, ok)

	subs.Observe(&voting.Receipt{Action: "first"})
	subs.Observe(&voting.Receipt{Action: "second"})

	assert.Equal(t, "first", (<-ch).Action)
	assert.Empty(t, ch)

	subs.unsubscribe(ch)
	subs.Close()
}

func TestClose(t *testing.T) {
	env := newTestEnv(t)

	conn, _, err := env.dial(t, "", nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		env.subs.Close()
		close(done)
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}

	_, resp, err := env.dial(t, "", nil)
	assert.Equal(t, websocket.ErrBadHandshake, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
