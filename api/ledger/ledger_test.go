// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/sbtvote/api/utils"
	"github.com/vechain/sbtvote/chain"
	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/logdb"
	"github.com/vechain/sbtvote/lvldb"
	"github.com/vechain/sbtvote/ownable"
	"github.com/vechain/sbtvote/ownership"
	"github.com/vechain/sbtvote/thor"
	"github.com/vechain/sbtvote/voting"
)

var (
	dao   = thor.BytesToAddress([]byte("dao"))
	alice = thor.BytesToAddress([]byte("alice"))
	bob   = thor.BytesToAddress([]byte("bob"))
)

type fakeDispatcher struct {
	mu   sync.Mutex
	msgs []hooks.Message
}

func (f *fakeDispatcher) Dispatch(msgs []hooks.Message) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return len(msgs)
}

type testServer struct {
	*httptest.Server
	clock      *chain.ManualClock
	oracle     *ownership.Static
	dispatcher *fakeDispatcher
}

func newTestServer(t *testing.T) *testServer {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := chain.NewManualClock(chain.Block{Height: 100, Time: 1000}, 10)
	oracle := ownership.NewStatic()
	v, err := voting.New(db, clock, oracle)
	require.NoError(t, err)
	journal, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	v.Observe(journal.Observer(nil))

	_, err = v.Instantiate(dao, voting.InstantiateParams{NftContract: "sbt"})
	require.NoError(t, err)

	d := &fakeDispatcher{}
	router := mux.NewRouter()
	New(v, d, journal, 10).Mount(router, "/voting")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &testServer{ts, clock, oracle, d}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (ts *testServer) receipt(t *testing.T, method, path string, body any) *voting.Receipt {
	t.Helper()
	code, data := ts.do(t, method, path, body)
	require.Equal(t, http.StatusOK, code, string(data))
	var r voting.Receipt
	require.NoError(t, json.Unmarshal(data, &r))
	return &r
}

func (ts *testServer) power(t *testing.T, path string) uint64 {
	t.Helper()
	code, data := ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code, string(data))
	var p voting.PowerAtHeight
	require.NoError(t, json.Unmarshal(data, &p))
	return p.Power.Uint64()
}

func TestRegisterFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.oracle.Mint(alice, "7")

	r := ts.receipt(t, http.MethodPost, "/voting/voting-power", utils.M{"caller": dao, "tokenId": "7", "power": "3"})
	assert.Equal(t, "set_voting_power", r.Action)
	assert.Equal(t, uint64(100), r.Height)

	r = ts.receipt(t, http.MethodPost, "/voting/register", utils.M{"caller": alice})
	assert.Equal(t, "7", r.Attributes["token_id"])

	code, data := ts.do(t, http.MethodPost, "/voting/register", utils.M{"caller": alice})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, voting.ErrAlreadyRegistered.Error(), strings.TrimSpace(string(data)))

	assert.Zero(t, ts.power(t, "/voting/voters/"+alice.String()+"/power"))
	ts.clock.Next(1)
	assert.Equal(t, uint64(3), ts.power(t, "/voting/voters/"+alice.String()+"/power"))
	assert.Equal(t, uint64(3), ts.power(t, "/voting/total-power"))
	assert.Zero(t, ts.power(t, "/voting/total-power?height=100"))

	code, data = ts.do(t, http.MethodGet, "/voting/voters/"+alice.String()+"/nft", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"tokenId":"7"}`, string(data))
	code, data = ts.do(t, http.MethodGet, "/voting/voters/"+bob.String()+"/nft", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"tokenId":null}`, string(data))

	code, data = ts.do(t, http.MethodGet, "/voting/voters", nil)
	assert.Equal(t, http.StatusOK, code)
	var voters []thor.Address
	require.NoError(t, json.Unmarshal(data, &voters))
	assert.Equal(t, []thor.Address{alice}, voters)

	ts.receipt(t, http.MethodPost, "/voting/unregister", utils.M{"caller": alice})
	ts.clock.Next(1)
	assert.Zero(t, ts.power(t, "/voting/total-power"))
}

func TestStatusCodes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"unauthorized", http.MethodPost, "/voting/voting-power", utils.M{"caller": bob, "tokenId": "1", "power": "1"}, http.StatusForbidden},
		{"no token", http.MethodPost, "/voting/register", utils.M{"caller": bob}, http.StatusBadRequest},
		{"not registered", http.MethodPost, "/voting/unregister", utils.M{"caller": bob}, http.StatusBadRequest},
		{"missing caller", http.MethodPost, "/voting/register", utils.M{}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/voting/register", utils.M{"caller": bob, "x": 1}, http.StatusBadRequest},
		{"missing token", http.MethodPost, "/voting/sync", utils.M{"caller": bob}, http.StatusBadRequest},
		{"bad address", http.MethodGet, "/voting/voters/0xzz/power", nil, http.StatusBadRequest},
		{"bad height", http.MethodGet, "/voting/total-power?height=abc", nil, http.StatusBadRequest},
		{"limit too large", http.MethodGet, "/voting/voters?limit=1001", nil, http.StatusBadRequest},
		{"bad action", http.MethodPost, "/voting/ownership", utils.M{"caller": dao, "action": "steal"}, http.StatusBadRequest},
		{"transfer without owner", http.MethodPost, "/voting/ownership", utils.M{"caller": dao, "action": "transfer"}, http.StatusBadRequest},
		{"remove missing hook", http.MethodDelete, "/voting/hooks", utils.M{"caller": dao, "addr": "nope"}, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/voting/register", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code, string(data))
		})
	}
}

func TestHooksAreDispatched(t *testing.T) {
	ts := newTestServer(t)

	ts.receipt(t, http.MethodPost, "/voting/hooks", utils.M{"caller": dao, "addr": "http://localhost/hook"})
	code, data := ts.do(t, http.MethodGet, "/voting/hooks", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["http://localhost/hook"]`, string(data))

	ts.oracle.Mint(alice, "1")
	r := ts.receipt(t, http.MethodPost, "/voting/register", utils.M{"caller": alice})
	require.Len(t, r.Messages, 1)
	assert.Equal(t, hooks.Stake, r.Messages[0].Event.Kind)
	assert.Equal(t, r.Messages, ts.dispatcher.msgs)

	ts.oracle.Burn("1")
	r = ts.receipt(t, http.MethodPost, "/voting/sync", utils.M{"caller": bob, "tokenId": "1"})
	assert.Equal(t, "true", r.Attributes["unregistered"])
	require.Len(t, ts.dispatcher.msgs, 2)
	assert.Equal(t, hooks.Unstake, ts.dispatcher.msgs[1].Event.Kind)

	ts.receipt(t, http.MethodDelete, "/voting/hooks", utils.M{"caller": dao, "addr": "http://localhost/hook"})
	code, data = ts.do(t, http.MethodGet, "/voting/hooks", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(data))
}

func TestOwnership(t *testing.T) {
	ts := newTestServer(t)

	r := ts.receipt(t, http.MethodPost, "/voting/ownership", utils.M{
		"caller":   dao,
		"action":   "transfer",
		"newOwner": alice,
		"expiry":   utils.M{"atHeight": 200},
	})
	assert.Equal(t, alice.String(), r.Attributes["pending_owner"])

	code, _ := ts.do(t, http.MethodPost, "/voting/ownership", utils.M{"caller": bob, "action": "accept"})
	assert.Equal(t, http.StatusForbidden, code)
	ts.receipt(t, http.MethodPost, "/voting/ownership", utils.M{"caller": alice, "action": "accept"})

	code, data := ts.do(t, http.MethodGet, "/voting/ownership", nil)
	assert.Equal(t, http.StatusOK, code)
	var ow ownable.Ownership
	require.NoError(t, json.Unmarshal(data, &ow))
	assert.Equal(t, &alice, ow.Owner)
	assert.Nil(t, ow.PendingOwner)

	r = ts.receipt(t, http.MethodPost, "/voting/ownership", utils.M{"caller": alice, "action": "renounce"})
	assert.Equal(t, dao.String(), r.Attributes["new_owner"])
}

func TestInfoAndConfig(t *testing.T) {
	ts := newTestServer(t)

	code, data := ts.do(t, http.MethodGet, "/voting/info", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"contract":"`+voting.ContractName+`","version":"`+voting.ContractVersion+`"}`, string(data))

	code, data = ts.do(t, http.MethodGet, "/voting/config", nil)
	assert.Equal(t, http.StatusOK, code)
	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, Config{dao, "sbt"}, cfg)
}

func TestReceipts(t *testing.T) {
	ts := newTestServer(t)
	ts.oracle.Mint(alice, "7")
	ts.oracle.Mint(bob, "8")

	ts.receipt(t, http.MethodPost, "/voting/voting-power", utils.M{"caller": dao, "tokenId": "7", "power": "3"})
	ts.clock.Next(1)
	ts.receipt(t, http.MethodPost, "/voting/register", utils.M{"caller": alice})
	ts.receipt(t, http.MethodPost, "/voting/register", utils.M{"caller": bob})

	entries := func(query string) []*logdb.Entry {
		t.Helper()
		code, data := ts.do(t, http.MethodGet, "/voting/receipts"+query, nil)
		require.Equal(t, http.StatusOK, code, string(data))
		var res []*logdb.Entry
		require.NoError(t, json.Unmarshal(data, &res))
		return res
	}

	all := entries("")
	require.Len(t, all, 4)
	assert.Equal(t, "instantiate", all[0].Action)

	registered := entries("?action=register&order=desc")
	require.Len(t, registered, 2)
	assert.Equal(t, bob, *registered[0].Voter)

	byVoter := entries("?voter=" + alice.String())
	require.Len(t, byVoter, 1)
	assert.Equal(t, "7", *byVoter[0].TokenID)

	assert.Len(t, entries("?from=101&to=101"), 2)
	assert.Len(t, entries("?offset=1&limit=2"), 2)

	for _, query := range []string{"?order=up", "?voter=xyz", "?from=5&to=1", "?unit=block&from=1", "?limit=11", "?offset=-1"} {
		code, _ := ts.do(t, http.MethodGet, "/voting/receipts"+query, nil)
		assert.Equal(t, http.StatusBadRequest, code, query)
	}
}
