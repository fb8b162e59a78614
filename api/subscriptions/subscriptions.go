// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams committed receipts over websocket.
package subscriptions

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/api/utils"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/metrics"
	"github.com/vechain/sbtvote/thor"
	"github.com/vechain/sbtvote/voting"
)

const (
	// DefaultBacklog is the number of receipts buffered per subscriber.
	DefaultBacklog = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 7 / 10
)

var (
	logger = log.WithContext("pkg", "subscriptions")

	metricSubscribers = metrics.LazyLoadGauge("subscriptions_active_count")
	metricDropped     = metrics.LazyLoadCounter("subscriptions_dropped_count")
)

// filter selects receipts by action and voter, empty criteria match all.
type filter struct {
	action string
	voter  *thor.Address
}

func (f *filter) match(r *voting.Receipt) bool {
	if f.action != "" && r.Action != f.action {
		return false
	}
	if f.voter != nil && r.Attributes["voter"] != f.voter.String() {
		return false
	}
	return true
}

type Subscriptions struct {
	mu        sync.RWMutex
	listeners map[chan *voting.Receipt]struct{}
	backlog   int
	upgrader  *websocket.Upgrader
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates the stream. allowedOrigins are matched case-insensitively,
// "*" allows any origin and requests without an Origin header are accepted.
func New(allowedOrigins []string, backlog int) *Subscriptions {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Subscriptions{
		listeners: make(map[chan *voting.Receipt]struct{}),
		backlog:   backlog,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, origin) {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// Observe is a commit observer broadcasting r to every subscriber. A
// subscriber whose backlog is full misses the receipt.
func (s *Subscriptions) Observe(r *voting.Receipt) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for lsn := range s.listeners {
		select {
		case lsn <- r:
		default:
			metricDropped().Add(1)
		}
	}
}

// subscribe registers a listener, it fails once the stream is closed.
func (s *Subscriptions) subscribe() (chan *voting.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return nil, false
	default:
	}
	ch := make(chan *voting.Receipt, s.backlog)
	s.listeners[ch] = struct{}{}
	s.wg.Add(1)
	metricSubscribers().Set(int64(len(s.listeners)))
	return ch, true
}

func (s *Subscriptions) unsubscribe(ch chan *voting.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listeners, ch)
	s.wg.Done()
	metricSubscribers().Set(int64(len(s.listeners)))
}

func parseFilter(req *http.Request) (*filter, error) {
	query := req.URL.Query()
	f := &filter{action: query.Get("action")}
	if v := query.Get("voter"); v != "" {
		addr, err := thor.ParseAddress(v)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "voter"))
		}
		f.voter = &addr
	}
	return f, nil
}

func (s *Subscriptions) handleSubscribeReceipts(w http.ResponseWriter, req *http.Request) error {
	f, err := parseFilter(req)
	if err != nil {
		return err
	}

	// subscribed before the handshake completes, so nothing committed after
	// the client sees the upgrade is missed
	ch, ok := s.subscribe()
	if !ok {
		return utils.HTTPError(errors.New("subscriptions closed"), http.StatusServiceUnavailable)
	}
	defer s.unsubscribe(ch)

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already responded
		logger.Debug("upgrade failed", "err", err)
		return nil
	}

	if err := s.pipe(conn, ch, f); err != nil {
		logger.Debug("subscription closed", "err", err)
	}
	return nil
}

// pipe writes matching receipts to conn until the peer goes away or the
// stream is closed. conn is closed on return.
func (s *Subscriptions) pipe(conn *websocket.Conn, ch <-chan *voting.Receipt, f *filter) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		conn.Close()
		<-closed
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case r := <-ch:
			if !f.match(r) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(r); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
	}
}

// Close ends every open stream and waits for the handlers to return.
func (s *Subscriptions) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
	})
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/receipts").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeReceipts))
}
