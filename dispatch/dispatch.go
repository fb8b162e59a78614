// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dispatch delivers hook messages to http(s) endpoints. Delivery is
// best effort: messages are queued, posted once and dropped on failure.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/co"
	"github.com/vechain/sbtvote/hooks"
	"github.com/vechain/sbtvote/log"
	"github.com/vechain/sbtvote/metrics"
)

var (
	logger = log.WithContext("pkg", "dispatch")

	metricMessages = metrics.LazyLoadCounterVec("dispatch_messages_count", []string{"result"})
	metricQueued   = metrics.LazyLoadGauge("dispatch_queue_length")
)

// Options configures a Dispatcher.
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per request
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	Workers:   4,
	QueueSize: 1024,
	Timeout:   5 * time.Second,
}

// Dispatcher posts messages in the background.
type Dispatcher struct {
	client  *http.Client
	timeout time.Duration
	queue   chan hooks.Message
	workers *co.Workers
}

// New starts a dispatcher. Call Close to stop it.
func New(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions.QueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}

	d := &Dispatcher{
		client:  &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		timeout: opts.Timeout,
		queue:   make(chan hooks.Message, opts.QueueSize),
		workers: co.NewWorkers(),
	}
	d.workers.GoN(opts.Workers, func(_ int, stop <-chan struct{}) {
		for {
			select {
			case <-stop:
				return
			case msg := <-d.queue:
				metricQueued().Set(int64(len(d.queue)))
				d.deliver(stop, msg)
			}
		}
	})
	return d
}

// Deliverable tells whether the endpoint is an http(s) URL.
func Deliverable(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Dispatch queues the deliverable messages and returns how many were queued.
// Messages that do not fit into the queue are dropped.
func (d *Dispatcher) Dispatch(msgs []hooks.Message) int {
	queued := 0
	for _, msg := range msgs {
		if !Deliverable(msg.Endpoint) {
			metricMessages().AddWithLabel(1, map[string]string{"result": "skipped"})
			continue
		}
		select {
		case <-d.workers.Stopped():
			return queued
		default:
		}
		select {
		case d.queue <- msg:
			queued++
		default:
			logger.Warn("queue full, message dropped", "endpoint", msg.Endpoint, "kind", msg.Event.Kind)
			metricMessages().AddWithLabel(1, map[string]string{"result": "dropped"})
		}
	}
	metricQueued().Set(int64(len(d.queue)))
	return queued
}

func (d *Dispatcher) deliver(stop <-chan struct{}, msg hooks.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	result := "sent"
	if err := d.post(ctx, msg); err != nil {
		result = "failed"
		logger.Debug("failed to deliver message", "endpoint", msg.Endpoint, "err", err)
	}
	metricMessages().AddWithLabel(1, map[string]string{"result": result})
}

func (d *Dispatcher) post(ctx context.Context, msg hooks.Message) error {
	body, err := json.Marshal(msg.Event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Close stops the workers. Messages still queued are dropped.
func (d *Dispatcher) Close() {
	d.workers.Stop()
	if n := len(d.queue); n > 0 {
		logger.Info("dropped undelivered messages", "count", n)
	}
	d.client.CloseIdleConnections()
}
