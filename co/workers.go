// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync"
)

// Workers runs a group of go routines sharing one stop channel.
type Workers struct {
	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewWorkers creates an empty group.
func NewWorkers() *Workers {
	return &Workers{stop: make(chan struct{})}
}

// Go runs f in a go routine. f should return once stop is closed.
func (w *Workers) Go(f func(stop <-chan struct{})) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		f(w.stop)
	}()
}

// GoN runs n copies of f, each told its index.
func (w *Workers) GoN(n int, f func(i int, stop <-chan struct{})) {
	for i := 0; i < n; i++ {
		i := i
		w.Go(func(stop <-chan struct{}) { f(i, stop) })
	}
}

// Stopped returns the stop channel.
func (w *Workers) Stopped() <-chan struct{} {
	return w.stop
}

// Stop closes the stop channel and waits for all go routines to return.
// It is safe to call more than once.
func (w *Workers) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}
