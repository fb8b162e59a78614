// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package checkpoint stores values together with their height-indexed history.
//
// A value written while the host executes height H is recorded as a checkpoint
// effective from H+1. Reading at height h yields the value of the last checkpoint
// effective at or before h, or nothing when h precedes the first checkpoint. Reads
// at the current height therefore observe the value as it stood when the height began,
// and several writes within one height collapse into a single checkpoint.
package checkpoint

import (
	"encoding/binary"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/kv"
)

const (
	liveTag byte = iota
	histTag
)

var (
	// ErrReadOnly is returned when writing through a checkpoint store opened on a reader.
	ErrReadOnly = errors.New("checkpoint: read-only")
	// ErrHeightOutOfRange is returned for writes that would have no effective height.
	ErrHeightOutOfRange = errors.New("checkpoint: height out of range")
	// ErrKeyTooLong is returned for keys longer than 255 bytes.
	ErrKeyTooLong = errors.New("checkpoint: key too long")
)

// Key is implemented by map keys.
type Key interface {
	Bytes() []byte
}

// Checkpoint is one entry of a value's history.
type Checkpoint[V any] struct {
	Height  uint64 // first height at which Value is observed
	Value   V
	Removed bool
}

// Map is a key/value store keeping one independent history per key.
type Map[K Key, V any] struct {
	r kv.Reader
	w kv.Putter
}

// NewMap creates a map in the given bucket. Writes are only possible when src
// is a kv.ReadWriter.
func NewMap[K Key, V any](src kv.Reader, bucket kv.Bucket) *Map[K, V] {
	if rw, ok := src.(kv.ReadWriter); ok {
		brw := bucket.NewReadWriter(rw)
		return &Map[K, V]{r: brw, w: brw}
	}
	return &Map[K, V]{r: bucket.NewReader(src)}
}

func liveKey(key []byte) []byte {
	return append([]byte{liveTag}, key...)
}

// histPrefix is length-prefixed so one key's history is never a prefix of another's.
func histPrefix(key []byte) ([]byte, error) {
	if len(key) > math.MaxUint8 {
		return nil, ErrKeyTooLong
	}
	return append([]byte{histTag, byte(len(key))}, key...), nil
}

func histKey(prefix []byte, height uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefix...), height)
}

func decode[V any](raw []byte) (v V, err error) {
	err = errors.Wrap(rlp.DecodeBytes(raw, &v), "decode checkpoint value")
	return
}

// Has returns whether the key currently has a value.
func (m *Map[K, V]) Has(key K) (bool, error) {
	return m.r.Has(liveKey(key.Bytes()))
}

// Get returns the live value.
func (m *Map[K, V]) Get(key K) (v V, ok bool, err error) {
	raw, err := m.r.Get(liveKey(key.Bytes()))
	if err != nil {
		if m.r.IsNotFound(err) {
			return v, false, nil
		}
		return v, false, errors.Wrap(err, "get live value")
	}
	v, err = decode[V](raw)
	return v, err == nil, err
}

// GetAt returns the value observed at the given height.
func (m *Map[K, V]) GetAt(key K, height uint64) (v V, ok bool, err error) {
	prefix, err := histPrefix(key.Bytes())
	if err != nil {
		return v, false, err
	}
	limit := histKey(prefix, height)
	// the limit is exclusive, extend it past the checkpoint at height itself
	limit = append(limit, 0)

	it := m.r.Iterate(kv.Range{Start: prefix, Limit: limit, Reverse: true})
	defer it.Release()

	if !it.Next() {
		return v, false, errors.Wrap(it.Error(), "seek checkpoint")
	}
	raw := it.Value()
	if len(raw) == 0 {
		return v, false, nil
	}
	v, err = decode[V](raw)
	return v, err == nil, err
}

// History lists all checkpoints of a key in ascending height order.
func (m *Map[K, V]) History(key K) ([]Checkpoint[V], error) {
	prefix, err := histPrefix(key.Bytes())
	if err != nil {
		return nil, err
	}
	it := m.r.Iterate(kv.Range{Start: prefix, Limit: append(histKey(prefix, math.MaxUint64), 0)})
	defer it.Release()

	var list []Checkpoint[V]
	for it.Next() {
		cp := Checkpoint[V]{Height: binary.BigEndian.Uint64(it.Key()[len(prefix):])}
		if raw := it.Value(); len(raw) == 0 {
			cp.Removed = true
		} else if cp.Value, err = decode[V](raw); err != nil {
			return nil, err
		}
		list = append(list, cp)
	}
	return list, errors.Wrap(it.Error(), "iterate checkpoints")
}

// Update loads the live value, applies fn and stores the result as the live value
// and as the checkpoint of the given height. It is the only way to set a value.
func (m *Map[K, V]) Update(key K, height uint64, fn func(prev V, ok bool) (V, error)) (v V, err error) {
	if m.w == nil {
		return v, ErrReadOnly
	}
	if height == math.MaxUint64 {
		return v, ErrHeightOutOfRange
	}
	prefix, err := histPrefix(key.Bytes())
	if err != nil {
		return v, err
	}

	prev, ok, err := m.Get(key)
	if err != nil {
		return v, err
	}
	if v, err = fn(prev, ok); err != nil {
		return v, err
	}

	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return v, errors.Wrap(err, "encode checkpoint value")
	}
	if err := m.w.Put(liveKey(key.Bytes()), raw); err != nil {
		return v, errors.Wrap(err, "put live value")
	}
	if err := m.w.Put(histKey(prefix, height+1), raw); err != nil {
		return v, errors.Wrap(err, "put checkpoint")
	}
	return v, nil
}

// Remove deletes the live value. Reads at heights after the given one see no value,
// earlier heights keep their history.
func (m *Map[K, V]) Remove(key K, height uint64) error {
	if m.w == nil {
		return ErrReadOnly
	}
	if height == math.MaxUint64 {
		return ErrHeightOutOfRange
	}
	prefix, err := histPrefix(key.Bytes())
	if err != nil {
		return err
	}
	if err := m.w.Delete(liveKey(key.Bytes())); err != nil {
		return errors.Wrap(err, "delete live value")
	}
	return errors.Wrap(m.w.Put(histKey(prefix, height+1), nil), "put checkpoint")
}

type unitKey struct{}

func (unitKey) Bytes() []byte { return nil }

// Item is a single value with history.
type Item[V any] struct {
	m *Map[unitKey, V]
}

// NewItem creates an item in the given bucket.
func NewItem[V any](src kv.Reader, bucket kv.Bucket) *Item[V] {
	return &Item[V]{NewMap[unitKey, V](src, bucket)}
}

// Get returns the live value.
func (i *Item[V]) Get() (V, bool, error) {
	return i.m.Get(unitKey{})
}

// GetAt returns the value observed at the given height.
func (i *Item[V]) GetAt(height uint64) (V, bool, error) {
	return i.m.GetAt(unitKey{}, height)
}

// History lists all checkpoints in ascending height order.
func (i *Item[V]) History() ([]Checkpoint[V], error) {
	return i.m.History(unitKey{})
}

// Init sets the initial value, observed from height+1 on.
func (i *Item[V]) Init(height uint64, v V) error {
	_, err := i.Update(height, func(V, bool) (V, error) { return v, nil })
	return err
}

// Update applies fn to the live value, see Map.Update.
func (i *Item[V]) Update(height uint64, fn func(prev V, ok bool) (V, error)) (V, error) {
	return i.m.Update(unitKey{}, height, fn)
}
