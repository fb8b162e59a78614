// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter defines methods to read kv.
type Getter interface {
	// Get value for given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Iterator iterates over kv pairs.
// Next must be called before the first pair is accessed.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range is the key range.
type Range struct {
	Start   []byte // start of key range (included)
	Limit   []byte // limit of key range (excluded)
	Reverse bool   // iterate from the greatest key down to Start
}

// Reader reads point values and key ranges.
type Reader interface {
	Getter
	Iterate(r Range) Iterator
}

// ReadWriter reads and writes kvs.
type ReadWriter interface {
	Reader
	Putter
}

// Tx is an atomic unit of work. Writes are visible to the tx's own reads,
// and are applied to the store all together on Commit, or not at all.
type Tx interface {
	ReadWriter
	Commit() error
	Discard()
}

// Store defines the full functional kv store.
// All writes go through transactions.
type Store interface {
	Reader
	Transaction() (Tx, error)
	Close() error
}
