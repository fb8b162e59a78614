// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package badgerdb implements kv.Store on top of badger.
package badgerdb

import (
	"bytes"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/vechain/sbtvote/kv"
	"github.com/vechain/sbtvote/log"
)

var (
	_      kv.Store = (*BadgerDB)(nil)
	logger          = log.WithContext("pkg", "badgerdb")
)

// BadgerDB wraps a badger instance.
type BadgerDB struct {
	db *badger.DB
}

// New opens or creates a badger database under dir.
func New(dir string) (*BadgerDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create badger dir")
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{}).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	return open(opts)
}

// NewMem creates a memory-backed badger database.
func NewMem() (*BadgerDB, error) {
	opts := badger.DefaultOptions("").
		WithLogger(badgerLogger{}).
		WithLoggingLevel(badger.WARNING).
		WithInMemory(true)
	return open(opts)
}

func open(opts badger.Options) (*BadgerDB, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger db")
	}
	return &BadgerDB{db: db}, nil
}

// IsNotFound to check if the error returned by Get indicates key not found.
func (b *BadgerDB) IsNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

// Get retrieves the committed value for key.
func (b *BadgerDB) Get(key []byte) (val []byte, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		val, err = get(txn, key)
		return err
	})
	return
}

// Has returns whether a committed key exists.
func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	if err != nil {
		if b.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Iterate iterates the committed state. The read transaction is released with the iterator.
func (b *BadgerDB) Iterate(r kv.Range) kv.Iterator {
	txn := b.db.NewTransaction(false)
	it := newIterator(txn, r)
	return &struct {
		kv.NextFunc
		kv.KeyFunc
		kv.ValueFunc
		kv.ReleaseFunc
		kv.ErrorFunc
	}{
		it.Next,
		it.Key,
		it.Value,
		func() {
			it.Release()
			txn.Discard()
		},
		it.Error,
	}
}

// Transaction opens a read-write transaction.
// Iterators opened on it see its pending writes; only one may be open at a time.
func (b *BadgerDB) Transaction() (kv.Tx, error) {
	txn := b.db.NewTransaction(true)
	return &struct {
		kv.GetFunc
		kv.HasFunc
		kv.IsNotFoundFunc
		kv.IterateFunc
		kv.PutFunc
		kv.DeleteFunc
		kv.CommitFunc
		kv.DiscardFunc
	}{
		func(key []byte) ([]byte, error) {
			return get(txn, key)
		},
		func(key []byte) (bool, error) {
			_, err := txn.Get(key)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return false, nil
				}
				return false, err
			}
			return true, nil
		},
		b.IsNotFound,
		func(r kv.Range) kv.Iterator {
			return newIterator(txn, r)
		},
		func(key, val []byte) error {
			return txn.Set(copyBytes(key), copyBytes(val))
		},
		func(key []byte) error {
			return txn.Delete(copyBytes(key))
		},
		func() error {
			return errors.Wrap(txn.Commit(), "commit transaction")
		},
		txn.Discard,
	}, nil
}

// Close closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}

func get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	if val == nil {
		val = []byte{}
	}
	return val, nil
}

// badger keeps references to the slices handed to Set until commit.
func copyBytes(b []byte) []byte {
	return append([]byte{}, b...)
}

type iterator struct {
	it      *badger.Iterator
	r       kv.Range
	started bool
	key     []byte
	val     []byte
	err     error
}

func newIterator(txn *badger.Txn, r kv.Range) *iterator {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = r.Reverse
	return &iterator{it: txn.NewIterator(opts), r: r}
}

func (i *iterator) Next() bool {
	if i.err != nil {
		return false
	}
	if !i.started {
		i.started = true
		if i.r.Reverse {
			if len(i.r.Limit) == 0 {
				i.it.Rewind()
			} else {
				// reverse seek lands on the greatest key <= limit, limit itself is excluded
				i.it.Seek(i.r.Limit)
				if i.it.Valid() && bytes.Equal(i.it.Item().Key(), i.r.Limit) {
					i.it.Next()
				}
			}
		} else {
			i.it.Seek(i.r.Start)
		}
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		return false
	}
	item := i.it.Item()
	key := item.Key()
	if i.r.Reverse {
		if bytes.Compare(key, i.r.Start) < 0 {
			return false
		}
	} else if len(i.r.Limit) > 0 && bytes.Compare(key, i.r.Limit) >= 0 {
		return false
	}

	i.key = item.KeyCopy(nil)
	if i.val, i.err = item.ValueCopy(nil); i.err != nil {
		return false
	}
	return true
}

func (i *iterator) Key() []byte   { return i.key }
func (i *iterator) Value() []byte { return i.val }
func (i *iterator) Error() error  { return i.err }
func (i *iterator) Release()      { i.it.Close() }

// badgerLogger routes badger's own logging into the service log.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Info(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}
