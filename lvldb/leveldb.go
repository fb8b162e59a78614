// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/sbtvote/kv"
)

var _ kv.Store = (*LevelDB)(nil)

var (
	writeOpt = opt.WriteOptions{}
	readOpt  = opt.ReadOptions{}
	scanOpt  = opt.ReadOptions{DontFillCache: true}
)

// Options options for creating level db instance.
type Options struct {
	CacheSize              int
	OpenFilesCacheCapacity int
}

// LevelDB wraps level db impls.
type LevelDB struct {
	db  *leveldb.DB
	stg storage.Storage
}

// New create a persistent level db instance.
// Create an empty one if not exists, or open if already there.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "new persistent level db")
	}
	return openLevelDB(stg, opts.CacheSize, opts.OpenFilesCacheCapacity)
}

// NewMem create a level db in memory.
func NewMem() (*LevelDB, error) {
	return openLevelDB(storage.NewMemStorage(), 0, 0)
}

func openLevelDB(stg storage.Storage, cacheSize, openFilesCacheCapacity int) (*LevelDB, error) {
	if cacheSize < 16 {
		cacheSize = 16
	}

	if openFilesCacheCapacity < 16 {
		openFilesCacheCapacity = 16
	}

	opts := &opt.Options{
		OpenFilesCacheCapacity: openFilesCacheCapacity,
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	}

	db, err := leveldb.Open(stg, opts)
	if _, corrupted := err.(*dberrors.ErrCorrupted); corrupted {
		db, err = leveldb.Recover(stg, opts)
	}
	if err != nil {
		stg.Close()
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{db: db, stg: stg}, nil
}

// IsNotFound to check if the error returned by Get indicates key not found.
func (ldb *LevelDB) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

// Get retrieve value for given key.
// It returns an error if key not found. The error can be checked via IsNotFound.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := ldb.db.Get(key, &readOpt)
	// val will be []byte{} if error occurs, which is not expected
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Has returns whether a key exists.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, &readOpt)
}

// Iterate creates an iterator over the committed state.
func (ldb *LevelDB) Iterate(r kv.Range) kv.Iterator {
	return newIterator(ldb.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, &scanOpt), r.Reverse)
}

// Transaction opens an atomic transaction. Only one transaction can be opened
// at a time, subsequent calls block until the in-flight one is committed or discarded.
func (ldb *LevelDB) Transaction() (kv.Tx, error) {
	tr, err := ldb.db.OpenTransaction()
	if err != nil {
		return nil, errors.Wrap(err, "open transaction")
	}
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
			val, err := tr.Get(key, &readOpt)
			if err != nil {
				return nil, err
			}
			return val, nil
		},
		func(key []byte) (bool, error) {
			return tr.Has(key, &readOpt)
		},
		ldb.IsNotFound,
		func(r kv.Range) kv.Iterator {
			return newIterator(tr.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, &readOpt), r.Reverse)
		},
		func(key, val []byte) error {
			return tr.Put(key, val, &writeOpt)
		},
		func(key []byte) error {
			return tr.Delete(key, &writeOpt)
		},
		func() error {
			return errors.Wrap(tr.Commit(), "commit transaction")
		},
		tr.Discard,
	}, nil
}

// Close close the level db and releases its storage, including the
// directory lock. Later operations will all fail.
func (ldb *LevelDB) Close() error {
	err := ldb.db.Close()
	if serr := ldb.stg.Close(); err == nil {
		err = serr
	}
	return err
}

// newIterator adapts a leveldb iterator, walking backwards when reverse is set.
func newIterator(it iterator.Iterator, reverse bool) kv.Iterator {
	started := false
	return &struct {
		kv.NextFunc
		kv.KeyFunc
		kv.ValueFunc
		kv.ReleaseFunc
		kv.ErrorFunc
	}{
		func() bool {
			if !reverse {
				return it.Next()
			}
			if !started {
				started = true
				return it.Last()
			}
			return it.Prev()
		},
		it.Key,
		it.Value,
		it.Release,
		it.Error,
	}
}
