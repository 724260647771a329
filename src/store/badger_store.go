package store

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/eddy/src/common"
)

const kvPrefix = "kv"

// BadgerStore is a disk-backed Store. Values survive a restart of the
// process, so a node can be killed and brought back without losing its
// acknowledged writes.
type BadgerStore struct {
	db   *badger.DB
	path string

	// writeLock serializes read-modify-write transactions so that
	// concurrent CAS operations cannot conflict with each other.
	writeLock sync.Mutex
}

// NewBadgerStore opens the database under path, creating it if needed.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts = opts.WithSyncWrites(false)
	opts = opts.WithLogger(nil)

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		db:   handle,
		path: path,
	}

	return store, nil
}

// Path returns the directory containing the database files.
func (s *BadgerStore) Path() string {
	return s.path
}

func kvKey(key string) []byte {
	return []byte(fmt.Sprintf("%s_%s", kvPrefix, key))
}

// Get implements the Store interface.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var val []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kvKey(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if isDBKeyNotFoundErr(err) {
			return nil, cm.NewStoreErr("badger", cm.KeyNotFound, key)
		}
		return nil, err
	}

	return val, nil
}

// Put implements the Store interface.
func (s *BadgerStore) Put(key string, value []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(kvKey(key), value)
	})
}

// CAS implements the Store interface. The comparison and the write
// happen in a single transaction.
func (s *BadgerStore) CAS(key string, from, to []byte, createIfAbsent bool) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	item, err := tx.Get(kvKey(key))
	if err != nil {
		if !isDBKeyNotFoundErr(err) {
			return err
		}
		if !createIfAbsent {
			return cm.NewStoreErr("badger", cm.KeyNotFound, key)
		}
		if err := tx.Set(kvKey(key), to); err != nil {
			return err
		}
		return tx.Commit()
	}

	current, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}

	if !bytes.Equal(current, from) {
		return cm.NewStoreErr("badger", cm.PreconditionFailed, key)
	}

	if err := tx.Set(kvKey(key), to); err != nil {
		return err
	}

	return tx.Commit()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func isDBKeyNotFoundErr(err error) bool {
	return err.Error() == badger.ErrKeyNotFound.Error()
}
