package store

import (
	"bytes"
	"sync"

	cm "github.com/mosaicnetworks/eddy/src/common"
)

// InmemStore is a map-backed Store. It is the default when persistence
// is not enabled; its contents are lost when the process exits.
type InmemStore struct {
	sync.RWMutex
	kv map[string][]byte
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		kv: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *InmemStore) Get(key string) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	val, ok := s.kv[key]
	if !ok {
		return nil, cm.NewStoreErr("inmem", cm.KeyNotFound, key)
	}

	res := make([]byte, len(val))
	copy(res, val)

	return res, nil
}

// Put implements the Store interface.
func (s *InmemStore) Put(key string, value []byte) error {
	s.Lock()
	defer s.Unlock()

	s.kv[key] = append([]byte(nil), value...)

	return nil
}

// CAS implements the Store interface.
func (s *InmemStore) CAS(key string, from, to []byte, createIfAbsent bool) error {
	s.Lock()
	defer s.Unlock()

	current, ok := s.kv[key]
	if !ok {
		if createIfAbsent {
			s.kv[key] = append([]byte(nil), to...)
			return nil
		}
		return cm.NewStoreErr("inmem", cm.KeyNotFound, key)
	}

	if !bytes.Equal(current, from) {
		return cm.NewStoreErr("inmem", cm.PreconditionFailed, key)
	}

	s.kv[key] = append([]byte(nil), to...)

	return nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
