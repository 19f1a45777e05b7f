package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of a Store, mainly
// used for testing. Do not use MemoryStore in production.
type MemoryStore struct {
	mut sync.RWMutex
	mem map[string][]byte
}

// KeyValue represents key-value pair.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// NewMemoryStore creates a new MemoryStore object.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok && val != nil {
		return val, nil
	}
	return nil, ErrKeyNotFound
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemoryStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		if v == nil {
			delete(s.mem, k)
			continue
		}
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	s.seek(rng, f)
	s.mut.RUnlock()
}

// seek is an internal unlocked implementation of Seek.
func (s *MemoryStore) seek(rng SeekRange, f func(k, v []byte) bool) {
	var memList []KeyValue
	for k, v := range s.mem {
		if v != nil && keyInRange(rng, k) {
			memList = append(memList, KeyValue{
				Key:   []byte(k),
				Value: v,
			})
		}
	}
	sortKeyValues(memList, rng.Backwards)
	for _, kv := range memList {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
}

func keyInRange(rng SeekRange, key string) bool {
	sPrefix := string(rng.Prefix)
	if !strings.HasPrefix(key, sPrefix) {
		return false
	}
	if len(rng.Start) == 0 {
		return true
	}
	cmp := strings.Compare(key[len(sPrefix):], string(rng.Start))
	if rng.Backwards {
		return cmp <= 0
	}
	return cmp >= 0
}

func sortKeyValues(kvs []KeyValue, backwards bool) {
	sort.Slice(kvs, func(i, j int) bool {
		res := bytes.Compare(kvs[i].Key, kvs[j].Key)
		return res != 0 && backwards == (res > 0)
	})
}

// Close implements Store interface and clears up memory. Never returns an
// error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return nil
}
