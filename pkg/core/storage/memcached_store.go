package storage

import (
	"sync"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch. Dropping a
// MemCachedStore without calling Persist discards every change made to it.
type MemCachedStore struct {
	mut sync.RWMutex
	// Changes, nil values are deletions.
	mem map[string][]byte

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		mem: make(map[string][]byte),
		ps:  lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// Put puts new KV pair into the store.
func (s *MemCachedStore) Put(key, value []byte) {
	newKey := string(key)
	vcopy := make([]byte, len(value))
	copy(vcopy, value)
	s.mut.Lock()
	s.mem[newKey] = vcopy
	s.mut.Unlock()
}

// Delete drops KV pair from the store. Never returns an error.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface, the changes are only
// staged and reach the lower store on Persist. Never returns an error.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface. Cached changes take precedence over
// the lower store contents.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	merged := make(map[string][]byte)
	s.ps.Seek(rng, func(k, v []byte) bool {
		vcopy := make([]byte, len(v))
		copy(vcopy, v)
		merged[string(k)] = vcopy
		return true
	})
	for k, v := range s.mem {
		if keyInRange(rng, k) {
			merged[k] = v
		}
	}
	s.mut.RUnlock()

	kvs := make([]KeyValue, 0, len(merged))
	for k, v := range merged {
		if v != nil {
			kvs = append(kvs, KeyValue{Key: []byte(k), Value: v})
		}
	}
	sortKeyValues(kvs, rng.Backwards)
	for _, kv := range kvs {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
}

// Len returns the number of staged changes.
func (s *MemCachedStore) Len() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.mem)
}

// Persist flushes all the MemoryStore contents into the (supposedly) persistent
// store ps. It returns the number of keys flushed.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Close implements Store interface, clears up memory and closes the lower layer
// Store.
func (s *MemCachedStore) Close() error {
	// It's always successful.
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return s.ps.Close()
}
