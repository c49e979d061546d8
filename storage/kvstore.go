package storage

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Copyable is implemented by values that need a deep copy when the store is
// copied.
type Copyable interface {
	Copy() Copyable
}

// Hashable is implemented by values that provide their own digest.
type Hashable interface {
	Hash() string
}

// KVStore is a thread-safe key-value store.
type KVStore interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{}) error
	Del(key string) error
	Len() int
	For(func(key string, value interface{}) error) error
	Copy() KVStore

	// Hash returns a digest of the content, which only changes when the
	// content does.
	Hash() []byte
}

// BasicKV is an in-memory store.
//
// - implements storage.KVStore
type BasicKV struct {
	sync.RWMutex
	store map[string]interface{}
}

// NewBasicKV creates a new empty store.
func NewBasicKV() *BasicKV {
	return &BasicKV{
		store: make(map[string]interface{}),
	}
}

// Get implements storage.KVStore
func (kv *BasicKV) Get(key string) (interface{}, bool) {
	kv.RLock()
	defer kv.RUnlock()

	value, ok := kv.store[key]
	return value, ok
}

// Put implements storage.KVStore
func (kv *BasicKV) Put(key string, value interface{}) error {
	kv.Lock()
	defer kv.Unlock()

	kv.store[key] = value
	return nil
}

// Del implements storage.KVStore
func (kv *BasicKV) Del(key string) error {
	kv.Lock()
	defer kv.Unlock()

	delete(kv.store, key)
	return nil
}

// Len implements storage.KVStore
func (kv *BasicKV) Len() int {
	kv.RLock()
	defer kv.RUnlock()

	return len(kv.store)
}

// For implements storage.KVStore. Keys are visited in sorted order, on a
// snapshot, so action may use the store.
func (kv *BasicKV) For(action func(key string, value interface{}) error) error {
	kv.RLock()
	keys := kv.sortedKeys()
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = kv.store[k]
	}
	kv.RUnlock()

	for i, k := range keys {
		err := action(k, values[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// Copy implements storage.KVStore
func (kv *BasicKV) Copy() KVStore {
	kv.RLock()
	defer kv.RUnlock()

	cp := NewBasicKV()
	for k, v := range kv.store {
		switch vv := v.(type) {
		case Copyable:
			cp.store[k] = vv.Copy()
		default:
			cp.store[k] = v
		}
	}
	return cp
}

// Hash implements storage.KVStore
func (kv *BasicKV) Hash() []byte {
	kv.RLock()
	defer kv.RUnlock()

	h := crypto.SHA256.New()
	for _, key := range kv.sortedKeys() {
		h.Write([]byte(key))

		switch vv := kv.store[key].(type) {
		case Hashable:
			h.Write([]byte(vv.Hash()))
		default:
			h.Write([]byte(Hash(vv)))
		}
	}

	return h.Sum(nil)
}

// sortedKeys must be called with the lock held.
func (kv *BasicKV) sortedKeys() []string {
	sorted := make([]string, 0, len(kv.store))
	for k := range kv.store {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	return sorted
}

// Hash returns the hex sha256 of the JSON encoding of value. Values that
// cannot be encoded are hashed from their Go representation.
func Hash(value interface{}) string {
	h := sha256.New()
	bytes, err := json.Marshal(value)
	if err != nil {
		bytes = []byte(fmt.Sprintf("%#v", value))
	}
	h.Write(bytes)

	return hex.EncodeToString(h.Sum(nil))
}
