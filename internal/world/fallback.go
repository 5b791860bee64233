package world

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"spatial-radio/internal/radio"
	"spatial-radio/internal/storage"
)

// Record is the last published state of a radio. Speakers fall back to it
// when the radio's chunk is not loaded.
type Record struct {
	URL     string `json:"url"`
	Playing bool   `json:"playing"`
	Volume  int    `json:"volume"`
}

// FallbackStore keeps one Record per radio, cached in memory and written
// through to a storage.KV.
type FallbackStore struct {
	mu    sync.Mutex
	kv    storage.KV
	cache map[string]Record
}

// NewFallbackStore returns a store backed by kv.
func NewFallbackStore(kv storage.KV) *FallbackStore {
	return &FallbackStore{kv: kv, cache: make(map[string]Record)}
}

// Put records the state of the radio at dim/pos.
func (s *FallbackStore) Put(dim string, pos radio.BlockPos, rec Record) error {
	key := fallbackKey(dim, pos)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = rec
	if err := s.kv.Save(key, data); err != nil {
		return fmt.Errorf("save fallback %s: %w", key, err)
	}
	return nil
}

// Get returns the record for dim/pos, loading it from the KV on a cache miss.
func (s *FallbackStore) Get(dim string, pos radio.BlockPos) (Record, bool, error) {
	key := fallbackKey(dim, pos)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.cache[key]; ok {
		return rec, true, nil
	}

	data, err := s.kv.Load(key)
	if err != nil {
		return Record{}, false, fmt.Errorf("load fallback %s: %w", key, err)
	}
	if data == nil {
		return Record{}, false, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode fallback %s: %w", key, err)
	}
	s.cache[key] = rec
	return rec, true, nil
}

// Delete drops the record for dim/pos.
func (s *FallbackStore) Delete(dim string, pos radio.BlockPos) error {
	key := fallbackKey(dim, pos)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
	return s.kv.Delete(key)
}

// fallbackKey builds a file-name safe key. The dimension id is hex encoded
// so that ids differing only in punctuation, such as "minecraft:overworld"
// and "minecraft.overworld", never share a key.
func fallbackKey(dim string, pos radio.BlockPos) string {
	return fmt.Sprintf("fallback_%s_%d_%d_%d", hex.EncodeToString([]byte(dim)), pos.X, pos.Y, pos.Z)
}
