// Package storage persists small named blobs: fallback emitter records and
// user settings such as the master volume.
package storage

import (
	"sync"

	"github.com/quasilyte/gdata"
)

// KV is a flat key to bytes store. Load of a missing key returns nil, nil.
type KV interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// GdataKV stores each key as a gdata item in the per-user data directory.
type GdataKV struct {
	m *gdata.Manager
}

// OpenGdata opens (creating if needed) the gdata storage for appName.
func OpenGdata(appName string) (*GdataKV, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, err
	}
	return &GdataKV{m: m}, nil
}

// Load implements KV.Load.
func (s *GdataKV) Load(key string) ([]byte, error) {
	if !s.m.ItemExists(key) {
		return nil, nil
	}
	return s.m.LoadItem(key)
}

// Save implements KV.Save.
func (s *GdataKV) Save(key string, data []byte) error {
	return s.m.SaveItem(key, data)
}

// Delete implements KV.Delete.
func (s *GdataKV) Delete(key string) error {
	if !s.m.ItemExists(key) {
		return nil
	}
	return s.m.DeleteItem(key)
}

// MemoryKV is an in-memory KV, safe for concurrent use.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string][]byte)}
}

// Load implements KV.Load.
func (s *MemoryKV) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Save implements KV.Save.
func (s *MemoryKV) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.items[key] = cp
	return nil
}

// Delete implements KV.Delete.
func (s *MemoryKV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryKV) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
