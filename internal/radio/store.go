package radio

import "sort"

// Store is the storage abstraction for stream sessions, keyed by URL.
// The key is what guarantees at most one session per URL.
type Store interface {
	GetSession(url string) (*StreamSession, bool)
	SetSession(s *StreamSession)
	DeleteSession(url string)
	ListURLs() []string
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	sessions map[string]*StreamSession
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*StreamSession),
	}
}

// GetSession implements Store.GetSession.
func (s *InMemoryStore) GetSession(url string) (*StreamSession, bool) {
	st, ok := s.sessions[url]
	return st, ok
}

// SetSession implements Store.SetSession.
func (s *InMemoryStore) SetSession(st *StreamSession) {
	s.sessions[st.URL] = st
}

// DeleteSession implements Store.DeleteSession.
func (s *InMemoryStore) DeleteSession(url string) {
	delete(s.sessions, url)
}

// ListURLs implements Store.ListURLs. URLs are sorted so passes over the
// registry issue backend calls in a stable order.
func (s *InMemoryStore) ListURLs() []string {
	urls := make([]string, 0, len(s.sessions))
	for url := range s.sessions {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
