package radio

import (
	"errors"
	"strings"
	"sync"
)

// ErrInvalidListener is returned when a listener without a dimension is set.
var ErrInvalidListener = errors.New("listener must name a dimension")

// ListenerSource reports the current observer. ok is false when there is no
// valid listener, which makes the controller hard-reset every session.
type ListenerSource interface {
	Listener() (l Listener, ok bool)
}

// ListenerTracker holds the latest listener pushed by the client.
type ListenerTracker struct {
	mu       sync.RWMutex
	listener Listener
	present  bool
}

// NewListenerTracker returns a tracker with no listener.
func NewListenerTracker() *ListenerTracker {
	return &ListenerTracker{}
}

// Set records the listener.
func (t *ListenerTracker) Set(l Listener) error {
	l.Dimension = strings.TrimSpace(l.Dimension)
	if l.Dimension == "" {
		return ErrInvalidListener
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = l
	t.present = true
	return nil
}

// Clear removes the listener.
func (t *ListenerTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = Listener{}
	t.present = false
}

// Listener implements ListenerSource.
func (t *ListenerTracker) Listener() (Listener, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listener, t.present
}
