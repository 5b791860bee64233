package playback

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// stream is the radio.Handle for one opened URL. The player is attached by
// the connect goroutine; until then SetVolume only records the level.
type stream struct {
	url      string
	cancel   context.CancelFunc
	failed   atomic.Bool
	progress atomic.Int64 // unix nanos of the last body read or buffered chunk

	mu      sync.Mutex
	volume  int
	player  player
	body    io.Closer
	buffer  *pcmBuffer
	stopped bool
}

func newStream(url string, volume int, cancel context.CancelFunc) *stream {
	s := &stream{url: url, volume: clampVolume(volume), cancel: cancel}
	s.touch()
	return s
}

// SetVolume implements radio.Handle.
func (s *stream) SetVolume(v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampVolume(v)
	if s.player != nil {
		s.player.SetVolume(float64(s.volume) / 100)
	}
	return nil
}

// PollFailed implements radio.Handle.
func (s *stream) PollFailed() bool {
	return s.failed.Load()
}

// Stop implements radio.Handle. It is safe to call more than once.
func (s *stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.cancel()
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	if s.buffer != nil {
		s.buffer.Close()
		s.buffer = nil
	}
}

// attach hands the started player to the stream. It reports false when the
// stream was stopped while connecting; the caller then owns p, body and buf.
func (s *stream) attach(p player, body io.Closer, buf *pcmBuffer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.player = p
	s.body = body
	s.buffer = buf
	p.SetVolume(float64(s.volume) / 100)
	p.Play()
	return true
}

func (s *stream) touch() {
	s.progress.Store(time.Now().UnixNano())
}

// idleFor reports how long the stream has gone without reading or buffering
// any audio.
func (s *stream) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.progress.Load()))
}

func (s *stream) attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil
}

func (s *stream) playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil && s.player.IsPlaying()
}

func (s *stream) markFailed() {
	s.failed.Store(true)
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}
