package playback

import (
	"io"
	"sync"
)

// pcmBuffer is a bounded ring of rendered PCM between a stream's decode
// goroutine and its oto player. Write blocks while the ring is full; Read
// never blocks and plays silence on underrun, so a slow station cannot hold
// up the shared mixer.
type pcmBuffer struct {
	mu     sync.Mutex
	space  *sync.Cond
	buf    []byte
	r      int // read offset
	n      int // buffered bytes
	closed bool
}

func newPCMBuffer(size int) *pcmBuffer {
	size = max(size, bytesPerFrame)
	size -= size % bytesPerFrame
	b := &pcmBuffer{buf: make([]byte, size)}
	b.space = sync.NewCond(&b.mu)
	return b
}

// Write copies all of p into the ring, waiting for the player to drain it
// when full. It returns io.ErrClosedPipe once the buffer is closed.
func (b *pcmBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for len(p) > 0 {
		for b.n == len(b.buf) && !b.closed {
			b.space.Wait()
		}
		if b.closed {
			return written, io.ErrClosedPipe
		}
		w := (b.r + b.n) % len(b.buf)
		k := min(len(p), len(b.buf)-b.n, len(b.buf)-w)
		copy(b.buf[w:w+k], p[:k])
		b.n += k
		p = p[k:]
		written += k
	}
	return written, nil
}

// Read hands out whole frames of buffered PCM. With less than a frame
// buffered it fills p with silence instead of waiting. After Close the
// remaining data drains and then Read returns io.EOF.
func (b *pcmBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	want := len(p) - len(p)%bytesPerFrame
	avail := b.n - b.n%bytesPerFrame
	if avail == 0 {
		if b.closed {
			return 0, io.EOF
		}
		if want == 0 {
			want = len(p)
		}
		clear(p[:want])
		return want, nil
	}

	n := 0
	for n < want && b.n >= bytesPerFrame {
		k := min(want-n, b.n-b.n%bytesPerFrame, len(b.buf)-b.r)
		copy(p[n:n+k], b.buf[b.r:b.r+k])
		b.r = (b.r + k) % len(b.buf)
		b.n -= k
		n += k
	}
	b.space.Signal()
	return n, nil
}

// Buffered reports how many bytes are waiting to be played.
func (b *pcmBuffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Close wakes a blocked writer. It is safe to call more than once.
func (b *pcmBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.space.Broadcast()
	return nil
}
