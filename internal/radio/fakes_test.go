package radio

import (
	"errors"
	"iter"
	"log/slog"
	"os"
	"time"
)

var errFake = errors.New("fake backend failure")

type fakeHandle struct {
	url     string
	volumes []int
	stops   int
	failed  bool
	setErr  error
}

func (h *fakeHandle) SetVolume(v int) error {
	if h.setErr != nil {
		return h.setErr
	}
	h.volumes = append(h.volumes, v)
	return nil
}

func (h *fakeHandle) PollFailed() bool {
	f := h.failed
	h.failed = false
	return f
}

func (h *fakeHandle) Stop() {
	h.stops++
}

func (h *fakeHandle) lastVolume() int {
	if len(h.volumes) == 0 {
		return -1
	}
	return h.volumes[len(h.volumes)-1]
}

type openCall struct {
	url    string
	volume int
}

type fakeBackend struct {
	opens   []openCall
	handles []*fakeHandle
	openErr error
}

func (b *fakeBackend) Open(url string, volume int) (Handle, error) {
	b.opens = append(b.opens, openCall{url: url, volume: volume})
	if b.openErr != nil {
		return nil, b.openErr
	}
	h := &fakeHandle{url: url}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *fakeBackend) liveHandles() int {
	n := 0
	for _, h := range b.handles {
		if h.stops == 0 {
			n++
		}
	}
	return n
}

// fakeProvider yields every source of the requested dimension; the Scanner
// is responsible for the cube filter.
type fakeProvider struct {
	byDim map[string][]RawSource
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{byDim: make(map[string][]RawSource)}
}

func (p *fakeProvider) add(dim string, src RawSource) {
	p.byDim[dim] = append(p.byDim[dim], src)
}

func (p *fakeProvider) set(dim string, srcs ...RawSource) {
	p.byDim[dim] = srcs
}

func (p *fakeProvider) EmittersInRegion(dim string, center Vec3, half float64) iter.Seq[RawSource] {
	return func(yield func(RawSource) bool) {
		for _, s := range p.byDim[dim] {
			if !yield(s) {
				return
			}
		}
	}
}

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sliceSeq(srcs ...RawSource) iter.Seq[RawSource] {
	return func(yield func(RawSource) bool) {
		for _, s := range srcs {
			if !yield(s) {
				return
			}
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const (
	streamA = "https://radio.example.com/a.mp3"
	streamB = "https://radio.example.com/b.mp3"
)
