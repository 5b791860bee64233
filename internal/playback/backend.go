// Package playback opens internet radio streams and renders them through a
// shared oto context.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"spatial-radio/internal/radio"
)

const (
	// DefaultSampleRate is the output rate of the oto context.
	DefaultSampleRate = 44100
	channelCount      = 2

	dialTimeout   = 5 * time.Second
	headerTimeout = 10 * time.Second
	// stallTimeout is how long a stream may go without reading or buffering
	// audio before it is reported as failed.
	stallTimeout = 10 * time.Second
	// bufferSeconds of rendered audio are held between decoder and player.
	bufferSeconds = 1
	pumpChunk     = 1024 * bytesPerFrame
)

// ErrHTTPStatus is returned when the stream answers with a non-2xx status.
var ErrHTTPStatus = errors.New("unexpected http status")

// player is the part of oto.Player a stream drives.
type player interface {
	Play()
	IsPlaying() bool
	SetVolume(volume float64)
	Close() error
}

// Backend implements radio.Backend on top of one oto context. Each stream
// decodes on its own goroutine into a pcmBuffer; the oto mixer only ever
// reads from that buffer.
type Backend struct {
	sampleRate   int
	client       *http.Client
	newPlayer    func(io.Reader) player
	decode       func(format, io.Reader) (pcmSource, error)
	log          *slog.Logger
	poll         time.Duration
	stallTimeout time.Duration
}

// New creates the oto context and waits until the device is ready.
func New(ctx context.Context, sampleRate int, log *slog.Logger) (*Backend, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	otoCtx, ready, err := oto.NewContext(sampleRate, channelCount, oto.FormatFloat32LE)
	if err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &Backend{
		sampleRate:   sampleRate,
		client:       newHTTPClient(),
		newPlayer:    func(r io.Reader) player { return otoCtx.NewPlayer(r) },
		decode:       decode,
		log:          log,
		poll:         100 * time.Millisecond,
		stallTimeout: stallTimeout,
	}, nil
}

// newHTTPClient bounds connecting and waiting for headers. There is no
// overall timeout because radio bodies never end; the stall watchdog
// covers a body that stops arriving.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   headerTimeout,
			ResponseHeaderTimeout: headerTimeout,
		},
	}
}

// Open validates rawURL and starts connecting in the background. Connection
// and decode errors surface later through PollFailed.
func (b *Backend) Open(rawURL string, volume int) (radio.Handle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse stream url: unsupported scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := newStream(rawURL, volume, cancel)
	go b.run(ctx, s)
	return s, nil
}

// run connects and decodes on a separate goroutine while watching the
// stream. A stream that makes no progress for stallTimeout, or whose player
// stops, is marked failed.
func (b *Backend) run(ctx context.Context, s *stream) {
	go func() {
		if err := b.play(ctx, s); err != nil && ctx.Err() == nil {
			b.log.Debug("stream failed", slog.String("url", s.url), slog.String("error", err.Error()))
			s.markFailed()
		}
	}()

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.PollFailed() {
				return
			}
			if idle := s.idleFor(now); idle >= b.stallTimeout {
				b.log.Debug("stream stalled", slog.String("url", s.url), slog.Duration("idle", idle))
				s.markFailed()
				return
			}
			if s.attached() && !s.playing() {
				b.log.Debug("stream ended", slog.String("url", s.url))
				s.markFailed()
				return
			}
		}
	}
}

// play connects to the station, starts the player and then pumps decoded
// audio into its buffer until the body ends or the stream is stopped.
func (b *Backend) play(ctx context.Context, s *stream) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Icy-MetaData", "0")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	s.touch()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	f, err := formatFor(resp.Header.Get("Content-Type"), s.url)
	if err != nil {
		resp.Body.Close()
		return err
	}
	src, err := b.decode(f, &progressReader{r: resp.Body, s: s})
	if err != nil {
		resp.Body.Close()
		return err
	}

	buf := newPCMBuffer(b.sampleRate * bytesPerFrame * bufferSeconds)
	p := b.newPlayer(buf)
	if !s.attach(p, resp.Body, buf) {
		p.Close()
		buf.Close()
		resp.Body.Close()
		return context.Canceled
	}
	b.log.Debug("stream playing", slog.String("url", s.url), slog.String("format", f.String()), slog.Int("source_rate", src.SampleRate()))

	return pump(newPCMReader(src, b.sampleRate), buf, s)
}

// pump moves rendered audio from r into buf. It returns io.EOF when the
// station closes the body and io.ErrClosedPipe once the stream is stopped.
func pump(r io.Reader, buf *pcmBuffer, s *stream) error {
	chunk := make([]byte, pumpChunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if _, werr := buf.Write(chunk[:n]); werr != nil {
				return werr
			}
			s.touch()
		}
		if err != nil {
			buf.Close()
			return err
		}
	}
}

// progressReader records every successful body read on the stream.
type progressReader struct {
	r io.Reader
	s *stream
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.s.touch()
	}
	return n, err
}

var _ radio.Backend = (*Backend)(nil)
