package playback

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupportedFormat is returned when a response is clearly not audio.
var ErrUnsupportedFormat = errors.New("unsupported stream format")

type format int

const (
	formatMP3 format = iota
	formatVorbis
)

func (f format) String() string {
	if f == formatVorbis {
		return "vorbis"
	}
	return "mp3"
}

// pcmSource yields interleaved float32 samples in [-1, 1].
type pcmSource interface {
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
}

// formatFor picks a decoder from the response Content-Type, then the URL
// extension. Streams that say nothing useful are treated as mp3, the common
// case for internet radio.
func formatFor(contentType, rawURL string) (format, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg":
		return formatMP3, nil
	case "audio/ogg", "application/ogg", "audio/vorbis", "audio/x-vorbis+ogg":
		return formatVorbis, nil
	}

	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return formatMP3, nil
	case ".ogg", ".oga":
		return formatVorbis, nil
	}

	if strings.HasPrefix(mt, "text/") || strings.HasPrefix(mt, "image/") || mt == "application/json" {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt)
	}
	return formatMP3, nil
}

func decode(f format, r io.Reader) (pcmSource, error) {
	switch f {
	case formatVorbis:
		dec, err := oggvorbis.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("vorbis: %w", err)
		}
		return newVorbisSource(dec), nil
	default:
		dec, err := gomp3.NewDecoder(r)
		if err != nil {
			return nil, fmt.Errorf("mp3: %w", err)
		}
		return newMP3Source(dec), nil
	}
}

// mp3Reader is the part of gomp3.Decoder the source uses.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec mp3Reader
	buf []byte
}

func newMP3Source(dec mp3Reader) *mp3Source {
	return &mp3Source{dec: dec, buf: make([]byte, 8192)}
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }

// Channels is always 2: go-mp3 emits stereo 16-bit little-endian PCM.
func (s *mp3Source) Channels() int { return 2 }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf)
	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768
	}
	return samples, err
}

// vorbisReader is the part of oggvorbis.Reader the source uses.
type vorbisReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec vorbisReader
}

func newVorbisSource(dec vorbisReader) *vorbisSource {
	return &vorbisSource{dec: dec}
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.dec.Channels() }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	ch := max(1, s.dec.Channels())
	dst = dst[:len(dst)/ch*ch]
	if len(dst) == 0 {
		return 0, nil
	}
	return s.dec.Read(dst)
}
