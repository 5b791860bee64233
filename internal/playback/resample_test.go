package playback

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

type sliceSource struct {
	rate     int
	channels int
	samples  []float32
	chunk    int
}

func (s *sliceSource) SampleRate() int { return s.rate }
func (s *sliceSource) Channels() int   { return s.channels }

func (s *sliceSource) ReadSamples(dst []float32) (int, error) {
	if len(s.samples) == 0 {
		return 0, io.EOF
	}
	limit := len(dst)
	if s.chunk > 0 {
		limit = min(limit, s.chunk)
	}
	n := copy(dst[:limit], s.samples)
	s.samples = s.samples[n:]
	return n, nil
}

func readAllFrames(t *testing.T, r io.Reader) [][2]float32 {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data)%bytesPerFrame != 0 {
		t.Fatalf("output length %d is not whole frames", len(data))
	}
	frames := make([][2]float32, len(data)/bytesPerFrame)
	for i := range frames {
		frames[i][0] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*8:]))
		frames[i][1] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*8+4:]))
	}
	return frames
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestPCMReader_sameRatePassesThrough(t *testing.T) {
	src := &sliceSource{rate: 44100, channels: 2, samples: []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}, chunk: 2}
	got := readAllFrames(t, newPCMReader(src, 44100))

	// The last frame has no successor to interpolate toward.
	want := [][2]float32{{0.1, -0.1}, {0.2, -0.2}}
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	for i := range want {
		if !near(got[i][0], want[i][0]) || !near(got[i][1], want[i][1]) {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMReader_upsampleInterpolates(t *testing.T) {
	src := &sliceSource{rate: 22050, channels: 1, samples: []float32{0, 1, 0}}
	got := readAllFrames(t, newPCMReader(src, 44100))

	want := []float32{0, 0.5, 1, 0.5}
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %d frames", got, len(want))
	}
	for i, w := range want {
		if !near(got[i][0], w) || got[i][0] != got[i][1] {
			t.Errorf("frame %d = %v, want mono %v on both channels", i, got[i], w)
		}
	}
}

func TestPCMReader_downsampleSkips(t *testing.T) {
	src := &sliceSource{rate: 88200, channels: 2, samples: []float32{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}}
	got := readAllFrames(t, newPCMReader(src, 44100))

	want := []float32{0, 2}
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	for i, w := range want {
		if !near(got[i][0], w) {
			t.Errorf("frame %d = %v, want %v", i, got[i], w)
		}
	}
}

type stuckSource struct{}

func (stuckSource) SampleRate() int                    { return 44100 }
func (stuckSource) Channels() int                      { return 2 }
func (stuckSource) ReadSamples([]float32) (int, error) { return 0, nil }

func TestPCMReader_stuckSourceErrors(t *testing.T) {
	buf := make([]byte, 64)
	if _, err := newPCMReader(stuckSource{}, 44100).Read(buf); err != io.ErrNoProgress {
		t.Errorf("err = %v, want io.ErrNoProgress", err)
	}
}
