package playback

import (
	"io"
	"math"
)

const bytesPerFrame = 8 // stereo float32 little-endian

// maxEmptyReads bounds how many (0, nil) reads a source may return in a row.
const maxEmptyReads = 100

// pcmReader renders a pcmSource as stereo float32 LE at outRate, linearly
// interpolating between source frames. Mono is duplicated to both channels;
// channels beyond the second are dropped.
type pcmReader struct {
	src    pcmSource
	step   float64 // source frames per output frame
	pos    float64 // position in frames, relative to frames[0]
	frames [][2]float32
	in     []float32
	err    error
}

func newPCMReader(src pcmSource, outRate int) *pcmReader {
	step := 1.0
	if sr := src.SampleRate(); sr > 0 && outRate > 0 {
		step = float64(sr) / float64(outRate)
	}
	return &pcmReader{src: src, step: step, in: make([]float32, 4096)}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	n := 0
	for n+bytesPerFrame <= len(p) {
		i := int(r.pos)
		for i+1 >= len(r.frames) {
			if r.err != nil {
				if n > 0 {
					return n, nil
				}
				return 0, r.err
			}
			r.fill()
			i = int(r.pos)
		}

		t := float32(r.pos - float64(i))
		a, b := r.frames[i], r.frames[i+1]
		putFloat32(p[n:], a[0]+(b[0]-a[0])*t)
		putFloat32(p[n+4:], a[1]+(b[1]-a[1])*t)
		n += bytesPerFrame
		r.pos += r.step
	}
	return n, nil
}

// fill drops consumed frames and decodes more from the source.
func (r *pcmReader) fill() {
	if drop := int(r.pos); drop > 0 {
		drop = min(drop, len(r.frames))
		r.frames = append(r.frames[:0], r.frames[drop:]...)
		r.pos -= float64(drop)
	}

	ch := r.src.Channels()
	if ch < 1 {
		r.err = ErrUnsupportedFormat
		return
	}
	for range maxEmptyReads {
		got, err := r.src.ReadSamples(r.in)
		for f := 0; f+ch <= got; f += ch {
			left := r.in[f]
			right := left
			if ch > 1 {
				right = r.in[f+1]
			}
			r.frames = append(r.frames, [2]float32{left, right})
		}
		if err != nil {
			r.err = err
			return
		}
		if got > 0 {
			return
		}
	}
	r.err = io.ErrNoProgress
}

func putFloat32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
