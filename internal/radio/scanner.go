package radio

import (
	"iter"
	"math"
)

// EmitterProvider enumerates loaded emitters around a point. Each call returns
// a fresh, finite sequence; no iterator state survives between scans. The
// provider may yield emitters slightly outside the cube; the Scanner filters.
type EmitterProvider interface {
	EmittersInRegion(dimension string, center Vec3, halfExtent float64) iter.Seq[RawSource]
}

// Scanner turns the provider's emitters into sanitized RawSource records
// inside the listener's hearing cube. Output order is unspecified.
type Scanner struct {
	provider     EmitterProvider
	maxURLLength int
}

// NewScanner returns a Scanner over provider.
func NewScanner(provider EmitterProvider, maxURLLength int) *Scanner {
	return &Scanner{provider: provider, maxURLLength: maxURLLength}
}

// Scan yields every emitter within the axis-aligned cube of half-width
// maxRange centered on the listener. URLs that are not http(s) come out empty.
func (s *Scanner) Scan(l Listener, maxRange float64) iter.Seq[RawSource] {
	return func(yield func(RawSource) bool) {
		if s.provider == nil || maxRange <= 0 {
			return
		}
		for src := range s.provider.EmittersInRegion(l.Dimension, l.Pos, maxRange) {
			if !inCube(l.Pos, src.Pos.Vec(), maxRange) {
				continue
			}
			src.URL = SanitizeURL(src.URL, s.maxURLLength)
			if !yield(src) {
				return
			}
		}
	}
}

func inCube(center, p Vec3, half float64) bool {
	return math.Abs(p.X-center.X) <= half &&
		math.Abs(p.Y-center.Y) <= half &&
		math.Abs(p.Z-center.Z) <= half
}
