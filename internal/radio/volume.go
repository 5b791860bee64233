package radio

import (
	"math"
	"sync/atomic"
)

// MasterSource supplies the global volume scalar, 0..1.
type MasterSource interface {
	Master() float64
}

// MasterVolume is a concurrency-safe master volume. It is written by the admin
// API and read on the tick goroutine.
type MasterVolume struct {
	bits atomic.Uint64
}

// NewMasterVolume returns a MasterVolume set to v (clamped to 0..1).
func NewMasterVolume(v float64) *MasterVolume {
	m := &MasterVolume{}
	m.Set(v)
	return m
}

// Master implements MasterSource.
func (m *MasterVolume) Master() float64 {
	return math.Float64frombits(m.bits.Load())
}

// Set stores v clamped to 0..1 and returns the stored value.
func (m *MasterVolume) Set(v float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	v = clamp01(v)
	m.bits.Store(math.Float64bits(v))
	return v
}
