package radio

import (
	"math"
	"time"
)

// BlockPos is an integer position in the world.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Vec returns the position as a float vector.
func (p BlockPos) Vec() Vec3 {
	return Vec3{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// Vec3 is a float position, used for the listener.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Listener is the local observer: where it stands and which dimension it is in.
type Listener struct {
	Dimension string `json:"dimension"`
	Pos       Vec3   `json:"pos"`
}

// Priority is the arbitration class of an emitter.
type Priority int

const (
	PrioritySecondary Priority = 1 // relays (speakers)
	PriorityPrimary   Priority = 2 // sources (radios)
)

func (p Priority) String() string {
	switch p {
	case PriorityPrimary:
		return "primary"
	case PrioritySecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// RawSource is one emitter as seen by a single scan pass.
type RawSource struct {
	Pos      BlockPos
	URL      string // sanitized; empty means none
	Playing  bool
	Volume   int // 0..100
	Priority Priority
}

// Candidate is the winning emitter for one URL in one arbitration pass.
type Candidate struct {
	Pos      BlockPos
	Priority Priority
	Target   float64 // 0..100
}

// SessionState is the effective lifecycle state of a StreamSession. States are
// derived each tick from handle presence, target and cooldown.
type SessionState int

const (
	StateIdle SessionState = iota
	StateStarting
	StateActive
	StateFadingOut
	StateCoolingDown
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateFadingOut:
		return "fading_out"
	case StateCoolingDown:
		return "cooling_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StreamSession is the single managed playback lifecycle for one URL.
// Target and emitter are written by reconciliation; everything else is owned
// by the Scheduler.
type StreamSession struct {
	URL            string
	State          SessionState
	SmoothedVolume float64
	TargetVolume   float64
	Emitter        *BlockPos // nil when the URL was not heard in the last scan
	CooldownUntil  time.Time

	handle Handle
}

// Decoding reports whether the session currently holds a backend handle.
func (s *StreamSession) Decoding() bool {
	return s.handle != nil
}

// SessionSnapshot is a copy of a session safe to hand to other goroutines.
type SessionSnapshot struct {
	URL            string     `json:"url"`
	State          string     `json:"state"`
	SmoothedVolume float64    `json:"smoothed_volume"`
	TargetVolume   float64    `json:"target_volume"`
	Emitter        *BlockPos  `json:"emitter,omitempty"`
	CooldownUntil  *time.Time `json:"cooldown_until,omitempty"`
	Decoding       bool       `json:"decoding"`
}

func (s *StreamSession) snapshot(now time.Time) SessionSnapshot {
	snap := SessionSnapshot{
		URL:            s.URL,
		State:          s.State.String(),
		SmoothedVolume: s.SmoothedVolume,
		TargetVolume:   s.TargetVolume,
		Decoding:       s.handle != nil,
	}
	if s.Emitter != nil {
		p := *s.Emitter
		snap.Emitter = &p
	}
	if s.CooldownUntil.After(now) {
		c := s.CooldownUntil
		snap.CooldownUntil = &c
	}
	return snap
}
