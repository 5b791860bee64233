package radio

import (
	"iter"
)

// Arbiter picks one winning emitter per URL from a scan.
type Arbiter struct {
	maxRange float64
	bonus    float64
	master   MasterSource
}

// NewArbiter returns an Arbiter. bonus is the score added to Primary
// candidates; master may be nil for a fixed master volume of 1.
func NewArbiter(maxRange, bonus float64, master MasterSource) *Arbiter {
	return &Arbiter{maxRange: maxRange, bonus: bonus, master: master}
}

// Arbitrate consumes sources and returns the best candidate per URL.
// Silent, stopped and URL-less sources are skipped. A candidate replaces the
// current winner only on a strictly greater score, so the first seen wins
// exact ties.
func (a *Arbiter) Arbitrate(listener Vec3, sources iter.Seq[RawSource]) map[string]Candidate {
	best := make(map[string]Candidate)
	for src := range sources {
		if src.URL == "" || !src.Playing {
			continue
		}

		target := TargetLoudness(listener, src.Pos.Vec(), src.Volume, a.maxRange, a.masterVolume())
		if target <= silenceEpsilon {
			continue
		}

		cand := Candidate{Pos: src.Pos, Priority: src.Priority, Target: clampVolume(target)}
		prev, ok := best[src.URL]
		if !ok || a.score(cand) > a.score(prev) {
			best[src.URL] = cand
		}
	}
	return best
}

func (a *Arbiter) score(c Candidate) float64 {
	if c.Priority == PriorityPrimary {
		return c.Target + a.bonus
	}
	return c.Target
}

func (a *Arbiter) masterVolume() float64 {
	if a.master == nil {
		return 1
	}
	return a.master.Master()
}
