package radio

import (
	"log/slog"
	"time"

	"spatial-radio/internal/platform/metrics"
)

// Scheduler advances every session once per tick: it smooths the volume
// toward the target and opens, drives, fails over or reaps the backend
// handle. It is the only writer of smoothed volume, state and handle.
type Scheduler struct {
	registry *Registry
	backend  Backend
	cfg      Config
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewScheduler returns a Scheduler. m may be nil to disable metrics.
func NewScheduler(registry *Registry, backend Backend, cfg Config, log *slog.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		registry: registry,
		backend:  backend,
		cfg:      cfg.normalized(),
		log:      log,
		metrics:  m,
	}
}

// Tick runs one pass over every session and evicts the ones that finished
// fading out.
func (s *Scheduler) Tick(now time.Time) {
	for _, url := range s.registry.URLs() {
		sess, ok := s.registry.Get(url)
		if !ok {
			continue
		}
		if s.step(sess, now) {
			s.registry.Remove(url)
			s.log.Debug("session reaped", slog.String("url", url))
			if s.metrics != nil {
				s.metrics.IncSessionsReaped()
			}
		}
	}
}

// StopAll releases every handle and empties the registry.
func (s *Scheduler) StopAll() int {
	urls := s.registry.URLs()
	for _, url := range urls {
		if sess, ok := s.registry.Get(url); ok {
			s.release(sess)
			sess.State = StateStopped
		}
		s.registry.Remove(url)
	}
	return len(urls)
}

// step advances one session and reports whether it should be removed.
func (s *Scheduler) step(sess *StreamSession, now time.Time) bool {
	sess.TargetVolume = clampVolume(sess.TargetVolume)
	sess.SmoothedVolume = clampVolume(sess.SmoothedVolume + (sess.TargetVolume-sess.SmoothedVolume)*s.cfg.Smoothing)
	if sess.SmoothedVolume < silenceEpsilon {
		sess.SmoothedVolume = 0
	}

	silent := sess.TargetVolume <= silenceEpsilon
	if silent && sess.SmoothedVolume <= s.cfg.StopThreshold {
		s.release(sess)
		sess.State = StateStopped
		return true
	}

	if silent {
		// Fade out on the existing handle; never open a stream to fade it.
		if sess.handle != nil {
			if s.push(sess, now) {
				sess.State = StateFadingOut
			}
			return false
		}
		sess.State = s.handleLessState(sess, now)
		return false
	}

	if sess.handle == nil && sess.CooldownUntil.After(now) {
		sess.State = StateCoolingDown
		return false
	}

	if sess.handle == nil {
		s.open(sess, now)
		return false
	}

	if sess.handle.PollFailed() {
		if s.metrics != nil {
			s.metrics.IncStreamFailures()
		}
		s.fail(sess, now, s.cfg.ShortCooldown, "stream failed", nil)
		return false
	}

	if s.push(sess, now) {
		sess.State = StateActive
	}
	return false
}

// push sends the smoothed volume to the handle. On error the handle is
// released under the long cooldown and push reports false.
func (s *Scheduler) push(sess *StreamSession, now time.Time) bool {
	err := sess.handle.SetVolume(roundVolume(sess.SmoothedVolume))
	if err == nil {
		return true
	}
	if s.metrics != nil {
		s.metrics.IncVolumePushFailures()
	}
	s.fail(sess, now, s.cfg.LongCooldown, "volume push failed", err)
	return false
}

func (s *Scheduler) open(sess *StreamSession, now time.Time) {
	h, err := s.backend.Open(sess.URL, roundVolume(sess.SmoothedVolume))
	if err != nil {
		if h != nil {
			h.Stop()
		}
		if s.metrics != nil {
			s.metrics.IncDecodeOpenFailures()
		}
		s.fail(sess, now, s.cfg.LongCooldown, "decode open failed", err)
		return
	}
	sess.handle = h
	sess.State = StateStarting
	s.log.Debug("decode opened",
		slog.String("url", sess.URL),
		slog.Int("volume", roundVolume(sess.SmoothedVolume)))
	if s.metrics != nil {
		s.metrics.IncDecodeOpens()
	}
}

// fail releases the handle and arms the cooldown. Target and smoothed volume
// are kept so the session resumes once the cooldown expires.
func (s *Scheduler) fail(sess *StreamSession, now time.Time, cooldown time.Duration, msg string, err error) {
	s.release(sess)
	sess.CooldownUntil = now.Add(cooldown)
	sess.State = StateCoolingDown

	attrs := []any{slog.String("url", sess.URL), slog.Duration("cooldown", cooldown)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.log.Warn(msg, attrs...)
}

func (s *Scheduler) release(sess *StreamSession) {
	if sess.handle == nil {
		return
	}
	sess.handle.Stop()
	sess.handle = nil
}

func (s *Scheduler) handleLessState(sess *StreamSession, now time.Time) SessionState {
	if sess.CooldownUntil.After(now) {
		return StateCoolingDown
	}
	return StateIdle
}
