package radio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"spatial-radio/internal/platform/metrics"
)

// SnapshotSink receives the session list after every scan cycle. Publish is
// called on the tick goroutine and must not block.
type SnapshotSink interface {
	Publish(sessions []SessionSnapshot)
}

// Controller ties the pipeline together: every tick it runs the scan,
// arbitration and reconciliation (every ScanEveryTicks ticks) and then the
// Scheduler pass. When there is no listener it hard-resets every session.
type Controller struct {
	mu        sync.Mutex
	cfg       Config
	listeners ListenerSource
	scanner   *Scanner
	arbiter   *Arbiter
	registry  *Registry
	scheduler *Scheduler
	log       *slog.Logger
	metrics   *metrics.Metrics
	sink      SnapshotSink
	now       func() time.Time
	ticks     uint64
}

// NewController wires a Controller. m may be nil to disable metrics.
func NewController(cfg Config, provider EmitterProvider, listeners ListenerSource, master MasterSource, backend Backend, log *slog.Logger, m *metrics.Metrics) *Controller {
	cfg = cfg.normalized()
	registry := NewRegistry()
	return &Controller{
		cfg:       cfg,
		listeners: listeners,
		scanner:   NewScanner(provider, cfg.MaxURLLength),
		arbiter:   NewArbiter(cfg.MaxHearDistance, cfg.PriorityBonus, master),
		registry:  registry,
		scheduler: NewScheduler(registry, backend, cfg, log, m),
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// SetSink registers the receiver of per-scan snapshots. Pass nil to disable.
func (c *Controller) SetSink(sink SnapshotSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Tick advances the controller by one game tick. Reconciliation, when due,
// always completes before the Scheduler pass.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	l, ok := c.listeners.Listener()
	if !ok {
		if n := c.scheduler.StopAll(); n > 0 {
			c.log.Info("listener gone, stopped all sessions", slog.Int("sessions", n))
			if c.metrics != nil {
				c.metrics.IncHardResets()
			}
		}
		return
	}

	c.ticks++
	scanned := c.ticks%uint64(c.cfg.ScanEveryTicks) == 0
	if scanned {
		c.rescanLocked(l)
	}

	c.scheduler.Tick(now)

	if scanned && c.sink != nil {
		c.sink.Publish(c.snapshotLocked(now))
	}
}

// StopAll stops every session immediately.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler.StopAll()
}

// Snapshot returns a copy of every session, sorted by URL.
func (c *Controller) Snapshot() []SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.now())
}

// Counts returns the number of sessions and how many hold a decode handle.
func (c *Controller) Counts() (total, decoding int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, url := range c.registry.URLs() {
		total++
		if s, ok := c.registry.Get(url); ok && s.Decoding() {
			decoding++
		}
	}
	return total, decoding
}

// Run ticks c every interval until ctx is done, then stops every session.
func (c *Controller) Run(ctx context.Context, interval time.Duration, before ...func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Info("controller started", slog.Duration("tick", interval), slog.Int("scan_every_ticks", c.cfg.ScanEveryTicks))

	for {
		select {
		case <-ctx.Done():
			c.StopAll()
			c.log.Info("controller stopped")
			return
		case <-ticker.C:
			for _, fn := range before {
				fn()
			}
			c.Tick()
		}
	}
}

// rescanLocked runs scan, arbitration and reconciliation.
// Caller must hold c.mu.
func (c *Controller) rescanLocked(l Listener) {
	sources := c.scanner.Scan(l, c.cfg.MaxHearDistance)
	winners := c.arbiter.Arbitrate(l.Pos, sources)
	created := c.registry.Reconcile(winners)

	if c.metrics != nil {
		c.metrics.IncScans()
		for range created {
			c.metrics.IncSessionsCreated()
		}
	}
	if created > 0 {
		c.log.Debug("sessions created", slog.Int("count", created), slog.Int("audible_urls", len(winners)))
	}
}

// snapshotLocked copies the registry. Caller must hold c.mu.
func (c *Controller) snapshotLocked(now time.Time) []SessionSnapshot {
	urls := c.registry.URLs()
	out := make([]SessionSnapshot, 0, len(urls))
	for _, url := range urls {
		if s, ok := c.registry.Get(url); ok {
			out = append(out, s.snapshot(now))
		}
	}
	return out
}
