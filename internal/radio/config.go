package radio

import "time"

// DefaultPriorityBonus is the score added to Primary candidates so they win
// ties and near-ties without winning unconditionally.
const DefaultPriorityBonus = 5.0

// Config is the tuning consumed by the controller.
type Config struct {
	ScanEveryTicks  int           // reconcile every N ticks, >= 1
	MaxHearDistance float64       // scan half-extent and attenuation range
	Smoothing       float64       // 0..1, higher converges faster
	StopThreshold   float64       // smoothed volume at or below which a silent session is reaped
	MaxURLLength    int           // URLs are truncated to this length
	PriorityBonus   float64       // score bonus for Primary emitters
	ShortCooldown   time.Duration // after the backend reports a failed stream
	LongCooldown    time.Duration // after an open or volume push failure
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		ScanEveryTicks:  10,
		MaxHearDistance: 30,
		Smoothing:       0.20,
		StopThreshold:   0.50,
		MaxURLLength:    8192,
		PriorityBonus:   DefaultPriorityBonus,
		ShortCooldown:   5 * time.Second,
		LongCooldown:    10 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.ScanEveryTicks < 1 {
		c.ScanEveryTicks = 1
	}
	c.Smoothing = clamp01(c.Smoothing)
	if c.StopThreshold < 0 {
		c.StopThreshold = 0
	}
	if c.MaxHearDistance < 0 {
		c.MaxHearDistance = 0
	}
	return c
}
