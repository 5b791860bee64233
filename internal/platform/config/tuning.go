package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the audio, validation and world settings read from the
// optional YAML tuning file. Every field has a default; values outside the
// supported range are clamped by Clamp.
type Tuning struct {
	Audio      AudioTuning      `yaml:"audio"`
	Validation ValidationTuning `yaml:"validation"`
	World      WorldTuning      `yaml:"world"`
}

type AudioTuning struct {
	ScanEveryTicks   int           `yaml:"scan_every_ticks"`
	MaxHearDistance  int           `yaml:"max_hear_distance"`
	Smoothing        float64       `yaml:"smoothing"`
	StopThreshold    float64       `yaml:"stop_threshold"`
	DefaultVolume    int           `yaml:"default_volume"`
	DefaultStreamURL string        `yaml:"default_stream_url"`
	PriorityBonus    float64       `yaml:"priority_bonus"`
	ShortCooldown    time.Duration `yaml:"short_cooldown"`
	LongCooldown     time.Duration `yaml:"long_cooldown"`
}

type ValidationTuning struct {
	MaxURLLength int `yaml:"max_url_length"`
}

type WorldTuning struct {
	RelayRefreshTicks int `yaml:"relay_refresh_ticks"`
}

// DefaultTuning returns the built-in tuning values.
func DefaultTuning() *Tuning {
	return &Tuning{
		Audio: AudioTuning{
			ScanEveryTicks:  10,
			MaxHearDistance: 30,
			Smoothing:       0.20,
			StopThreshold:   0.50,
			DefaultVolume:   50,
			PriorityBonus:   5.0,
			ShortCooldown:   5 * time.Second,
			LongCooldown:    10 * time.Second,
		},
		Validation: ValidationTuning{
			MaxURLLength: 8192,
		},
		World: WorldTuning{
			RelayRefreshTicks: 10,
		},
	}
}

// LoadTuning decodes the YAML file at path over the defaults and clamps the
// result. An empty path returns the defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, err
	}

	t.Clamp()
	return t, nil
}

// Clamp forces every value into its supported range.
func (t *Tuning) Clamp() {
	a := &t.Audio
	a.ScanEveryTicks = clampInt(a.ScanEveryTicks, 1, 200)
	a.MaxHearDistance = clampInt(a.MaxHearDistance, 4, 128)
	a.Smoothing = clampFloat(a.Smoothing, 0.01, 1.0)
	a.StopThreshold = clampFloat(a.StopThreshold, 0, 5.0)
	a.DefaultVolume = clampInt(a.DefaultVolume, 0, 100)
	if a.PriorityBonus < 0 {
		a.PriorityBonus = 0
	}
	if a.ShortCooldown < 0 {
		a.ShortCooldown = 0
	}
	if a.LongCooldown < 0 {
		a.LongCooldown = 0
	}

	t.Validation.MaxURLLength = clampInt(t.Validation.MaxURLLength, 128, 16384)
	t.World.RelayRefreshTicks = clampInt(t.World.RelayRefreshTicks, 1, 200)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
