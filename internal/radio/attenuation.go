package radio

import (
	"math"
	"strings"
)

// silenceEpsilon is the loudness below which a target or smoothed volume
// counts as zero.
const silenceEpsilon = 0.001

// TargetLoudness returns how loud a source should sound to the listener, 0..100.
// Falloff is linear: full volume at the source, silent at maxRange and beyond.
// master is the global volume scalar (0..1) applied to every source.
func TargetLoudness(listener, source Vec3, rawVolume int, maxRange, master float64) float64 {
	if rawVolume <= 0 || maxRange <= 0 {
		return 0
	}
	dist := listener.DistanceTo(source)
	if dist >= maxRange {
		return 0
	}

	atten := 1 - dist/maxRange
	return clamp01(atten) * clamp01(float64(rawVolume)/100) * clamp01(master) * 100
}

// SanitizeURL trims url and returns it only if it is an http(s) URL, truncated
// to maxLen bytes (maxLen <= 0 disables truncation). Anything else yields "".
func SanitizeURL(url string, maxLen int) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if !IsStreamURL(url) {
		return ""
	}
	if maxLen > 0 && len(url) > maxLen {
		url = url[:maxLen]
	}
	return url
}

// IsStreamURL reports whether url has an http:// or https:// prefix.
func IsStreamURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampVolume(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// roundVolume converts a 0..100 float volume to the integer the backend takes.
func roundVolume(v float64) int {
	return int(math.Round(clampVolume(v)))
}
