package radio

import (
	"math"
	"strings"
	"testing"
)

func TestTargetLoudness_scenario(t *testing.T) {
	got := TargetLoudness(Vec3{}, Vec3{X: 10}, 100, 30, 1.0)
	if math.Abs(got-66.6667) > 0.001 {
		t.Errorf("TargetLoudness at 10/30 = %v, want ~66.67", got)
	}
}

func TestTargetLoudness_boundary(t *testing.T) {
	if got := TargetLoudness(Vec3{}, Vec3{X: 30}, 100, 30, 1.0); got != 0 {
		t.Errorf("at maxRange = %v, want exactly 0", got)
	}
	if got := TargetLoudness(Vec3{}, Vec3{X: 40}, 100, 30, 1.0); got != 0 {
		t.Errorf("beyond maxRange = %v, want exactly 0", got)
	}
	if got := TargetLoudness(Vec3{}, Vec3{X: 29.999}, 1, 30, 0.01); got <= 0 {
		t.Errorf("just inside maxRange = %v, want > 0", got)
	}
}

func TestTargetLoudness_silentInputs(t *testing.T) {
	tests := []struct {
		name   string
		volume int
		master float64
	}{
		{"zero volume", 0, 1},
		{"negative volume", -5, 1},
		{"zero master", 100, 0},
	}
	for _, tt := range tests {
		if got := TargetLoudness(Vec3{}, Vec3{X: 1}, tt.volume, 30, tt.master); got != 0 {
			t.Errorf("%s: got %v, want 0", tt.name, got)
		}
	}
}

func TestTargetLoudness_clampsInputs(t *testing.T) {
	got := TargetLoudness(Vec3{}, Vec3{}, 250, 30, 3)
	if got != 100 {
		t.Errorf("over-range volume and master at distance 0 = %v, want 100", got)
	}
	half := TargetLoudness(Vec3{}, Vec3{}, 50, 30, 1)
	if half != 50 {
		t.Errorf("volume 50 at distance 0 = %v, want 50", half)
	}
}

func TestTargetLoudness_deterministic(t *testing.T) {
	a := TargetLoudness(Vec3{X: 1.5, Y: 64, Z: -3}, Vec3{X: 7, Y: 60, Z: 2}, 73, 30, 0.8)
	b := TargetLoudness(Vec3{X: 1.5, Y: 64, Z: -3}, Vec3{X: 7, Y: 60, Z: 2}, 73, 30, 0.8)
	if a != b {
		t.Errorf("identical inputs gave %v and %v", a, b)
	}
}

func TestSanitizeURL(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("x", 200)
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"trims whitespace", "  https://example.com/s.mp3 \n", 0, "https://example.com/s.mp3"},
		{"http allowed", "http://example.com/s", 0, "http://example.com/s"},
		{"empty", "   ", 0, ""},
		{"ftp rejected", "ftp://example.com/s.mp3", 0, ""},
		{"file rejected", "file:///etc/passwd", 0, ""},
		{"no scheme rejected", "example.com/s.mp3", 0, ""},
		{"truncated", long, 30, long[:30]},
		{"no limit", long, 0, long},
	}
	for _, tt := range tests {
		if got := SanitizeURL(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("%s: SanitizeURL(%q, %d) = %q, want %q", tt.name, tt.in, tt.maxLen, got, tt.want)
		}
	}
}
