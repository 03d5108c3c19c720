package cadence

import (
	"math"
	"testing"
	"time"
)

func spaced(start time.Time, intervals ...time.Duration) []time.Time {
	times := []time.Time{start}
	for _, iv := range intervals {
		start = start.Add(iv)
		times = append(times, start)
	}
	return times
}

func repeat(n int, ivs ...time.Duration) []time.Duration {
	var out []time.Duration
	for len(out) < n {
		out = append(out, ivs...)
	}
	return out[:n]
}

func TestCompute_Stability(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	tests := []struct {
		name       string
		times      []time.Time
		window     time.Duration
		wantStable bool
		wantMean   float64
	}{
		{"even 1 fps", spaced(t0, repeat(29, time.Second)...), 30 * time.Second, true, 1},
		{"alternating half and one and a half", spaced(t0, repeat(30, 500*time.Millisecond, 1500*time.Millisecond)...), 31 * time.Second, false, 1},
		{"even 25 fps", spaced(t0, repeat(99, 40*time.Millisecond)...), 4 * time.Second, true, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.times, tt.window)
			if s.Stable != tt.wantStable {
				t.Errorf("Stable = %v, want %v (stddev %.3f, jitter %.3f)", s.Stable, tt.wantStable, s.FPSStdDev, s.JitterMean)
			}
			if math.Abs(s.FPSMean-tt.wantMean) > 1e-9 {
				t.Errorf("FPSMean = %v, want %v", s.FPSMean, tt.wantMean)
			}
			if s.Frames != len(tt.times) {
				t.Errorf("Frames = %d, want %d", s.Frames, len(tt.times))
			}
		})
	}
}

func TestCompute_RangeAndJitter(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	s := Compute(spaced(t0, repeat(30, 500*time.Millisecond, 1500*time.Millisecond)...), 31*time.Second)

	if math.Abs(s.FPSMax-2) > 1e-9 || math.Abs(s.FPSMin-1/1.5) > 1e-9 {
		t.Errorf("FPS range = %.3f - %.3f, want 0.667 - 2", s.FPSMin, s.FPSMax)
	}
	if math.Abs(s.JitterMean-0.5) > 1e-9 || math.Abs(s.JitterMax-0.5) > 1e-9 {
		t.Errorf("jitter mean/max = %.3f/%.3f, want 0.5/0.5", s.JitterMean, s.JitterMax)
	}
	if s.JitterStdDev > 1e-9 {
		t.Errorf("JitterStdDev = %v, want 0", s.JitterStdDev)
	}
	t.Logf("✅ range %.2f-%.2f fps, jitter %.2fs", s.FPSMin, s.FPSMax, s.JitterMean)
}

func TestCompute_EdgeCases(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		times  []time.Time
		window time.Duration
	}{
		{"no frames", nil, time.Second},
		{"one frame", []time.Time{now}, time.Second},
		{"same timestamp", []time.Time{now, now, now}, time.Second},
		{"zero window", []time.Time{now, now.Add(time.Second)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.times, tt.window)
			if s.Stable {
				t.Error("degenerate window reported stable")
			}
			if math.IsNaN(s.FPSStdDev) || math.IsNaN(s.JitterMean) {
				t.Errorf("NaN in summary: %+v", s)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	r := NewRecorder(t0)
	for i := 1; i <= 10; i++ {
		r.Mark(t0.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	s := r.Summary(t0.Add(time.Second))
	if s.Frames != 10 || math.Abs(s.FPSMean-10) > 1e-9 || !s.Stable {
		t.Errorf("Summary() = %+v, want 10 stable frames at 10 fps", s)
	}
}
