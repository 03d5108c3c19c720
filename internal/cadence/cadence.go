// Package cadence summarizes how evenly frames were delivered to a consumer.
package cadence

import (
	"math"
	"time"
)

const (
	// rateStabilityThreshold is the allowed instantaneous rate stddev as a
	// fraction of the mean rate.
	rateStabilityThreshold = 0.15

	// jitterStabilityThreshold is the allowed mean jitter as a fraction of
	// the expected interval.
	jitterStabilityThreshold = 0.20
)

// Summary describes delivery timing over a window of reads
type Summary struct {
	Frames   int
	Duration time.Duration

	FPSMean   float64
	FPSStdDev float64
	FPSMin    float64
	FPSMax    float64

	// Jitter is the deviation from the expected interval, in seconds
	JitterMean   float64
	JitterStdDev float64
	JitterMax    float64

	Stable bool
}

// Recorder collects delivery timestamps. Not safe for concurrent use.
type Recorder struct {
	start time.Time
	times []time.Time
}

// NewRecorder starts a window at now.
func NewRecorder(now time.Time) *Recorder {
	return &Recorder{start: now}
}

// Mark records one delivered frame.
func (r *Recorder) Mark(t time.Time) {
	r.times = append(r.times, t)
}

// Summary computes the window up to now.
func (r *Recorder) Summary(now time.Time) Summary {
	return Compute(r.times, now.Sub(r.start))
}

// Compute derives rate and jitter statistics from delivery timestamps.
// A window is stable when the rate stddev stays under 15% of the mean and
// the mean jitter under 20% of the expected interval.
func Compute(times []time.Time, window time.Duration) Summary {
	s := Summary{Frames: len(times), Duration: window}
	if len(times) == 0 || window <= 0 {
		return s
	}
	s.FPSMean = float64(len(times)) / window.Seconds()

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	rates := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if iv > 0 {
			rates = append(rates, 1/iv)
		}
	}
	if len(rates) == 0 {
		return s
	}

	s.FPSMin, s.FPSMax = rates[0], rates[0]
	for _, r := range rates {
		s.FPSMin = math.Min(s.FPSMin, r)
		s.FPSMax = math.Max(s.FPSMax, r)
	}
	s.FPSStdDev = stddevAround(rates, s.FPSMean)

	expected := 1 / s.FPSMean
	jitters := make([]float64, len(intervals))
	var sum float64
	for i, iv := range intervals {
		jitters[i] = math.Abs(iv - expected)
		sum += jitters[i]
		s.JitterMax = math.Max(s.JitterMax, jitters[i])
	}
	s.JitterMean = sum / float64(len(jitters))
	s.JitterStdDev = stddevAround(jitters, s.JitterMean)

	s.Stable = s.FPSStdDev < s.FPSMean*rateStabilityThreshold &&
		s.JitterMean < expected*jitterStabilityThreshold
	return s
}

func stddevAround(values []float64, mean float64) float64 {
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
