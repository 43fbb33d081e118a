package utility

import "math"

// Clamp keeps value within [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampFinite keeps value within [min, max] and maps NaN/Inf to min.
// Parameter setters use this so caller-supplied garbage can never reach the
// audio thread.
func ClampFinite(value, min, max float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return min
	}
	return Clamp(value, min, max)
}

// Scale maps a normalized value (0-1) linearly onto [min, max].
func Scale(normalized, min, max float64) float64 {
	return min + normalized*(max-min)
}

// ScaleExp maps a normalized value (0-1) exponentially onto [min, max].
// Natural for frequency and time parameters.
func ScaleExp(normalized, min, max float64) float64 {
	if min <= 0 || max <= 0 {
		return Scale(normalized, min, max)
	}
	return min * math.Pow(max/min, normalized)
}

// DBToLinear converts decibels to linear gain.
func DBToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// LinearToDB converts linear gain to decibels, with a -96 dB floor.
func LinearToDB(linear float64) float64 {
	if linear <= 1e-5 {
		return -96.0
	}
	return 20.0 * math.Log10(linear)
}

// SmoothParameter smooths value changes with a one-pole filter to avoid
// zipper noise. The audio thread reads targets written from the UI thread;
// the smoothing absorbs any staleness (see the concurrency notes in DESIGN.md).
type SmoothParameter struct {
	current   float64
	target    float64
	smoothing float64
}

// NewSmoothParameter creates a parameter smoother.
// smoothingTime is in seconds, sampleRate in Hz.
func NewSmoothParameter(smoothingTime, sampleRate float64) *SmoothParameter {
	s := &SmoothParameter{}
	s.SetTimeConstant(smoothingTime, sampleRate)
	return s
}

// SetTimeConstant recomputes the smoothing coefficient. Called from Prepare,
// never per-sample.
func (s *SmoothParameter) SetTimeConstant(smoothingTime, sampleRate float64) {
	if smoothingTime <= 0 || sampleRate <= 0 {
		s.smoothing = 1.0
		return
	}
	s.smoothing = 1.0 - math.Exp(-1.0/(smoothingTime*sampleRate))
}

// SetTarget sets the value the smoother moves towards.
func (s *SmoothParameter) SetTarget(target float64) {
	s.target = target
}

// SetImmediate jumps to a value without smoothing.
func (s *SmoothParameter) SetImmediate(value float64) {
	s.current = value
	s.target = value
}

// Next advances the smoother one sample and returns the current value.
func (s *SmoothParameter) Next() float64 {
	s.current += (s.target - s.current) * s.smoothing
	return s.current
}

// Current returns the current value without advancing.
func (s *SmoothParameter) Current() float64 {
	return s.current
}

// Target returns the target value.
func (s *SmoothParameter) Target() float64 {
	return s.target
}

// IsSmoothing reports whether the smoother is still converging.
func (s *SmoothParameter) IsSmoothing() bool {
	const epsilon = 1e-6
	return math.Abs(s.current-s.target) > epsilon
}
