package filter

import (
	"math"
	"testing"
)

func TestSaturationCurvesBounded(t *testing.T) {
	r := NewResonanceEngine(48000.0)

	curves := []SaturationCurve{CurveTanh, CurveArctan, CurveCubic, CurveHardClip, CurveSigmoid}
	for _, curve := range curves {
		r.SetCurve(curve)
		for _, x := range []float64{-100, -1, -0.1, 0, 0.1, 1, 100} {
			y := r.Saturate(x)
			if math.Abs(y) > 1.0+1e-9 {
				t.Errorf("curve %d: |Saturate(%f)| = %f exceeds 1", curve, x, y)
			}
			if x != 0 && math.Signbit(y) != math.Signbit(x) && y != 0 {
				t.Errorf("curve %d: Saturate(%f) = %f flips sign", curve, x, y)
			}
		}
		// Small-signal region should be roughly linear
		if y := r.Saturate(0.01); math.Abs(y-0.01) > 0.005 {
			t.Errorf("curve %d: small-signal gain off: Saturate(0.01) = %f", curve, y)
		}
	}
}

func TestSaturationCurveMonotonic(t *testing.T) {
	r := NewResonanceEngine(48000.0)
	for _, curve := range []SaturationCurve{CurveTanh, CurveArctan, CurveHardClip, CurveSigmoid} {
		r.SetCurve(curve)
		prev := r.Saturate(-4.0)
		for x := -3.9; x <= 4.0; x += 0.1 {
			y := r.Saturate(x)
			if y < prev-1e-12 {
				t.Errorf("curve %d not monotonic at x=%f", curve, x)
			}
			prev = y
		}
	}
}

func TestStabilityLimiterEngages(t *testing.T) {
	const sampleRate = 48000.0
	r := NewResonanceEngine(sampleRate)

	// Hammer the engine with a large sustained tap at high gain
	for i := 0; i < int(sampleRate); i++ {
		r.Process(4.0, 4.4)
	}

	if r.LimiterGain() >= 0.99 {
		t.Errorf("limiter did not engage: gain %f", r.LimiterGain())
	}

	// The limited feedback should hover near the safety threshold, and the
	// engine must never fully mute the path
	fb := math.Abs(r.Feedback())
	if fb < 0.1 {
		t.Errorf("limiter muted the feedback path: %f", fb)
	}
	if fb > 2.0 {
		t.Errorf("limited feedback still excessive: %f", fb)
	}
}

func TestStabilityLimiterRecovers(t *testing.T) {
	const sampleRate = 48000.0
	r := NewResonanceEngine(sampleRate)

	for i := 0; i < int(sampleRate); i++ {
		r.Process(4.0, 4.4)
	}
	engaged := r.LimiterGain()

	// A second of quiet feedback lets the gain recover
	for i := 0; i < int(sampleRate); i++ {
		r.Process(0.01, 1.0)
	}
	if r.LimiterGain() <= engaged {
		t.Errorf("limiter gain did not recover: %f -> %f", engaged, r.LimiterGain())
	}
	if r.LimiterGain() < 0.95 {
		t.Errorf("limiter gain recovery incomplete: %f", r.LimiterGain())
	}
}

func TestResonanceEngineReset(t *testing.T) {
	r := NewResonanceEngine(48000.0)
	for i := 0; i < 48000; i++ {
		r.Process(4.0, 4.4)
	}
	r.Reset()
	if r.LimiterGain() != 1.0 || r.TrackedRMS() != 0.0 || r.Feedback() != 0.0 {
		t.Error("reset did not clear feedback-path state")
	}
}

func TestInvalidCurveFallsBack(t *testing.T) {
	r := NewResonanceEngine(48000.0)
	r.SetCurve(SaturationCurve(99))
	if r.Curve() != CurveTanh {
		t.Errorf("invalid curve not clamped: %d", r.Curve())
	}
}
