package filter

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// SaturationCurve selects the feedback-path nonlinearity. A closed enum
// switched in the hot path; no interface dispatch.
type SaturationCurve int

const (
	// CurveTanh is the classic transistor-ladder hyperbolic tangent
	CurveTanh SaturationCurve = iota
	// CurveArctan is a slightly brighter arctangent shape
	CurveArctan
	// CurveCubic is a polynomial soft clip, cheapest of the smooth curves
	CurveCubic
	// CurveHardClip clips at +/-1 with no rounding
	CurveHardClip
	// CurveSigmoid is a logistic shape with a softer shoulder than tanh
	CurveSigmoid
)

// Defaults for the stability limiter.
const (
	defaultSafetyRMS  = 1.0
	limiterAttackTime = 0.001 // 1ms clamp-down
	limiterReleaseTin = 0.080 // 80ms recovery
	rmsWindowTime     = 0.020 // 20ms running window
)

// ResonanceEngine computes the ladder filter's feedback sample: it saturates
// the stage-4 tap, tracks a running RMS of the feedback magnitude, and backs
// the gain off when the tracked level exceeds the safety threshold. This
// bounds self-oscillation without killing it. The engine owns only
// feedback-path state; the ladder owns its pole states.
type ResonanceEngine struct {
	curve     SaturationCurve
	safetyRMS float64

	// Running mean-square tracker (one-pole)
	rmsCoef    float64
	meanSquare float64

	// Stability limiter gain, eased with separate attack/release
	limiterGain float64
	attackCoef  float64
	releaseCoef float64

	lastFeedback float64
}

// NewResonanceEngine creates a resonance engine with the tanh curve.
func NewResonanceEngine(sampleRate float64) *ResonanceEngine {
	r := &ResonanceEngine{
		curve:       CurveTanh,
		safetyRMS:   defaultSafetyRMS,
		limiterGain: 1.0,
	}
	r.SetSampleRate(sampleRate)
	return r
}

// SetSampleRate recomputes the tracker time constants.
func (r *ResonanceEngine) SetSampleRate(sampleRate float64) {
	r.rmsCoef = 1.0 - math.Exp(-1.0/(rmsWindowTime*sampleRate))
	r.attackCoef = math.Exp(-1.0 / (limiterAttackTime * sampleRate))
	r.releaseCoef = math.Exp(-1.0 / (limiterReleaseTin * sampleRate))
}

// SetCurve selects the feedback saturation curve.
func (r *ResonanceEngine) SetCurve(curve SaturationCurve) {
	if curve < CurveTanh || curve > CurveSigmoid {
		curve = CurveTanh
	}
	r.curve = curve
}

// Curve returns the active saturation curve.
func (r *ResonanceEngine) Curve() SaturationCurve {
	return r.curve
}

// SetSafetyThreshold sets the RMS level above which the limiter engages.
func (r *ResonanceEngine) SetSafetyThreshold(rms float64) {
	r.safetyRMS = utility.ClampFinite(rms, 0.1, 8.0)
}

// Saturate applies the selected curve to x.
func (r *ResonanceEngine) Saturate(x float64) float64 {
	switch r.curve {
	case CurveArctan:
		return math.Atan(x) * (2.0 / math.Pi)
	case CurveCubic:
		if x > 1.0 {
			return 2.0 / 3.0
		}
		if x < -1.0 {
			return -2.0 / 3.0
		}
		return x - x*x*x/3.0
	case CurveHardClip:
		if x > 1.0 {
			return 1.0
		}
		if x < -1.0 {
			return -1.0
		}
		return x
	case CurveSigmoid:
		return 2.0/(1.0+math.Exp(-2.0*x)) - 1.0
	default:
		return math.Tanh(x)
	}
}

// Process computes the feedback sample for one tap value. gain is the
// resonance feedback amount the ladder wants applied (already scaled into
// the 0..~4.4 ladder range).
func (r *ResonanceEngine) Process(tap, gain float64) float64 {
	fb := gain * r.Saturate(tap)

	// Track the running RMS of the feedback signal
	r.meanSquare += r.rmsCoef * (fb*fb - r.meanSquare)
	r.meanSquare = utility.FlushDenormal(r.meanSquare)
	rms := math.Sqrt(r.meanSquare)

	// Gain reduction above the safety threshold; eased so the correction
	// itself does not modulate audibly
	target := 1.0
	if rms > r.safetyRMS {
		target = r.safetyRMS / rms
	}
	if target < r.limiterGain {
		r.limiterGain = target + (r.limiterGain-target)*r.attackCoef
	} else {
		r.limiterGain = target + (r.limiterGain-target)*r.releaseCoef
	}

	r.lastFeedback = utility.FlushDenormal(fb * r.limiterGain)
	return r.lastFeedback
}

// Feedback returns the most recent feedback sample.
func (r *ResonanceEngine) Feedback() float64 {
	return r.lastFeedback
}

// LimiterGain returns the current stability gain (1.0 = inactive).
func (r *ResonanceEngine) LimiterGain() float64 {
	return r.limiterGain
}

// TrackedRMS returns the running RMS of the feedback path.
func (r *ResonanceEngine) TrackedRMS() float64 {
	return math.Sqrt(r.meanSquare)
}

// Reset clears all feedback-path state.
func (r *ResonanceEngine) Reset() {
	r.meanSquare = 0
	r.limiterGain = 1.0
	r.lastFeedback = 0
}
