package filter

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// Ladder parameter ranges.
const (
	minCutoffHz  = 20.0
	maxCutoffHz  = 20000.0
	minDrive     = 0.0
	maxDrive     = 10.0
	minLadderRes = 0.0
	maxLadderRes = 1.0

	// Internal stage clamp; keeps the integrators finite under any drive
	// and resonance
	stateLimit = 32.0

	// resonance 0..1 maps to this feedback gain before compensation.
	// Values above 4 push the loop past unity and into self-oscillation,
	// which begins around resonance 0.9.
	maxFeedbackGain = 4.4

	// drive floor for the nonlinearity input scale
	minDriveScale = 0.025
)

// Ladder is a nonlinear 24 dB/octave lowpass modeled on the transistor
// ladder topology: four cascaded one-pole stages, each saturating its input
// with tanh, and a global feedback path from the fourth stage through the
// ResonanceEngine. Cutoff and resonance are smoothed; optional 2x/4x
// oversampling reduces aliasing from the nonlinearity.
type Ladder struct {
	sampleRate float64

	cutoff       *utility.SmoothParameter // Hz
	resonance    *utility.SmoothParameter // 0-1
	drive        float64
	oversampling int

	res *ResonanceEngine

	// Pole states (the ladder rungs) and their cached saturations
	stages   [4]float64
	tanhLast [4]float64

	// Coefficients, recomputed only when the smoothed controls move
	coefficient  float64
	feedbackGain float64
	driveScale   float64
	outputScale  float64
	lastCutoff   float64
	lastRes      float64

	// Decimation lowpass for the oversampled path
	aaState float64
	aaCoef  float64
}

// NewLadder creates a ladder filter at 1 kHz cutoff, no resonance, unity
// drive.
func NewLadder(sampleRate float64) *Ladder {
	l := &Ladder{
		sampleRate:   sampleRate,
		cutoff:       utility.NewSmoothParameter(0.005, sampleRate),
		resonance:    utility.NewSmoothParameter(0.005, sampleRate),
		drive:        1.0,
		oversampling: 1,
		res:          NewResonanceEngine(sampleRate),
	}
	l.cutoff.SetImmediate(1000.0)
	l.resonance.SetImmediate(0.0)
	l.lastCutoff = -1 // force first recompute
	l.updateOversampling()
	return l
}

// SetSampleRate rebuilds every rate-dependent coefficient. Call from
// prepare, never from the audio callback.
func (l *Ladder) SetSampleRate(sampleRate float64) {
	l.sampleRate = sampleRate
	l.cutoff.SetTimeConstant(0.005, sampleRate)
	l.resonance.SetTimeConstant(0.005, sampleRate)
	l.res.SetSampleRate(sampleRate * float64(l.oversampling))
	l.lastCutoff = -1
	l.updateOversampling()
}

// SetCutoff sets the cutoff target in Hz (smoothed, clamped to 20 Hz-20 kHz
// and below Nyquist).
func (l *Ladder) SetCutoff(hz float64) {
	hz = utility.ClampFinite(hz, minCutoffHz, math.Min(maxCutoffHz, l.sampleRate*0.45))
	l.cutoff.SetTarget(hz)
}

// SetResonance sets the resonance target (0-1, smoothed). Values of 0.9 and
// above enter the self-oscillation region.
func (l *Ladder) SetResonance(amount float64) {
	l.resonance.SetTarget(utility.ClampFinite(amount, minLadderRes, maxLadderRes))
}

// SetDrive sets the input gain into the stage nonlinearities (0-10). Output
// level is compensated so drive changes saturation, not loudness.
func (l *Ladder) SetDrive(drive float64) {
	l.drive = utility.ClampFinite(drive, minDrive, maxDrive)
	l.lastCutoff = -1
}

// SetOversampling selects the oversampling factor: 1, 2, or 4. Other values
// clamp to the nearest supported factor.
func (l *Ladder) SetOversampling(factor int) {
	switch {
	case factor >= 4:
		l.oversampling = 4
	case factor >= 2:
		l.oversampling = 2
	default:
		l.oversampling = 1
	}
	l.updateOversampling()
}

// Oversampling returns the active oversampling factor.
func (l *Ladder) Oversampling() int {
	return l.oversampling
}

// ResonanceEngine exposes the feedback engine for curve selection and
// stability tuning.
func (l *Ladder) ResonanceEngine() *ResonanceEngine {
	return l.res
}

func (l *Ladder) updateOversampling() {
	// One-pole anti-alias pole on the oversampled stream, cutting at 45%
	// of the base Nyquist before decimation
	effRate := l.sampleRate * float64(l.oversampling)
	l.aaCoef = math.Exp(-2.0 * math.Pi * 0.45 * (l.sampleRate * 0.5) / effRate)
	l.res.SetSampleRate(effRate)
	l.lastCutoff = -1
}

// updateCoefficients applies the Huovilainen cutoff and resonance
// compensation polynomials for the current smoothed control values.
func (l *Ladder) updateCoefficients(cutoffHz, resonance float64) {
	effRate := l.sampleRate * float64(l.oversampling)
	fc := cutoffHz / effRate

	fcr := 1.8730*fc*fc*fc + 0.4955*fc*fc - 0.6490*fc + 0.9988
	if fcr < 0 {
		fcr = 0
	}
	l.coefficient = 2.0 * (1.0 - math.Exp(-2.0*math.Pi*fcr*fc))

	resComp := -3.9364*fc*fc + 1.8409*fc + 0.9968
	if resComp < 0 {
		resComp = 0
	}
	l.feedbackGain = resonance * maxFeedbackGain * resComp

	l.driveScale = 0.5 * l.drive
	if l.driveScale < minDriveScale {
		l.driveScale = minDriveScale
	}
	l.outputScale = (1.0 / l.driveScale) / (1.0 + 0.5*l.feedbackGain)

	l.lastCutoff = cutoffHz
	l.lastRes = resonance
}

// Process filters one sample. For any finite input and in-range parameters
// the output is finite: tanh bounds every stage input and clipState bounds
// the integrators.
func (l *Ladder) Process(input float32) float32 {
	cut := l.cutoff.Next()
	res := l.resonance.Next()
	if math.Abs(cut-l.lastCutoff) > 1e-3 || math.Abs(res-l.lastRes) > 1e-6 {
		l.updateCoefficients(cut, res)
	}

	in := float64(input)
	if in != in || math.IsInf(in, 0) {
		in = 0
	}

	var out float64
	for step := 0; step < l.oversampling; step++ {
		out = l.tick(in)
		if l.oversampling > 1 {
			l.aaState = out + (l.aaState-out)*l.aaCoef
			out = l.aaState
		}
	}

	return float32(utility.FlushDenormal(out * l.outputScale))
}

// tick runs one step of the four-stage update at the (possibly oversampled)
// internal rate.
func (l *Ladder) tick(in float64) float64 {
	feedback := l.res.Process(l.stages[3], l.feedbackGain)
	stageIn := math.Tanh(l.driveScale * (in - feedback))

	c := l.coefficient
	l.stages[0] = clipState(l.stages[0] + c*(stageIn-l.tanhLast[0]))
	l.tanhLast[0] = math.Tanh(l.driveScale * l.stages[0])

	l.stages[1] = clipState(l.stages[1] + c*(l.tanhLast[0]-l.tanhLast[1]))
	l.tanhLast[1] = math.Tanh(l.driveScale * l.stages[1])

	l.stages[2] = clipState(l.stages[2] + c*(l.tanhLast[1]-l.tanhLast[2]))
	l.tanhLast[2] = math.Tanh(l.driveScale * l.stages[2])

	l.stages[3] = clipState(l.stages[3] + c*(l.tanhLast[2]-math.Tanh(l.driveScale*l.stages[3])))
	l.stages[3] = utility.FlushDenormal(l.stages[3])

	return l.stages[3]
}

// ProcessBuffer filters input into output - no allocations.
func (l *Ladder) ProcessBuffer(input, output []float32) {
	for i := range input {
		output[i] = l.Process(input[i])
	}
}

// Reset clears all pole and feedback state.
func (l *Ladder) Reset() {
	for i := range l.stages {
		l.stages[i] = 0
		l.tanhLast[i] = 0
	}
	l.aaState = 0
	l.res.Reset()
}

func clipState(value float64) float64 {
	if value > stateLimit {
		return stateLimit
	}
	if value < -stateLimit {
		return -stateLimit
	}
	return value
}
