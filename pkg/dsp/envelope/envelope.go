// Package envelope provides the multi-stage envelope generator and the
// level detector used by the dynamics processors.
package envelope

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// Stage identifies the envelope state machine position.
type Stage int

const (
	// StageIdle means the envelope is silent and safe to reconfigure
	StageIdle Stage = iota
	// StageDelay holds the start level before the attack begins
	StageDelay
	// StageAttack ramps towards the peak level
	StageAttack
	// StageDecay falls towards the sustain level
	StageDecay
	// StageSustain holds until note off
	StageSustain
	// StageRelease falls towards silence
	StageRelease
)

// Curve shapes the linear progress fraction within a stage.
type Curve int

const (
	// CurveLinear leaves progress unshaped
	CurveLinear Curve = iota
	// CurveExponential squares the progress (slow start)
	CurveExponential
	// CurveLogarithmic takes the square root (fast start)
	CurveLogarithmic
	// CurveSine follows a quarter sine
	CurveSine
	// CurvePower raises progress to a configurable exponent
	CurvePower
	// CurveInversePower mirrors CurvePower around the diagonal
	CurveInversePower
)

// RetriggerMode controls what a note-on does to a sounding envelope.
type RetriggerMode int

const (
	// ModeRetrigger restarts from Delay/Attack with the ramp at zero; a
	// level discontinuity is intentional for percussive retriggers
	ModeRetrigger RetriggerMode = iota
	// ModeLegato continues from the current level straight into Attack;
	// no discontinuity
	ModeLegato
	// ModeReset forces the level to zero and starts Attack immediately
	ModeReset
)

const (
	minStageTime = 0.0
	maxStageTime = 30.0
	idleEpsilon  = 1e-4 // release-to-idle threshold
	refNote      = 69   // A4 reference for key tracking
)

// DADSR is a delay-attack-decay-sustain-release envelope with per-stage
// curve shaping, velocity sensitivity, key tracking of stage durations, and
// optional Attack->Decay looping. Output is unipolar in [0,1]. No heap
// allocation per sample.
type DADSR struct {
	sampleRate float64
	increment  float64 // seconds per sample

	// Stage durations in seconds (Sustain has none)
	delay   float64
	attack  float64
	decay   float64
	release float64
	sustain float64 // level 0-1
	peak    float64 // attack target level, normally 1

	attackCurve  Curve
	decayCurve   Curve
	releaseCurve Curve
	power        float64 // exponent for the power curves

	velocitySensitivity float64 // 0-1
	keyTracking         float64 // -1..1, 0 disables
	retrigger           RetriggerMode

	loopEnabled bool
	loopCount   int // 0 = infinite
	loopsDone   int

	// Runtime state
	stage         Stage
	stageTime     float64
	stageDuration float64
	startLevel    float64
	targetLevel   float64
	level         float64
	velocityScale float64
	timeScale     float64
}

// New creates an envelope with a 10ms attack, 100ms decay, 0.7 sustain, and
// 200ms release.
func New(sampleRate float64) *DADSR {
	e := &DADSR{
		sampleRate:    sampleRate,
		increment:     1.0 / sampleRate,
		delay:         0.0,
		attack:        0.010,
		decay:         0.100,
		sustain:       0.7,
		peak:          1.0,
		release:       0.200,
		attackCurve:   CurveLinear,
		decayCurve:    CurveExponential,
		releaseCurve:  CurveExponential,
		power:         2.0,
		velocityScale: 1.0,
		timeScale:     1.0,
	}
	return e
}

// SetSampleRate recomputes the per-sample time step. Call from prepare.
func (e *DADSR) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.increment = 1.0 / sampleRate
}

// SetDelay sets the delay time in seconds.
func (e *DADSR) SetDelay(seconds float64) {
	e.delay = utility.ClampFinite(seconds, minStageTime, maxStageTime)
}

// SetAttack sets the attack time in seconds.
func (e *DADSR) SetAttack(seconds float64) {
	e.attack = utility.ClampFinite(seconds, minStageTime, maxStageTime)
}

// SetDecay sets the decay time in seconds.
func (e *DADSR) SetDecay(seconds float64) {
	e.decay = utility.ClampFinite(seconds, minStageTime, maxStageTime)
}

// SetSustain sets the sustain level (0-1).
func (e *DADSR) SetSustain(level float64) {
	e.sustain = utility.ClampFinite(level, 0.0, 1.0)
}

// SetRelease sets the release time in seconds.
func (e *DADSR) SetRelease(seconds float64) {
	e.release = utility.ClampFinite(seconds, minStageTime, maxStageTime)
}

// SetADSR sets the four classic parameters at once.
func (e *DADSR) SetADSR(attack, decay, sustain, release float64) {
	e.SetAttack(attack)
	e.SetDecay(decay)
	e.SetSustain(sustain)
	e.SetRelease(release)
}

// SetCurves selects the shapes for attack, decay, and release.
func (e *DADSR) SetCurves(attack, decay, release Curve) {
	e.attackCurve = clampCurve(attack)
	e.decayCurve = clampCurve(decay)
	e.releaseCurve = clampCurve(release)
}

// SetPower sets the exponent used by CurvePower and CurveInversePower.
func (e *DADSR) SetPower(n float64) {
	e.power = utility.ClampFinite(n, 0.1, 10.0)
}

// SetVelocitySensitivity sets how strongly velocity scales the attack and
// decay targets (0 = ignore velocity).
func (e *DADSR) SetVelocitySensitivity(amount float64) {
	e.velocitySensitivity = utility.ClampFinite(amount, 0.0, 1.0)
}

// SetKeyTracking sets how note pitch scales stage durations: positive values
// shorten the envelope for higher notes, negative invert, zero disables.
func (e *DADSR) SetKeyTracking(amount float64) {
	e.keyTracking = utility.ClampFinite(amount, -1.0, 1.0)
}

// SetRetriggerMode selects the note-on behavior for a sounding envelope.
func (e *DADSR) SetRetriggerMode(mode RetriggerMode) {
	if mode < ModeRetrigger || mode > ModeReset {
		mode = ModeRetrigger
	}
	e.retrigger = mode
}

// SetLoop enables Attack->Decay looping. count is the number of repeats,
// 0 for infinite. While looping the Sustain hold is skipped.
func (e *DADSR) SetLoop(enabled bool, count int) {
	e.loopEnabled = enabled
	if count < 0 {
		count = 0
	}
	e.loopCount = count
}

// Stage returns the current state machine position.
func (e *DADSR) Stage() Stage {
	return e.stage
}

// Level returns the current output level without advancing.
func (e *DADSR) Level() float64 {
	return e.level
}

// IsActive reports whether the envelope is producing output.
func (e *DADSR) IsActive() bool {
	return e.stage != StageIdle
}

// NoteOn starts the envelope. velocity and note follow MIDI ranges (0-127);
// out-of-range values clamp.
func (e *DADSR) NoteOn(velocity, note uint8) {
	if velocity > 127 {
		velocity = 127
	}
	if note > 127 {
		note = 127
	}

	// Velocity scales the attack/decay targets, clamped non-negative
	e.velocityScale = 1.0 + e.velocitySensitivity*(float64(velocity)/127.0-0.5)*2.0
	if e.velocityScale < 0 {
		e.velocityScale = 0
	}

	// Key tracking scales durations relative to the reference note:
	// one octave up with full tracking halves every stage time
	e.timeScale = math.Pow(2.0, -float64(int(note)-refNote)/12.0*e.keyTracking)

	e.loopsDone = 0

	switch e.retrigger {
	case ModeLegato:
		if e.stage != StageIdle {
			e.enterStage(StageAttack, e.level)
			return
		}
		e.startFromTop(0.0)
	case ModeReset:
		e.level = 0.0
		e.enterStage(StageAttack, 0.0)
	default: // ModeRetrigger
		e.startFromTop(0.0)
	}
}

func (e *DADSR) startFromTop(startLevel float64) {
	e.level = startLevel
	if e.delay > 0 {
		e.enterStage(StageDelay, startLevel)
	} else {
		e.enterStage(StageAttack, startLevel)
	}
}

// NoteOff moves any sounding stage into Release.
func (e *DADSR) NoteOff() {
	if e.stage == StageIdle {
		return
	}
	e.enterStage(StageRelease, e.level)
}

// Reset silences the envelope immediately.
func (e *DADSR) Reset() {
	e.stage = StageIdle
	e.level = 0.0
	e.stageTime = 0.0
	e.loopsDone = 0
}

// enterStage records the stage entry level and resolves the stage's
// duration and target.
func (e *DADSR) enterStage(stage Stage, startLevel float64) {
	e.stage = stage
	e.stageTime = 0.0
	e.startLevel = startLevel

	switch stage {
	case StageDelay:
		e.stageDuration = e.delay * e.timeScale
		e.targetLevel = startLevel
	case StageAttack:
		e.stageDuration = e.attack * e.timeScale
		e.targetLevel = clamp01(e.peak * e.velocityScale)
	case StageDecay:
		e.stageDuration = e.decay * e.timeScale
		e.targetLevel = clamp01(e.sustain * e.velocityScale)
	case StageRelease:
		e.stageDuration = e.release * e.timeScale
		e.targetLevel = 0.0
	default:
		e.stageDuration = 0.0
		e.targetLevel = 0.0
	}
}

// Next advances the envelope by one sample and returns the level.
func (e *DADSR) Next() float32 {
	switch e.stage {
	case StageIdle:
		e.level = 0.0
		return 0.0

	case StageSustain:
		e.level = clamp01(e.sustain * e.velocityScale)
		return float32(e.level)

	default:
		e.stageTime += e.increment
		progress := 1.0
		if e.stageDuration > 0 {
			progress = e.stageTime / e.stageDuration
			if progress > 1.0 {
				progress = 1.0
			}
		}

		shaped := e.shape(progress)
		e.level = e.startLevel + (e.targetLevel-e.startLevel)*shaped

		// A release tail below the silence threshold ends early
		if e.stage == StageRelease && e.level <= idleEpsilon {
			e.stage = StageIdle
			e.level = 0.0
			return 0.0
		}

		if progress >= 1.0 {
			e.advanceStage()
		}
		return float32(e.level)
	}
}

func (e *DADSR) shape(t float64) float64 {
	var curve Curve
	switch e.stage {
	case StageAttack:
		curve = e.attackCurve
	case StageDecay:
		curve = e.decayCurve
	case StageRelease:
		curve = e.releaseCurve
	default:
		return t // Delay holds; shape is irrelevant
	}

	switch curve {
	case CurveExponential:
		return t * t
	case CurveLogarithmic:
		return math.Sqrt(t)
	case CurveSine:
		return math.Sin(t * math.Pi / 2.0)
	case CurvePower:
		return math.Pow(t, e.power)
	case CurveInversePower:
		return 1.0 - math.Pow(1.0-t, e.power)
	default:
		return t
	}
}

// advanceStage handles end-of-stage transitions, including the loop.
func (e *DADSR) advanceStage() {
	switch e.stage {
	case StageDelay:
		e.enterStage(StageAttack, e.level)

	case StageAttack:
		e.enterStage(StageDecay, e.level)

	case StageDecay:
		if e.loopEnabled && (e.loopCount == 0 || e.loopsDone < e.loopCount) {
			e.loopsDone++
			e.enterStage(StageAttack, e.level)
			return
		}
		e.stage = StageSustain

	case StageRelease:
		e.stage = StageIdle
		e.level = 0.0
	}
}

// Process fills buffer with envelope values - no allocations.
func (e *DADSR) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = e.Next()
	}
}

// ProcessMultiply multiplies buffer by the envelope - no allocations.
func (e *DADSR) ProcessMultiply(buffer []float32) {
	for i := range buffer {
		buffer[i] *= e.Next()
	}
}

func clampCurve(c Curve) Curve {
	if c < CurveLinear || c > CurveInversePower {
		return CurveLinear
	}
	return c
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
