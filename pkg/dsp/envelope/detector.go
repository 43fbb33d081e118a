package envelope

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// DetectorMode defines what level the detector tracks.
type DetectorMode int

const (
	// ModePeak follows the rectified peak
	ModePeak DetectorMode = iota
	// ModeRMS follows a windowed RMS estimate
	ModeRMS
)

// Detector is the one-pole envelope follower feeding the dynamics
// processors: rectify (or square) the input, then ease with separate attack
// and release coefficients.
type Detector struct {
	sampleRate float64
	mode       DetectorMode

	attack  float64
	release float64

	attackCoef  float64
	releaseCoef float64

	envelope   float64
	meanSquare float64
	rmsCoef    float64
}

// NewDetector creates a detector with a 1ms attack and 100ms release.
func NewDetector(sampleRate float64, mode DetectorMode) *Detector {
	d := &Detector{
		sampleRate: sampleRate,
		mode:       mode,
		attack:     0.001,
		release:    0.100,
	}
	d.rmsCoef = 1.0 - math.Exp(-1.0/(0.003*sampleRate)) // 3ms RMS window
	d.updateCoefficients()
	return d
}

// SetAttack sets the attack time in seconds.
func (d *Detector) SetAttack(seconds float64) {
	d.attack = utility.ClampFinite(seconds, 0.0, 1.0)
	d.updateCoefficients()
}

// SetRelease sets the release time in seconds.
func (d *Detector) SetRelease(seconds float64) {
	d.release = utility.ClampFinite(seconds, 0.0001, 5.0)
	d.updateCoefficients()
}

// SetTimeConstants sets attack and release together.
func (d *Detector) SetTimeConstants(attack, release float64) {
	d.attack = utility.ClampFinite(attack, 0.0, 1.0)
	d.release = utility.ClampFinite(release, 0.0001, 5.0)
	d.updateCoefficients()
}

func (d *Detector) updateCoefficients() {
	d.attackCoef = coefForTime(d.attack, d.sampleRate)
	d.releaseCoef = coefForTime(d.release, d.sampleRate)
}

func coefForTime(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0.0 // instant
	}
	return math.Exp(-1.0 / (seconds * sampleRate))
}

// Detect advances the follower with one input sample and returns the
// tracked level.
func (d *Detector) Detect(input float32) float32 {
	level := math.Abs(float64(input))

	if d.mode == ModeRMS {
		d.meanSquare += d.rmsCoef * (level*level - d.meanSquare)
		d.meanSquare = utility.FlushDenormal(d.meanSquare)
		level = math.Sqrt(d.meanSquare)
	}

	if level > d.envelope {
		d.envelope = level + (d.envelope-level)*d.attackCoef
	} else {
		d.envelope = level + (d.envelope-level)*d.releaseCoef
	}
	d.envelope = utility.FlushDenormal(d.envelope)

	return float32(d.envelope)
}

// Envelope returns the current tracked level without advancing.
func (d *Detector) Envelope() float64 {
	return d.envelope
}

// Reset clears the follower state.
func (d *Detector) Reset() {
	d.envelope = 0.0
	d.meanSquare = 0.0
}
