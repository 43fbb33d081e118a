package dynamics

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/envelope"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// Limiter is a brick-wall limiter: instantaneous attack on the detection
// path, configurable release, lookahead delay, and a 2x inter-sample peak
// estimate. The ceiling is a hard guarantee; a final clamp catches anything
// the gain computer lets through.
type Limiter struct {
	sampleRate float64

	ceiling   float64 // dB, <= 0
	release   float64 // seconds
	lookahead float64 // seconds
	truePeak  bool
	kneeWidth float64 // dB, 0 for pure brick wall

	detector *envelope.Detector

	delayBuffer  []float32
	delayRight   []float32
	delayIndex   int
	delaySamples int

	lastSample  float32
	lastSampleR float32

	gainReduction float64
}

// NewLimiter creates a limiter with a -0.3dB ceiling, 50ms release, 5ms
// lookahead, and inter-sample peak detection enabled.
func NewLimiter(sampleRate float64) *Limiter {
	l := &Limiter{
		sampleRate: sampleRate,
		ceiling:    -0.3,
		release:    0.050,
		lookahead:  0.005,
		truePeak:   true,
		detector:   envelope.NewDetector(sampleRate, envelope.ModePeak),
	}
	l.detector.SetTimeConstants(0.0, l.release) // instant attack
	l.updateLookahead()
	return l
}

// SetCeiling sets the output ceiling in dB (clamped to <= 0).
func (l *Limiter) SetCeiling(dB float64) {
	l.ceiling = utility.ClampFinite(dB, dsp.MinDB, 0.0)
}

// Ceiling returns the ceiling in dB.
func (l *Limiter) Ceiling() float64 {
	return l.ceiling
}

// SetRelease sets the release time in seconds.
func (l *Limiter) SetRelease(seconds float64) {
	l.release = utility.ClampFinite(seconds, dsp.MinRelease, dsp.MaxRelease)
	l.detector.SetRelease(l.release)
}

// SetLookahead sets the lookahead time in seconds. Allocates; call from
// prepare, not from the audio thread.
func (l *Limiter) SetLookahead(seconds float64) {
	l.lookahead = utility.ClampFinite(seconds, 0.0, dsp.MaxLookahead)
	l.updateLookahead()
}

// SetTruePeak toggles the 2x inter-sample peak estimate.
func (l *Limiter) SetTruePeak(enabled bool) {
	l.truePeak = enabled
}

// SetKnee sets a soft-knee width in dB below the ceiling. Zero keeps the
// response a pure brick wall.
func (l *Limiter) SetKnee(widthDB float64) {
	l.kneeWidth = utility.ClampFinite(widthDB, 0.0, 12.0)
}

func (l *Limiter) updateLookahead() {
	newDelaySamples := int(l.lookahead * l.sampleRate)
	if newDelaySamples != l.delaySamples {
		l.delaySamples = newDelaySamples
		l.delayIndex = 0
		if l.delaySamples > 0 {
			l.delayBuffer = make([]float32, l.delaySamples)
			l.delayRight = make([]float32, l.delaySamples)
		} else {
			l.delayBuffer = nil
			l.delayRight = nil
		}
	}
}

// GainReduction returns the current gain reduction in dB for metering.
func (l *Limiter) GainReduction() float64 {
	return l.gainReduction
}

// estimateTruePeak approximates the inter-sample peak by checking the
// midpoint between consecutive samples (2x estimate).
func estimateTruePeak(last, current float32) float32 {
	mid := (last + current) * 0.5
	peak := float32(math.Max(math.Abs(float64(last)), math.Abs(float64(current))))
	if m := float32(math.Abs(float64(mid))); m > peak {
		peak = m
	}
	return peak
}

// computeGainReduction returns the reduction in dB for a level in dB.
func (l *Limiter) computeGainReduction(inputDB float64) float64 {
	if l.kneeWidth > 0 {
		kneeStart := l.ceiling - l.kneeWidth
		if inputDB <= kneeStart {
			return 0.0
		}
		if inputDB < l.ceiling {
			over := inputDB - kneeStart
			return over * over / (2.0 * l.kneeWidth)
		}
		// Above the ceiling the knee contributes its full half-width
		return (inputDB - l.ceiling) + l.kneeWidth/2.0
	}
	if inputDB > l.ceiling {
		return inputDB - l.ceiling
	}
	return 0.0
}

// Process limits one sample. Output magnitude never exceeds the ceiling.
func (l *Limiter) Process(input float32) float32 {
	detection := input
	if l.truePeak {
		detection = estimateTruePeak(l.lastSample, input)
	}
	l.lastSample = input

	processSignal := input
	if l.delaySamples > 0 {
		processSignal = l.delayBuffer[l.delayIndex]
		l.delayBuffer[l.delayIndex] = input
		l.delayIndex++
		if l.delayIndex == l.delaySamples {
			l.delayIndex = 0
		}
	}

	level := l.detector.Detect(detection)
	inputDB := utility.LinearToDB(float64(level))

	reduction := l.computeGainReduction(inputDB)
	l.gainReduction = reduction

	out := processSignal * float32(utility.DBToLinear(-reduction))
	return l.clampToCeiling(out)
}

// clampToCeiling enforces the brick wall on whatever the gain computer
// produced.
func (l *Limiter) clampToCeiling(sample float32) float32 {
	limit := float32(utility.DBToLinear(l.ceiling))
	if sample > limit {
		return limit
	}
	if sample < -limit {
		return -limit
	}
	return sample
}

// ProcessBuffer limits a buffer in-place - no allocations.
func (l *Limiter) ProcessBuffer(buffer []float32) {
	for i := range buffer {
		buffer[i] = l.Process(buffer[i])
	}
}

// ProcessStereo limits planar stereo buffers in-place with linked detection.
func (l *Limiter) ProcessStereo(left, right []float32) {
	for i := range left {
		inL, inR := left[i], right[i]

		detL, detR := inL, inR
		if l.truePeak {
			detL = estimateTruePeak(l.lastSample, inL)
			detR = estimateTruePeak(l.lastSampleR, inR)
		}
		l.lastSample = inL
		l.lastSampleR = inR
		detection := float32(math.Max(math.Abs(float64(detL)), math.Abs(float64(detR))))

		outL, outR := inL, inR
		if l.delaySamples > 0 {
			outL = l.delayBuffer[l.delayIndex]
			outR = l.delayRight[l.delayIndex]
			l.delayBuffer[l.delayIndex] = inL
			l.delayRight[l.delayIndex] = inR
			l.delayIndex++
			if l.delayIndex == l.delaySamples {
				l.delayIndex = 0
			}
		}

		level := l.detector.Detect(detection)
		inputDB := utility.LinearToDB(float64(level))

		reduction := l.computeGainReduction(inputDB)
		l.gainReduction = reduction

		gain := float32(utility.DBToLinear(-reduction))
		left[i] = l.clampToCeiling(outL * gain)
		right[i] = l.clampToCeiling(outR * gain)
	}
}

// Reset clears detector and delay state.
func (l *Limiter) Reset() {
	l.detector.Reset()
	l.gainReduction = 0.0
	l.lastSample = 0.0
	l.lastSampleR = 0.0
	l.delayIndex = 0
	for i := range l.delayBuffer {
		l.delayBuffer[i] = 0
		l.delayRight[i] = 0
	}
}
