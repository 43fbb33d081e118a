// Package dynamics provides the compressor and limiter stages of the master
// chain.
package dynamics

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/envelope"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// KneeType selects the compressor knee characteristic.
type KneeType int

const (
	// KneeHard switches to full compression exactly at threshold
	KneeHard KneeType = iota
	// KneeSoft blends the ratio quadratically across the knee width
	KneeSoft
)

// Compressor is a feed-forward compressor with soft knee, lookahead, and
// auto makeup. Detection runs on the undelayed input; gain applies to the
// delayed path so fast transients cannot overshoot.
type Compressor struct {
	sampleRate float64

	threshold  float64 // dB
	ratio      float64
	attack     float64 // seconds
	release    float64 // seconds
	kneeWidth  float64 // dB
	kneeType   KneeType
	makeupGain float64 // dB
	autoMakeup bool
	lookahead  float64 // seconds

	detector *envelope.Detector

	delayBuffer  []float32
	delayRight   []float32
	delayIndex   int
	delaySamples int

	lastGainReduction float64
}

// NewCompressor creates a compressor with -20dB threshold, 4:1 ratio, 5ms
// attack, 50ms release, and a 2dB soft knee.
func NewCompressor(sampleRate float64) *Compressor {
	c := &Compressor{
		sampleRate: sampleRate,
		threshold:  -20.0,
		ratio:      4.0,
		attack:     0.005,
		release:    0.050,
		kneeWidth:  2.0,
		kneeType:   KneeSoft,
		detector:   envelope.NewDetector(sampleRate, envelope.ModePeak),
	}
	c.detector.SetTimeConstants(c.attack, c.release)
	return c
}

// SetThreshold sets the compression threshold in dB.
func (c *Compressor) SetThreshold(dB float64) {
	c.threshold = utility.ClampFinite(dB, dsp.MinThresholdDB, dsp.MaxThresholdDB)
}

// SetRatio sets the compression ratio (1 = no compression).
func (c *Compressor) SetRatio(ratio float64) {
	c.ratio = utility.ClampFinite(ratio, dsp.MinRatio, dsp.MaxRatio)
}

// SetAttack sets the attack time in seconds.
func (c *Compressor) SetAttack(seconds float64) {
	c.attack = utility.ClampFinite(seconds, dsp.MinAttack, dsp.MaxAttack)
	c.detector.SetAttack(c.attack)
}

// SetRelease sets the release time in seconds.
func (c *Compressor) SetRelease(seconds float64) {
	c.release = utility.ClampFinite(seconds, dsp.MinRelease, dsp.MaxRelease)
	c.detector.SetRelease(c.release)
}

// SetKnee sets the knee type and width in dB.
func (c *Compressor) SetKnee(kneeType KneeType, widthDB float64) {
	c.kneeType = kneeType
	c.kneeWidth = utility.ClampFinite(widthDB, 0.0, 24.0)
}

// SetMakeupGain sets a manual makeup gain in dB and disables auto makeup.
func (c *Compressor) SetMakeupGain(dB float64) {
	c.makeupGain = utility.ClampFinite(dB, -24.0, 24.0)
	c.autoMakeup = false
}

// SetAutoMakeup derives makeup gain from threshold and ratio: half the gain
// reduction a signal at 0dBFS would receive.
func (c *Compressor) SetAutoMakeup(enabled bool) {
	c.autoMakeup = enabled
}

// SetLookahead sets the lookahead time in seconds (0 disables). Allocates;
// call from prepare, not from the audio thread.
func (c *Compressor) SetLookahead(seconds float64) {
	c.lookahead = utility.ClampFinite(seconds, 0.0, dsp.MaxLookahead)
	newDelaySamples := int(c.lookahead * c.sampleRate)
	if newDelaySamples != c.delaySamples {
		c.delaySamples = newDelaySamples
		c.delayIndex = 0
		if c.delaySamples > 0 {
			c.delayBuffer = make([]float32, c.delaySamples)
			c.delayRight = make([]float32, c.delaySamples)
		} else {
			c.delayBuffer = nil
			c.delayRight = nil
		}
	}
}

// GainReduction returns the current gain reduction in dB for metering.
func (c *Compressor) GainReduction() float64 {
	return c.lastGainReduction
}

func (c *Compressor) effectiveMakeup() float64 {
	if c.autoMakeup {
		return -c.threshold * (1.0 - 1.0/c.ratio) / 2.0
	}
	return c.makeupGain
}

// computeGainReduction returns the reduction in dB for an input level in dB.
func (c *Compressor) computeGainReduction(inputDB float64) float64 {
	halfKnee := c.kneeWidth / 2.0

	if inputDB <= c.threshold-halfKnee {
		return 0.0
	}
	if inputDB >= c.threshold+halfKnee || c.kneeType == KneeHard || c.kneeWidth <= 0 {
		if inputDB <= c.threshold {
			return 0.0
		}
		return (inputDB - c.threshold) * (1.0 - 1.0/c.ratio)
	}

	// Quadratic knee: reduction grows smoothly from zero at the knee start
	// to the full slope at the knee end
	over := inputDB - (c.threshold - halfKnee)
	return over * over / (2.0 * c.kneeWidth) * (1.0 - 1.0/c.ratio)
}

// Process compresses one sample.
func (c *Compressor) Process(input float32) float32 {
	processSignal := input
	if c.delaySamples > 0 {
		processSignal = c.delayBuffer[c.delayIndex]
		c.delayBuffer[c.delayIndex] = input
		c.delayIndex++
		if c.delayIndex == c.delaySamples {
			c.delayIndex = 0
		}
	}

	level := c.detector.Detect(input)
	inputDB := utility.LinearToDB(float64(level))

	reduction := c.computeGainReduction(inputDB)
	c.lastGainReduction = reduction

	gain := utility.DBToLinear(-reduction + c.effectiveMakeup())
	return processSignal * float32(gain)
}

// ProcessBuffer compresses a buffer in-place - no allocations.
func (c *Compressor) ProcessBuffer(buffer []float32) {
	for i := range buffer {
		buffer[i] = c.Process(buffer[i])
	}
}

// ProcessStereo compresses planar stereo buffers in-place with linked
// detection. The lookahead delay applies to both channels.
func (c *Compressor) ProcessStereo(left, right []float32) {
	for i := range left {
		inL, inR := left[i], right[i]

		outL, outR := inL, inR
		if c.delaySamples > 0 {
			outL = c.delayBuffer[c.delayIndex]
			outR = c.delayRight[c.delayIndex]
			c.delayBuffer[c.delayIndex] = inL
			c.delayRight[c.delayIndex] = inR
			c.delayIndex++
			if c.delayIndex == c.delaySamples {
				c.delayIndex = 0
			}
		}

		peak := float32(math.Max(math.Abs(float64(inL)), math.Abs(float64(inR))))
		level := c.detector.Detect(peak)
		inputDB := utility.LinearToDB(float64(level))

		reduction := c.computeGainReduction(inputDB)
		c.lastGainReduction = reduction

		gain := float32(utility.DBToLinear(-reduction + c.effectiveMakeup()))
		left[i] = outL * gain
		right[i] = outR * gain
	}
}

// Reset clears detector and delay state.
func (c *Compressor) Reset() {
	c.detector.Reset()
	c.lastGainReduction = 0.0
	c.delayIndex = 0
	for i := range c.delayBuffer {
		c.delayBuffer[i] = 0
		c.delayRight[i] = 0
	}
}
