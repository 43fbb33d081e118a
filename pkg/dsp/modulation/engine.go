// Package modulation combines two wavetable oscillators through ring
// modulation, oscillator sync, and direct parameter modulation.
package modulation

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/wavetable"
)

// Mode selects how the modulator acts on the carrier. The set is closed and
// dispatched with a switch in the hot path; adding a mode means extending the
// switch, not implementing an interface.
type Mode int

const (
	// RingClassic multiplies carrier and modulator, blended by depth
	RingClassic Mode = iota
	// RingBipolar adds the scaled product to the dry carrier
	RingBipolar
	// RingUnipolar remaps the modulator to [0,1] before the multiply
	RingUnipolar
	// RingQuadrature offsets the modulator read by a quarter cycle
	RingQuadrature
	// HardSync resets the carrier phase when the modulator wraps
	HardSync
	// SoftSync blends the carrier phase towards the reset point instead of
	// hard-setting it; depth is the blend strength
	SoftSync
	// PhaseMod offsets the carrier read phase by the modulator
	PhaseMod
	// FrequencyMod scales the carrier frequency by the modulator
	FrequencyMod
	// AmplitudeMod scales the carrier level by the modulator
	AmplitudeMod
	// PulseWidthMod subtracts a modulator-shifted carrier read, turning a
	// saw frame into a variable-width pulse
	PulseWidthMod
)

// minModFrequency guards the phase increments against zero and negative
// modulated frequencies.
const minModFrequency = 1e-6

// Engine renders one sample per Next call from a carrier and a modulator
// oscillator. The engine owns both phases so the sync modes can reset them;
// the oscillators serve as interpolated table readers.
type Engine struct {
	sampleRate float64
	mode       Mode

	carrier   *wavetable.Oscillator
	modulator *wavetable.Oscillator

	carrierFreq  float64
	carrierPhase float64
	modPhase     float64
	carrierInc   float64
	modInc       float64
	minInc       float64

	depth       *utility.SmoothParameter
	ratio       *utility.SmoothParameter
	fineTune    *utility.SmoothParameter // cents
	phaseOffset *utility.SmoothParameter
	asymmetry   *utility.SmoothParameter

	// Smoothed values cached once per output sample
	curDepth       float64
	curPhaseOffset float64
	curAsym        float64

	antiAlias        bool
	engaged          bool
	harmonicRichness float64

	dc       *utility.DCBlocker
	os       *oversampler
	bank     *blitBank
	residual residualPlayer
}

// New creates a modulation engine reading the given tables. Depth defaults to
// 1 (full wet), ratio to 1, smoothing to 5ms.
func New(sampleRate float64, carrier, modulator *wavetable.Table) *Engine {
	e := &Engine{
		sampleRate:       sampleRate,
		carrier:          wavetable.New(sampleRate, carrier),
		modulator:        wavetable.New(sampleRate, modulator),
		depth:            utility.NewSmoothParameter(dsp.MediumSmoothing, sampleRate),
		ratio:            utility.NewSmoothParameter(dsp.MediumSmoothing, sampleRate),
		fineTune:         utility.NewSmoothParameter(dsp.MediumSmoothing, sampleRate),
		phaseOffset:      utility.NewSmoothParameter(dsp.MediumSmoothing, sampleRate),
		asymmetry:        utility.NewSmoothParameter(dsp.MediumSmoothing, sampleRate),
		harmonicRichness: 16.0,
		dc:               utility.NewDCBlocker(sampleRate, 10.0),
		os:               newOversampler(),
		bank:             newBlitBank(),
		minInc:           minModFrequency / sampleRate,
	}
	e.depth.SetImmediate(1.0)
	e.ratio.SetImmediate(1.0)
	e.fineTune.SetImmediate(0.0)
	e.phaseOffset.SetImmediate(0.0)
	e.asymmetry.SetImmediate(0.0)
	e.SetFrequency(440.0)
	return e
}

// SetSampleRate recomputes every rate-dependent coefficient. Call from
// prepare, never mid-buffer.
func (e *Engine) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.minInc = minModFrequency / sampleRate
	e.carrier.SetSampleRate(sampleRate)
	e.modulator.SetSampleRate(sampleRate)
	e.dc.SetCutoff(sampleRate, 10.0)
	e.SetSmoothingTime(dsp.MediumSmoothing)
	e.SetFrequency(e.carrierFreq)
}

// Carrier exposes the carrier reader for table, morph, and interpolation
// control.
func (e *Engine) Carrier() *wavetable.Oscillator {
	return e.carrier
}

// Modulator exposes the modulator reader.
func (e *Engine) Modulator() *wavetable.Oscillator {
	return e.modulator
}

// SetMode selects the modulation mode. Out-of-range values fall back to
// RingClassic.
func (e *Engine) SetMode(mode Mode) {
	if mode < RingClassic || mode > PulseWidthMod {
		mode = RingClassic
	}
	e.mode = mode
}

// Mode returns the active mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// SetFrequency sets the carrier frequency in Hz. The modulator follows via
// the ratio and fine-tune parameters.
func (e *Engine) SetFrequency(hz float64) {
	e.carrierFreq = utility.ClampFinite(hz, minModFrequency, e.sampleRate*0.5)
}

// Frequency returns the carrier frequency in Hz.
func (e *Engine) Frequency() float64 {
	return e.carrierFreq
}

// SetDepth sets the modulation depth (0-1). For SoftSync this is the phase
// blend strength.
func (e *Engine) SetDepth(depth float64) {
	e.depth.SetTarget(utility.ClampFinite(depth, 0.0, 1.0))
}

// SetRatio sets the modulator/carrier frequency ratio.
func (e *Engine) SetRatio(ratio float64) {
	e.ratio.SetTarget(utility.ClampFinite(ratio, 0.001, 64.0))
}

// SetFineTune detunes the modulator in cents.
func (e *Engine) SetFineTune(cents float64) {
	e.fineTune.SetTarget(utility.ClampFinite(cents, -1200.0, 1200.0))
}

// SetPhaseOffset sets the modulator read offset in cycles (0-1). The sync
// modes reset the carrier to this phase.
func (e *Engine) SetPhaseOffset(offset float64) {
	e.phaseOffset.SetTarget(utility.ClampFinite(offset, 0.0, 1.0))
}

// SetAsymmetry shapes positive vs negative carrier excursions (-1..1,
// 0 = symmetric). Applies to the ring modes.
func (e *Engine) SetAsymmetry(amount float64) {
	e.asymmetry.SetTarget(utility.ClampFinite(amount, -1.0, 1.0))
}

// SetAntiAlias enables the alias-suppression paths: the oversampled multiply
// and the band-limited sync residuals.
func (e *Engine) SetAntiAlias(enabled bool) {
	e.antiAlias = enabled
	if !enabled {
		e.os.reset()
		e.residual.reset()
	}
}

// SetSmoothingTime sets the parameter smoothing time constant in seconds for
// all modulation parameters.
func (e *Engine) SetSmoothingTime(seconds float64) {
	seconds = utility.ClampFinite(seconds, 0.0, 1.0)
	e.depth.SetTimeConstant(seconds, e.sampleRate)
	e.ratio.SetTimeConstant(seconds, e.sampleRate)
	e.fineTune.SetTimeConstant(seconds, e.sampleRate)
	e.phaseOffset.SetTimeConstant(seconds, e.sampleRate)
	e.asymmetry.SetTimeConstant(seconds, e.sampleRate)
}

// SetHarmonicRichness tunes the partial-count estimate used by the
// anti-alias gate. Higher values engage the oversampler at lower
// frequencies.
func (e *Engine) SetHarmonicRichness(harmonics float64) {
	e.harmonicRichness = utility.ClampFinite(harmonics, 1.0, 1024.0)
}

// Oversampling reports whether the last Next call ran the oversampled path.
func (e *Engine) Oversampling() bool {
	return e.engaged
}

// Reset clears phases and filter state.
func (e *Engine) Reset() {
	e.carrierPhase = 0.0
	e.modPhase = 0.0
	e.dc.Reset()
	e.os.reset()
	e.residual.reset()
}

// Next renders one output sample.
func (e *Engine) Next() float32 {
	e.curDepth = e.depth.Next()
	curRatio := e.ratio.Next()
	curFine := e.fineTune.Next()
	e.curPhaseOffset = e.phaseOffset.Next()
	e.curAsym = e.asymmetry.Next()

	modFreq := e.carrierFreq * curRatio * math.Pow(2.0, curFine/1200.0)
	if modFreq < minModFrequency {
		modFreq = minModFrequency
	}
	e.carrierInc = e.carrierFreq / e.sampleRate
	e.modInc = modFreq / e.sampleRate

	// The oversampler engages only when anti-aliasing is on and the
	// estimated top partial reaches a quarter of Nyquist.
	if e.antiAlias && e.estimatedTopPartial(modFreq) > 0.25*(0.5*e.sampleRate) {
		e.engaged = true
		step := 1.0 / float64(osFactor)
		for i := 0; i < osFactor; i++ {
			e.os.push(e.renderStep(step))
		}
		return e.finish(e.os.output())
	}

	e.engaged = false
	return e.finish(e.renderStep(1.0))
}

// Process fills buffer with engine output - no allocations.
func (e *Engine) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = e.Next()
	}
}

// estimatedTopPartial approximates the highest frequency the current mode
// can produce: the carrier's top partial shifted by the modulator.
func (e *Engine) estimatedTopPartial(modFreq float64) float64 {
	return e.carrierFreq*e.harmonicRichness + modFreq
}

// renderStep produces one raw sample and advances both phases by step of a
// host sample. The oversampled path calls it with step < 1.
func (e *Engine) renderStep(step float64) float64 {
	switch e.mode {
	case HardSync, SoftSync:
		return e.syncStep(step)

	case PhaseMod:
		m := e.modSample(0.0)
		out := float64(e.carrier.Sample(e.carrierPhase+e.curDepth*m, e.carrier.FramePosition()))
		e.advance(step, 1.0)
		return out

	case FrequencyMod:
		m := e.modSample(0.0)
		scale := 1.0 + e.curDepth*m
		if scale < 0 {
			scale = 0
		}
		out := float64(e.carrier.Sample(e.carrierPhase, e.carrier.FramePosition()))
		e.advance(step, scale)
		return out

	case AmplitudeMod:
		m := e.modSample(0.0)
		c := float64(e.carrier.Sample(e.carrierPhase, e.carrier.FramePosition()))
		e.advance(step, 1.0)
		return c * (1.0 + e.curDepth*m) / (1.0 + e.curDepth)

	case PulseWidthMod:
		m := e.modSample(0.0)
		width := 0.5 + 0.45*e.curDepth*m
		c := float64(e.carrier.Sample(e.carrierPhase, e.carrier.FramePosition()))
		shifted := float64(e.carrier.Sample(e.carrierPhase+width, e.carrier.FramePosition()))
		e.advance(step, 1.0)
		return c - shifted

	default:
		return e.ringStep(step)
	}
}

func (e *Engine) ringStep(step float64) float64 {
	c := float64(e.carrier.Sample(e.carrierPhase, e.carrier.FramePosition()))
	offset := e.curPhaseOffset
	if e.mode == RingQuadrature {
		offset += 0.25
	}
	m := float64(e.modulator.Sample(e.modPhase+offset, e.modulator.FramePosition()))

	var out float64
	switch e.mode {
	case RingBipolar:
		out = c + e.curDepth*(c*m)
	case RingUnipolar:
		wet := c * ((m + 1.0) * 0.5)
		out = c + e.curDepth*(wet-c)
	default: // classic and quadrature: dry/wet blend of the product
		out = c + e.curDepth*(c*m-c)
	}

	// Asymmetry applies separate gains to the two carrier polarities
	if c >= 0 {
		out *= 1.0 + 0.5*e.curAsym
	} else {
		out *= 1.0 - 0.5*e.curAsym
	}

	e.advance(step, 1.0)
	return out
}

// syncStep treats the modulator as the sync master and the carrier as the
// synced slave. A hard reset with anti-aliasing enabled triggers a
// band-limited step residual sized to the reset discontinuity.
func (e *Engine) syncStep(step float64) float64 {
	out := float64(e.carrier.Sample(e.carrierPhase, e.carrier.FramePosition())) +
		float64(e.residual.next())

	e.modPhase += e.modInc * step
	if e.modPhase >= 1.0 {
		e.modPhase -= math.Floor(e.modPhase)

		reset := e.curPhaseOffset
		newPhase := reset
		if e.mode == SoftSync {
			newPhase = e.carrierPhase + e.curDepth*(reset-e.carrierPhase)
		}
		if e.mode == HardSync && e.antiAlias {
			before := float64(e.carrier.Sample(e.carrierPhase, e.carrier.FramePosition()))
			after := float64(e.carrier.Sample(newPhase, e.carrier.FramePosition()))
			harmonics := (0.5 * e.sampleRate) / e.carrierFreq
			e.residual.trigger(e.bank, harmonics, float32(after-before))
		}
		e.carrierPhase = newPhase - math.Floor(newPhase)
	}

	e.carrierPhase += e.carrierInc * step
	e.carrierPhase -= math.Floor(e.carrierPhase)
	return out
}

func (e *Engine) modSample(extraOffset float64) float64 {
	return float64(e.modulator.Sample(e.modPhase+e.curPhaseOffset+extraOffset, e.modulator.FramePosition()))
}

// advance steps both phases; carrierScale bends the carrier increment for
// frequency modulation.
func (e *Engine) advance(step, carrierScale float64) {
	inc := e.carrierInc * carrierScale
	if inc < e.minInc {
		inc = e.minInc
	}
	e.carrierPhase += inc * step
	e.carrierPhase -= math.Floor(e.carrierPhase)
	e.modPhase += e.modInc * step
	e.modPhase -= math.Floor(e.modPhase)
}

// finish applies the post-multiply DC blocker on the modes that generate
// offset and converts to the output format.
func (e *Engine) finish(out float64) float32 {
	switch e.mode {
	case RingClassic, RingBipolar, RingUnipolar, RingQuadrature, PulseWidthMod:
		out = e.dc.Process(out)
	}
	return float32(utility.FlushDenormal(out))
}
