// Package distortion provides the overdrive stage of the master chain.
package distortion

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// Family selects the saturation transfer function. The set is closed and
// dispatched with a switch in the hot path.
type Family int

const (
	// FamilyTube clips asymmetrically, softer on positive excursions
	FamilyTube Family = iota
	// FamilyTape compresses into a tanh with a soft level memory
	FamilyTape
	// FamilyTransistor applies a cubic soft clip with a hard edge
	FamilyTransistor
	// FamilyDigital hard-clips with a slight foldback above full scale
	FamilyDigital
	// FamilyVintage biases the input for even-harmonic emphasis
	FamilyVintage
)

// Overdrive drives the signal into a selectable saturation curve with
// output-level compensation, optional pre/de-emphasis shelving, a harmonic
// enhancement stage, and mid-side width on the stereo path.
type Overdrive struct {
	sampleRate float64
	family     Family

	drive     float64 // 1-10 into the curve
	output    float64 // post gain, linear
	mix       float64
	emphasis  float64 // 0-1 pre-emphasis amount
	harmonics float64 // 0-1 enhancement amount
	width     float64 // 0-2 mid-side width, 1 = unchanged

	pre  [2]*shelfFilter
	de   [2]*shelfFilter
	dc   [2]*utility.DCBlocker
	tape [2]float64 // per-channel level memory for FamilyTape
}

// NewOverdrive creates a tube-family overdrive with unity drive and full wet
// mix.
func NewOverdrive(sampleRate float64) *Overdrive {
	o := &Overdrive{
		sampleRate: sampleRate,
		family:     FamilyTube,
		drive:      1.0,
		output:     1.0,
		mix:        1.0,
		width:      1.0,
	}
	for ch := 0; ch < 2; ch++ {
		o.pre[ch] = newShelfFilter(sampleRate, 2000.0)
		o.de[ch] = newShelfFilter(sampleRate, 2000.0)
		o.dc[ch] = utility.NewDCBlocker(sampleRate, 10.0)
	}
	return o
}

// SetFamily selects the transfer function. Out-of-range values fall back to
// FamilyTube.
func (o *Overdrive) SetFamily(family Family) {
	if family < FamilyTube || family > FamilyVintage {
		family = FamilyTube
	}
	o.family = family
}

// Family returns the active transfer family.
func (o *Overdrive) Family() Family {
	return o.family
}

// SetDrive sets the gain into the saturation curve (1-10).
func (o *Overdrive) SetDrive(drive float64) {
	o.drive = utility.ClampFinite(drive, 1.0, dsp.MaxDrive)
}

// SetOutput sets the post-saturation output gain (0-2 linear).
func (o *Overdrive) SetOutput(gain float64) {
	o.output = utility.ClampFinite(gain, 0.0, 2.0)
}

// SetMix sets the dry/wet blend (0 = dry).
func (o *Overdrive) SetMix(mix float64) {
	o.mix = utility.ClampFinite(mix, 0.0, 1.0)
}

// SetEmphasis sets the pre-emphasis amount (0-1). Highs are boosted into the
// curve and cut back after it, shifting saturation towards high frequencies.
func (o *Overdrive) SetEmphasis(amount float64) {
	o.emphasis = utility.ClampFinite(amount, 0.0, 1.0)
}

// SetHarmonics sets the additive harmonic enhancement amount (0-1).
func (o *Overdrive) SetHarmonics(amount float64) {
	o.harmonics = utility.ClampFinite(amount, 0.0, 1.0)
}

// SetWidth sets the stereo width via mid-side scaling (0 = mono, 1 =
// unchanged, 2 = doubled side level). Mono processing ignores it.
func (o *Overdrive) SetWidth(width float64) {
	o.width = utility.ClampFinite(width, 0.0, 2.0)
}

// transfer applies the family curve to one value.
func (o *Overdrive) transfer(x float64, channel int) float64 {
	switch o.family {
	case FamilyTape:
		// The level memory compresses sustained loud material a touch
		// harder, like tape self-erasure
		y := math.Tanh(x * (1.0 - 0.3*math.Abs(o.tape[channel])))
		o.tape[channel] = 0.999*o.tape[channel] + 0.001*y
		return y

	case FamilyTransistor:
		if x > 1.0 {
			return 2.0 / 3.0
		}
		if x < -1.0 {
			return -2.0 / 3.0
		}
		return x - x*x*x/3.0

	case FamilyDigital:
		if x > 1.0 {
			fold := math.Min(x-1.0, 1.0)
			return 1.0 - 0.2*fold
		}
		if x < -1.0 {
			fold := math.Min(-x-1.0, 1.0)
			return -1.0 + 0.2*fold
		}
		return x

	case FamilyVintage:
		return math.Tanh(x + 0.2*x*x)

	default: // FamilyTube: softer positive clipping, harder negative
		if x >= 0 {
			return math.Tanh(x*0.7) / 0.7
		}
		return math.Tanh(x*0.9) / 0.9
	}
}

// compensation returns the output scale that brings a full-scale input back
// near unity for the current drive and family.
func (o *Overdrive) compensation() float64 {
	var peak float64
	switch o.family {
	case FamilyTape:
		peak = math.Tanh(o.drive)
	case FamilyTransistor:
		peak = 2.0 / 3.0
		if o.drive < 1.0 {
			peak = o.drive - o.drive*o.drive*o.drive/3.0
		}
	case FamilyDigital:
		peak = math.Min(o.drive, 1.0)
	case FamilyVintage:
		peak = math.Tanh(o.drive + 0.2*o.drive*o.drive)
	default:
		peak = math.Tanh(o.drive*0.7) / 0.7
	}
	if peak < 1e-3 {
		peak = 1e-3
	}
	return 1.0 / peak
}

// enhance adds low-order harmonics of the saturated signal.
func (o *Overdrive) enhance(y float64) float64 {
	if o.harmonics <= 0 {
		return y
	}
	y2 := y * y
	return y + o.harmonics*(0.3*y2-0.1*y2*y2+0.2*y2*y)
}

func (o *Overdrive) processChannel(input float64, channel int) float64 {
	x := input
	if o.emphasis > 0 {
		x = o.pre[channel].boost(x, o.emphasis)
	}

	y := o.transfer(x*o.drive, channel) * o.compensation()
	y = o.enhance(y)

	if o.emphasis > 0 {
		y = o.de[channel].cut(y, o.emphasis)
	}
	y = o.dc[channel].Process(y)

	return (input*(1.0-o.mix) + y*o.mix) * o.output
}

// Process saturates one mono sample.
func (o *Overdrive) Process(input float32) float32 {
	return float32(o.processChannel(float64(input), 0))
}

// ProcessBuffer saturates a mono buffer in-place - no allocations.
func (o *Overdrive) ProcessBuffer(buffer []float32) {
	for i := range buffer {
		buffer[i] = float32(o.processChannel(float64(buffer[i]), 0))
	}
}

// ProcessStereo saturates planar stereo buffers in-place, then applies the
// mid-side width.
func (o *Overdrive) ProcessStereo(left, right []float32) {
	for i := range left {
		l := o.processChannel(float64(left[i]), 0)
		r := o.processChannel(float64(right[i]), 1)

		mid := (l + r) * 0.5
		side := (l - r) * 0.5 * o.width
		left[i] = float32(mid + side)
		right[i] = float32(mid - side)
	}
}

// Reset clears all filter and memory state.
func (o *Overdrive) Reset() {
	for ch := 0; ch < 2; ch++ {
		o.pre[ch].reset()
		o.de[ch].reset()
		o.dc[ch].Reset()
		o.tape[ch] = 0.0
	}
}

// shelfFilter is a first-order high shelf built from a one-pole lowpass
// split: boost raises everything above the corner, cut applies the matching
// inverse-style attenuation for de-emphasis.
type shelfFilter struct {
	coefficient float64
	state       float64
}

func newShelfFilter(sampleRate, cornerHz float64) *shelfFilter {
	return &shelfFilter{
		coefficient: 1.0 - math.Exp(-2.0*math.Pi*cornerHz/sampleRate),
	}
}

func (s *shelfFilter) lowpass(x float64) float64 {
	s.state += s.coefficient * (x - s.state)
	s.state = utility.FlushDenormal(s.state)
	return s.state
}

// boost raises the high band by up to +6dB at amount 1.
func (s *shelfFilter) boost(x, amount float64) float64 {
	low := s.lowpass(x)
	return x + amount*(x-low)
}

// cut attenuates the high band to undo a matching boost.
func (s *shelfFilter) cut(x, amount float64) float64 {
	low := s.lowpass(x)
	return x - amount/(1.0+amount)*(x-low)
}

func (s *shelfFilter) reset() {
	s.state = 0.0
}
