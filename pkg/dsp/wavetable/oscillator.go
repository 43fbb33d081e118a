package wavetable

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/interpolation"
)

// minFrequency guards the phase increment against zero or negative
// frequencies coming from modulation.
const minFrequency = 1e-6

// Interpolation selects the oscillator's read quality.
type Interpolation int

const (
	// InterpLinear uses two-point interpolation on both axes
	InterpLinear Interpolation = iota
	// InterpCubic uses four-point Catmull-Rom interpolation on both axes
	InterpCubic
	// InterpHermite uses four-point third-order Hermite interpolation on
	// both axes
	InterpHermite
)

// Oscillator plays a Table with a fractional morph position. Phase lives in
// [0,1) and advances by frequency/sampleRate per sample.
type Oscillator struct {
	sampleRate float64
	frequency  float64
	phase      float64
	phaseInc   float64
	framePos   float64
	interp     Interpolation
	table      *Table
}

// New creates an oscillator playing the given table.
func New(sampleRate float64, table *Table) *Oscillator {
	o := &Oscillator{
		sampleRate: sampleRate,
		interp:     InterpLinear,
		table:      table,
	}
	o.SetFrequency(440.0)
	return o
}

// SetSampleRate recomputes the phase increment for a new host rate.
func (o *Oscillator) SetSampleRate(sampleRate float64) {
	o.sampleRate = sampleRate
	o.phaseInc = o.frequency / sampleRate
}

// SetFrequency sets the playback frequency in Hz. Zero, negative, and
// non-finite values clamp to a small positive epsilon.
func (o *Oscillator) SetFrequency(freq float64) {
	if freq != freq || freq < minFrequency {
		freq = minFrequency
	}
	if freq > o.sampleRate*0.5 {
		freq = o.sampleRate * 0.5
	}
	o.frequency = freq
	o.phaseInc = freq / o.sampleRate
}

// Frequency returns the current frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.frequency
}

// SetTable swaps the wavetable. The morph position is re-clamped.
func (o *Oscillator) SetTable(table *Table) {
	o.table = table
	o.SetFramePosition(o.framePos)
}

// SetFramePosition sets the fractional morph position, clamped to
// [0, frameCount-1].
func (o *Oscillator) SetFramePosition(pos float64) {
	max := 0.0
	if o.table != nil {
		max = float64(o.table.FrameCount() - 1)
	}
	if pos != pos || pos < 0 {
		pos = 0
	}
	if pos > max {
		pos = max
	}
	o.framePos = pos
}

// FramePosition returns the current morph position.
func (o *Oscillator) FramePosition() float64 {
	return o.framePos
}

// SetInterpolation selects linear, cubic, or Hermite reads.
func (o *Oscillator) SetInterpolation(interp Interpolation) {
	o.interp = interp
}

// Phase returns the current phase in [0,1).
func (o *Oscillator) Phase() float64 {
	return o.phase
}

// SetPhase sets the phase, wrapped into [0,1).
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Reset returns the phase to zero.
func (o *Oscillator) Reset() {
	o.phase = 0.0
}

// Sample reads the table at an arbitrary phase and morph position without
// touching oscillator state. Out-of-range morph positions clamp; the phase
// wraps. Pure function of table + inputs.
func (o *Oscillator) Sample(phase, framePos float64) float32 {
	t := o.table
	if t == nil {
		return 0
	}

	phase -= math.Floor(phase)
	maxFrame := float64(t.FrameCount() - 1)
	if framePos != framePos || framePos < 0 {
		framePos = 0
	}
	if framePos > maxFrame {
		framePos = maxFrame
	}

	pos := phase * float64(t.frameLen)
	idx := int(pos)
	frac := float32(pos - float64(idx))

	frame := int(framePos)
	frameFrac := float32(framePos - float64(frame))

	switch o.interp {
	case InterpCubic:
		return o.sampleFourPoint(t, frame, frameFrac, idx, frac, readCubic)
	case InterpHermite:
		return o.sampleFourPoint(t, frame, frameFrac, idx, frac, readHermite)
	}

	s0 := readLinear(t, frame, idx, frac)
	if frameFrac == 0 || t.FrameCount() == 1 {
		return s0
	}
	s1 := readLinear(t, frame+1, idx, frac)
	return interpolation.Linear(s0, s1, frameFrac)
}

func readLinear(t *Table, frame, idx int, frac float32) float32 {
	return interpolation.Linear(t.at(frame, idx), t.at(frame, idx+1), frac)
}

func readCubic(t *Table, frame, idx int, frac float32) float32 {
	return interpolation.Cubic(
		t.at(frame, idx-1),
		t.at(frame, idx),
		t.at(frame, idx+1),
		t.at(frame, idx+2),
		frac,
	)
}

func readHermite(t *Table, frame, idx int, frac float32) float32 {
	return interpolation.Hermite(
		t.at(frame, idx-1),
		t.at(frame, idx),
		t.at(frame, idx+1),
		t.at(frame, idx+2),
		frac,
	)
}

func (o *Oscillator) sampleFourPoint(t *Table, frame int, frameFrac float32, idx int, frac float32, read func(*Table, int, int, float32) float32) float32 {
	if t.FrameCount() < 4 || frameFrac == 0 {
		s0 := read(t, frame, idx, frac)
		if frameFrac == 0 || t.FrameCount() == 1 {
			return s0
		}
		s1 := read(t, frame+1, idx, frac)
		return interpolation.Linear(s0, s1, frameFrac)
	}

	// Four-point read on the morph axis; frame indices clamp at the edges.
	return interpolation.Cubic(
		read(t, frame-1, idx, frac),
		read(t, frame, idx, frac),
		read(t, frame+1, idx, frac),
		read(t, frame+2, idx, frac),
		frameFrac,
	)
}

// Next returns the sample at the current phase and advances the phase.
func (o *Oscillator) Next() float32 {
	sample := o.Sample(o.phase, o.framePos)
	o.advance()
	return sample
}

// advance steps the phase by one sample and wraps it into [0,1).
func (o *Oscillator) advance() {
	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
}

// Process fills buffer with oscillator output - no allocations.
func (o *Oscillator) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = o.Next()
	}
}
