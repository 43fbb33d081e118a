// Package filter provides the synthesis filters: a linear state variable
// filter and the nonlinear 4-pole ladder lowpass with its resonance engine.
package filter

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// SVF is a zero-delay-feedback state variable filter producing simultaneous
// lowpass, highpass, bandpass, and notch outputs. The noise generator uses
// its bandpass output for the filtered color.
type SVF struct {
	sampleRate float64

	g float64 // frequency coefficient
	k float64 // damping coefficient (1/Q)

	ic1eq float64 // integrator 1 state
	ic2eq float64 // integrator 2 state
}

// SVFOutputs holds all four simultaneous filter outputs.
type SVFOutputs struct {
	Lowpass  float32
	Highpass float32
	Bandpass float32
	Notch    float32
}

// NewSVF creates a state variable filter.
func NewSVF(sampleRate float64) *SVF {
	s := &SVF{sampleRate: sampleRate}
	s.SetFrequencyAndQ(1000.0, 0.707)
	return s
}

// SetSampleRate updates the host rate. Frequency must be set again afterwards.
func (s *SVF) SetSampleRate(sampleRate float64) {
	s.sampleRate = sampleRate
}

// SetFrequency sets the filter frequency with bilinear pre-warping.
func (s *SVF) SetFrequency(frequency float64) {
	frequency = utility.ClampFinite(frequency, 1.0, s.sampleRate*0.49)
	s.g = math.Tan(math.Pi * frequency / s.sampleRate)
}

// SetQ sets the resonance (Q factor).
func (s *SVF) SetQ(q float64) {
	q = utility.ClampFinite(q, 0.1, 100.0)
	s.k = 1.0 / q
}

// SetFrequencyAndQ sets both in one call.
func (s *SVF) SetFrequencyAndQ(frequency, q float64) {
	s.SetFrequency(frequency)
	s.SetQ(q)
}

// SetBandpass configures center frequency and bandwidth in Hz, the natural
// parameterization for the noise generator's filtered color.
func (s *SVF) SetBandpass(center, bandwidth float64) {
	center = utility.ClampFinite(center, 1.0, s.sampleRate*0.49)
	bandwidth = utility.ClampFinite(bandwidth, 1.0, s.sampleRate*0.49)
	s.SetFrequency(center)
	s.SetQ(center / bandwidth)
}

// Reset clears the integrator states.
func (s *SVF) Reset() {
	s.ic1eq = 0
	s.ic2eq = 0
}

// ProcessSample processes one sample and returns all outputs.
func (s *SVF) ProcessSample(input float32) SVFOutputs {
	in := float64(input)
	g := s.g
	k := s.k
	a1 := 1.0 / (1.0 + g*(g+k))
	a2 := g * a1
	a3 := g * a2

	v3 := in - s.ic2eq
	v1 := a1*s.ic1eq + a2*v3
	v2 := s.ic2eq + a2*s.ic1eq + a3*v3

	s.ic1eq = utility.FlushDenormal(2.0*v1 - s.ic1eq)
	s.ic2eq = utility.FlushDenormal(2.0*v2 - s.ic2eq)

	return SVFOutputs{
		Lowpass:  float32(v2),
		Bandpass: float32(v1),
		Highpass: float32(in - k*v1 - v2),
		Notch:    float32(in - k*v1),
	}
}

// Bandpass processes one sample and returns the bandpass output.
func (s *SVF) Bandpass(input float32) float32 {
	return s.ProcessSample(input).Bandpass
}

// ProcessLowpass filters buffer in-place as a lowpass - no allocations.
func (s *SVF) ProcessLowpass(buffer []float32) {
	for i := range buffer {
		buffer[i] = s.ProcessSample(buffer[i]).Lowpass
	}
}

// ProcessBandpass filters buffer in-place as a bandpass - no allocations.
func (s *SVF) ProcessBandpass(buffer []float32) {
	for i := range buffer {
		buffer[i] = s.ProcessSample(buffer[i]).Bandpass
	}
}

// ProcessHighpass filters buffer in-place as a highpass - no allocations.
func (s *SVF) ProcessHighpass(buffer []float32) {
	for i := range buffer {
		buffer[i] = s.ProcessSample(buffer[i]).Highpass
	}
}
