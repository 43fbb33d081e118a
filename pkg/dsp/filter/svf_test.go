package filter

import (
	"math"
	"testing"
)

func TestSVFLowpassPassesDC(t *testing.T) {
	s := NewSVF(48000.0)
	s.SetFrequencyAndQ(1000.0, 0.707)

	var out float32
	for i := 0; i < 48000; i++ {
		out = s.ProcessSample(0.5).Lowpass
	}
	if math.Abs(float64(out)-0.5) > 1e-3 {
		t.Errorf("lowpass DC gain: got %f, want 0.5", out)
	}
}

func TestSVFHighpassBlocksDC(t *testing.T) {
	s := NewSVF(48000.0)
	s.SetFrequencyAndQ(1000.0, 0.707)

	var out float32
	for i := 0; i < 48000; i++ {
		out = s.ProcessSample(0.5).Highpass
	}
	if math.Abs(float64(out)) > 1e-3 {
		t.Errorf("highpass leaks DC: %f", out)
	}
}

func TestSVFBandpassSelectsCenter(t *testing.T) {
	const sampleRate = 48000.0
	s := NewSVF(sampleRate)
	s.SetBandpass(2000.0, 200.0)

	gainAt := func(freq float64) float64 {
		s.Reset()
		peak := 0.0
		n := int(sampleRate / 2)
		for i := 0; i < n; i++ {
			in := float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
			out := math.Abs(float64(s.Bandpass(in)))
			if i > n/2 && out > peak {
				peak = out
			}
		}
		return peak
	}

	center := gainAt(2000.0)
	low := gainAt(200.0)
	high := gainAt(12000.0)

	if center < 4*low || center < 4*high {
		t.Errorf("bandpass not selective: center=%f low=%f high=%f", center, low, high)
	}
}

func TestSVFParameterClamping(t *testing.T) {
	s := NewSVF(48000.0)
	s.SetFrequency(math.NaN())
	s.SetQ(math.Inf(1))
	for i := 0; i < 1000; i++ {
		out := s.ProcessSample(0.5)
		if math.IsNaN(float64(out.Lowpass)) {
			t.Fatal("NaN output after garbage parameters")
		}
	}
}
