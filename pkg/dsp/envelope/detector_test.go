package envelope

import (
	"math"
	"testing"
)

func TestDetectorTracksPeak(t *testing.T) {
	d := NewDetector(testRate, ModePeak)
	d.SetTimeConstants(0.0, 0.100) // instant attack

	out := d.Detect(0.8)
	if math.Abs(float64(out)-0.8) > 1e-6 {
		t.Errorf("instant attack missed peak: %f", out)
	}

	// Release eases back towards zero
	for i := 0; i < samples(0.050); i++ {
		out = d.Detect(0.0)
	}
	if out >= 0.8 || out <= 0.0 {
		t.Errorf("release not easing: %f", out)
	}

	for i := 0; i < samples(1.0); i++ {
		out = d.Detect(0.0)
	}
	if out > 0.001 {
		t.Errorf("release did not settle: %f", out)
	}
}

func TestDetectorAttackLags(t *testing.T) {
	d := NewDetector(testRate, ModePeak)
	d.SetTimeConstants(0.010, 0.100)

	var out float32
	for i := 0; i < samples(0.010); i++ {
		out = d.Detect(1.0)
	}
	// One attack time constant reaches ~63% of the step
	if out < 0.55 || out > 0.72 {
		t.Errorf("level after one attack constant = %f, want ~0.63", out)
	}
}

func TestDetectorRMSOfSine(t *testing.T) {
	d := NewDetector(testRate, ModeRMS)
	d.SetTimeConstants(0.001, 0.050)

	var out float64
	for i := 0; i < samples(0.5); i++ {
		s := float32(math.Sin(2.0 * math.Pi * 440.0 * float64(i) / testRate))
		out = float64(d.Detect(s))
	}

	// RMS of a full-scale sine is 1/sqrt(2)
	if math.Abs(out-1.0/math.Sqrt2) > 0.05 {
		t.Errorf("sine RMS = %f, want ~0.707", out)
	}
}

func TestDetectorRectifies(t *testing.T) {
	d := NewDetector(testRate, ModePeak)
	d.SetTimeConstants(0.0, 0.100)

	if out := d.Detect(-0.6); math.Abs(float64(out)-0.6) > 1e-6 {
		t.Errorf("negative input not rectified: %f", out)
	}
}

func TestDetectorReset(t *testing.T) {
	d := NewDetector(testRate, ModeRMS)
	for i := 0; i < 1000; i++ {
		d.Detect(0.9)
	}
	d.Reset()
	if d.Envelope() != 0.0 {
		t.Errorf("envelope after reset = %f", d.Envelope())
	}
}
