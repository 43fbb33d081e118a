// Package utility provides common DSP helpers shared by the synthesis packages.
package utility

import "math"

// DCBlocker removes DC offset from a signal using a first-order high-pass
// filter with a very low cutoff (typically 5-20 Hz).
//
//	y[n] = x[n] - x[n-1] + R * y[n-1]
type DCBlocker struct {
	x1, y1      float64
	coefficient float64
}

// NewDCBlocker creates a DC blocker with the given cutoff frequency.
func NewDCBlocker(sampleRate, cutoffHz float64) *DCBlocker {
	dc := &DCBlocker{}
	dc.SetCutoff(sampleRate, cutoffHz)
	return dc
}

// SetCutoff updates the cutoff frequency.
func (dc *DCBlocker) SetCutoff(sampleRate, cutoffHz float64) {
	r := 1.0 - (2.0 * math.Pi * cutoffHz / sampleRate)

	// Clamp R to keep the pole stable
	if r < 0.9 {
		r = 0.9
	}
	if r > 0.9999 {
		r = 0.9999
	}
	dc.coefficient = r
}

// Process removes DC from a single sample.
func (dc *DCBlocker) Process(input float64) float64 {
	output := input - dc.x1 + dc.coefficient*dc.y1
	dc.x1 = input
	dc.y1 = FlushDenormal(output)
	return dc.y1
}

// ProcessBuffer processes a buffer in-place.
func (dc *DCBlocker) ProcessBuffer(buffer []float32) {
	for i := range buffer {
		buffer[i] = float32(dc.Process(float64(buffer[i])))
	}
}

// Reset clears the filter state.
func (dc *DCBlocker) Reset() {
	dc.x1 = 0
	dc.y1 = 0
}
