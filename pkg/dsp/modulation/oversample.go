package modulation

import "math"

// The oversampled path renders the modulation product at osFactor times the
// host rate and decimates through a Hamming-windowed sinc lowpass.
const (
	osFactor = 4
	osTaps   = 33
)

type oversampler struct {
	taps    []float64
	history []float64
	pos     int
}

func newOversampler() *oversampler {
	return &oversampler{
		taps:    designLowpass(osTaps, 0.45/float64(osFactor)),
		history: make([]float64, osTaps),
	}
}

// designLowpass builds a windowed-sinc FIR with the given normalized cutoff
// (cycles per sample at the oversampled rate), normalized to unity DC gain.
func designLowpass(taps int, cutoff float64) []float64 {
	h := make([]float64, taps)
	m := float64(taps-1) / 2.0
	sum := 0.0
	for i := range h {
		x := float64(i) - m
		var s float64
		if x == 0 {
			s = 2.0 * cutoff
		} else {
			s = math.Sin(2.0*math.Pi*cutoff*x) / (math.Pi * x)
		}
		w := 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/float64(taps-1))
		h[i] = s * w
		sum += h[i]
	}
	for i := range h {
		h[i] /= sum
	}
	return h
}

func (o *oversampler) push(sample float64) {
	o.history[o.pos] = sample
	o.pos++
	if o.pos == len(o.history) {
		o.pos = 0
	}
}

// output convolves the taps with the history, newest sample first.
func (o *oversampler) output() float64 {
	acc := 0.0
	idx := o.pos
	for _, t := range o.taps {
		idx--
		if idx < 0 {
			idx = len(o.history) - 1
		}
		acc += t * o.history[idx]
	}
	return acc
}

func (o *oversampler) reset() {
	for i := range o.history {
		o.history[i] = 0
	}
	o.pos = 0
}
