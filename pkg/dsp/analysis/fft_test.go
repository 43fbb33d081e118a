package analysis

import (
	"math"
	"testing"
)

func TestFFTSinePeak(t *testing.T) {
	const (
		size       = 4096
		sampleRate = 48000.0
		freq       = 1000.0
	)

	f := NewFFT(size, WindowHann)
	input := make([]float32, size)
	for i := range input {
		input[i] = float32(math.Sin(2.0 * math.Pi * freq * float64(i) / sampleRate))
	}

	mags := make([]float64, size/2+1)
	f.Magnitude(input, mags)

	peak := PeakBin(mags, 1, len(mags))
	peakFreq := BinFrequency(peak, size, sampleRate)

	binWidth := sampleRate / float64(size)
	if math.Abs(peakFreq-freq) > 2*binWidth {
		t.Errorf("peak at %f Hz, want %f Hz", peakFreq, freq)
	}
}

func TestFFTParsevalSanity(t *testing.T) {
	const size = 1024
	f := NewFFT(size, WindowRectangular)

	// DC input concentrates all energy in bin 0
	input := make([]float32, size)
	for i := range input {
		input[i] = 1.0
	}
	mags := make([]float64, size/2+1)
	f.Magnitude(input, mags)

	if math.Abs(mags[0]-float64(size)) > 1e-6*float64(size) {
		t.Errorf("DC bin = %f, want %d", mags[0], size)
	}
	for i := 1; i < len(mags); i++ {
		if mags[i] > 1e-6*float64(size) {
			t.Errorf("bin %d leaked energy: %f", i, mags[i])
			break
		}
	}
}

func TestFrequencyBinRoundTrip(t *testing.T) {
	const size = 2048
	const sampleRate = 44100.0
	for _, freq := range []float64{440.0, 1000.0, 10000.0} {
		bin := FrequencyBin(freq, size, sampleRate)
		back := BinFrequency(bin, size, sampleRate)
		if math.Abs(back-freq) > sampleRate/float64(size) {
			t.Errorf("freq %f -> bin %d -> %f", freq, bin, back)
		}
	}
}
