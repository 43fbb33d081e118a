// Package analysis provides spectral analysis helpers. The synthesis hot path
// never calls into this package; it exists for tests and offline metering.
package analysis

import "math"

// Window selects the analysis window applied before transforming.
type Window int

const (
	// WindowRectangular applies no window
	WindowRectangular Window = iota
	// WindowHann applies a Hann window
	WindowHann
	// WindowHamming applies a Hamming window
	WindowHamming
)

// FFT computes radix-2 transforms of a fixed size.
type FFT struct {
	size       int
	window     Window
	windowData []float64
	real       []float64
	imag       []float64
}

// NewFFT creates an FFT of the given size, which must be a power of two.
func NewFFT(size int, window Window) *FFT {
	if size < 2 || size&(size-1) != 0 {
		// Round up to the next power of two rather than failing; callers
		// pass literal sizes in practice.
		n := 2
		for n < size {
			n <<= 1
		}
		size = n
	}

	f := &FFT{
		size:       size,
		window:     window,
		windowData: make([]float64, size),
		real:       make([]float64, size),
		imag:       make([]float64, size),
	}
	f.calculateWindow()
	return f
}

// Size returns the transform size.
func (f *FFT) Size() int {
	return f.size
}

func (f *FFT) calculateWindow() {
	n := float64(f.size)
	for i := 0; i < f.size; i++ {
		switch f.window {
		case WindowHann:
			f.windowData[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/(n-1.0)))
		case WindowHamming:
			f.windowData[i] = 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/(n-1.0))
		default:
			f.windowData[i] = 1.0
		}
	}
}

// Magnitude windows the input, transforms it, and writes size/2+1 magnitude
// values into out. Input shorter than the FFT size is zero-padded.
func (f *FFT) Magnitude(input []float32, out []float64) {
	for i := 0; i < f.size; i++ {
		if i < len(input) {
			f.real[i] = float64(input[i]) * f.windowData[i]
		} else {
			f.real[i] = 0
		}
		f.imag[i] = 0
	}

	f.transform()

	bins := f.size/2 + 1
	for i := 0; i < bins && i < len(out); i++ {
		out[i] = math.Hypot(f.real[i], f.imag[i])
	}
}

// transform runs an in-place iterative Cooley-Tukey FFT over real/imag.
func (f *FFT) transform() {
	n := f.size

	// Bit-reversal permutation
	j := 0
	for i := 0; i < n-1; i++ {
		if i < j {
			f.real[i], f.real[j] = f.real[j], f.real[i]
			f.imag[i], f.imag[j] = f.imag[j], f.imag[i]
		}
		m := n >> 1
		for m >= 1 && j >= m {
			j -= m
			m >>= 1
		}
		j += m
	}

	// Butterflies
	for length := 2; length <= n; length <<= 1 {
		angle := -2.0 * math.Pi / float64(length)
		wRe := math.Cos(angle)
		wIm := math.Sin(angle)
		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			half := length / 2
			for k := 0; k < half; k++ {
				i1 := start + k
				i2 := start + k + half
				tRe := f.real[i2]*curRe - f.imag[i2]*curIm
				tIm := f.real[i2]*curIm + f.imag[i2]*curRe
				f.real[i2] = f.real[i1] - tRe
				f.imag[i2] = f.imag[i1] - tIm
				f.real[i1] += tRe
				f.imag[i1] += tIm
				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}
}

// PeakBin returns the bin index with the largest magnitude in [lo, hi).
func PeakBin(magnitude []float64, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(magnitude) {
		hi = len(magnitude)
	}
	best := lo
	for i := lo; i < hi; i++ {
		if magnitude[i] > magnitude[best] {
			best = i
		}
	}
	return best
}

// BinFrequency converts a bin index to Hz for the given FFT size.
func BinFrequency(bin, fftSize int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(fftSize)
}

// FrequencyBin converts a frequency in Hz to the nearest bin index.
func FrequencyBin(freq float64, fftSize int, sampleRate float64) int {
	return int(freq*float64(fftSize)/sampleRate + 0.5)
}

// BandEnergy sums squared magnitudes over bins [lo, hi).
func BandEnergy(magnitude []float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(magnitude) {
		hi = len(magnitude)
	}
	sum := 0.0
	for i := lo; i < hi; i++ {
		sum += magnitude[i] * magnitude[i]
	}
	return sum
}
