package distortion

import (
	"math"
	"testing"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/analysis"
)

const testRate = 48000.0

func renderSine(o *Overdrive, freq float64, n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2.0 * math.Pi * freq * float64(i) / testRate))
	}
	o.ProcessBuffer(buf)
	return buf
}

func TestAllFamiliesBoundedAndCompensated(t *testing.T) {
	families := []Family{FamilyTube, FamilyTape, FamilyTransistor, FamilyDigital, FamilyVintage}
	for _, family := range families {
		o := NewOverdrive(testRate)
		o.SetFamily(family)
		o.SetDrive(10.0)
		o.SetEmphasis(0.5)
		o.SetHarmonics(0.5)

		buf := renderSine(o, 220.0, int(testRate))
		peak := 0.0
		for i, s := range buf {
			v := float64(s)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("family %d: non-finite output at %d", family, i)
			}
			if math.Abs(v) > peak {
				peak = math.Abs(v)
			}
		}
		if peak > 2.5 {
			t.Errorf("family %d: peak %f too hot", family, peak)
		}
		if peak < 0.3 {
			t.Errorf("family %d: peak %f, compensation overdone", family, peak)
		}
	}
}

func TestTubeClipsAsymmetrically(t *testing.T) {
	peaks := func(family Family) (pos, neg float64) {
		o := NewOverdrive(testRate)
		o.SetFamily(family)
		o.SetDrive(5.0)
		buf := renderSine(o, 220.0, int(testRate/2))
		for _, s := range buf[len(buf)/2:] {
			v := float64(s)
			if v > pos {
				pos = v
			}
			if -v > neg {
				neg = -v
			}
		}
		return
	}

	pos, neg := peaks(FamilyTube)
	if math.Abs(pos-neg) < 0.005 {
		t.Errorf("tube peaks symmetric: +%f -%f", pos, neg)
	}

	pos, neg = peaks(FamilyTransistor)
	if math.Abs(pos-neg) > 0.01 {
		t.Errorf("transistor peaks asymmetric: +%f -%f", pos, neg)
	}
}

func TestDriveIncreasesHarmonics(t *testing.T) {
	const (
		fftSize = 8192
		freq    = 1001.2 // off-bin to exercise the window
	)

	thirdHarmonic := func(drive float64) float64 {
		o := NewOverdrive(testRate)
		o.SetFamily(FamilyTube)
		o.SetDrive(drive)

		buf := renderSine(o, freq, fftSize*2)
		fft := analysis.NewFFT(fftSize, analysis.WindowHann)
		mags := make([]float64, fftSize/2+1)
		fft.Magnitude(buf[fftSize:], mags)

		lo := analysis.FrequencyBin(3.0*freq-100.0, fftSize, testRate)
		hi := analysis.FrequencyBin(3.0*freq+100.0, fftSize, testRate)
		return analysis.BandEnergy(mags, lo, hi)
	}

	low := thirdHarmonic(1.0)
	high := thirdHarmonic(8.0)
	if high <= low {
		t.Errorf("third harmonic did not grow with drive: %g vs %g", low, high)
	}
}

func TestMixZeroIsTransparent(t *testing.T) {
	o := NewOverdrive(testRate)
	o.SetFamily(FamilyDigital)
	o.SetDrive(10.0)
	o.SetMix(0.0)

	for i := 0; i < 1000; i++ {
		in := float32(math.Sin(2.0 * math.Pi * 440.0 * float64(i) / testRate))
		if out := o.Process(in); out != in {
			t.Fatalf("sample %d: mix=0 altered signal: %f vs %f", i, out, in)
		}
	}
}

func TestWidthZeroCollapsesToMono(t *testing.T) {
	o := NewOverdrive(testRate)
	o.SetWidth(0.0)

	left := make([]float32, 1024)
	right := make([]float32, 1024)
	for i := range left {
		left[i] = float32(math.Sin(2.0 * math.Pi * 300.0 * float64(i) / testRate))
		right[i] = float32(math.Sin(2.0 * math.Pi * 450.0 * float64(i) / testRate))
	}
	o.ProcessStereo(left, right)

	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("sample %d: channels differ at zero width: %f vs %f", i, left[i], right[i])
		}
	}
}

func TestInvalidFamilyFallsBack(t *testing.T) {
	o := NewOverdrive(testRate)
	o.SetFamily(Family(17))
	if o.Family() != FamilyTube {
		t.Errorf("invalid family not clamped: %d", o.Family())
	}
}
