// Package noise provides colored noise sources for synthesis.
package noise

import (
	"math"
	"math/rand"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/filter"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// Color selects the noise spectrum.
type Color int

const (
	// White noise has equal energy at all frequencies
	White Color = iota
	// Pink noise has equal energy per octave (1/f)
	Pink
	// Brown noise has a 1/f^2 spectrum
	Brown
	// Blue noise is differentiated white noise (rising spectrum)
	Blue
	// Violet noise is differentiated blue noise (f^2 spectrum)
	Violet
	// Filtered noise is white noise through a resonant bandpass
	Filtered
	// Granular noise gates white noise into probabilistic grains
	Granular
	// Crackle produces sparse Poisson impulses with exponential decay
	Crackle
)

// Grain window limits in seconds.
const (
	minGrainTime = 0.001
	maxGrainTime = 1.0
)

// Generator produces one sample of the selected color per Next call.
// Block processing via Process is a plain loop over Next, so both paths are
// bit-identical for the same seed and state.
type Generator struct {
	sampleRate float64
	color      Color
	rng        *rand.Rand

	// Pink state: Paul Kellett's 7-register IIR approximation
	pink [7]float64

	// Brown state: leaky integrator
	brown float64

	// Blue/violet state: previous samples for differentiation
	lastWhite float64
	lastBlue  float64

	// Filtered color
	bandpass *filter.SVF

	// Granular state
	grainProbability float64 // chance per sample of starting a grain
	grainSamples     int
	grainRemaining   int

	// Crackle state
	crackleRate  float64 // impulses per second
	crackleDecay float64
	crackleState float64
}

// New creates a white noise generator with a random seed.
func New(sampleRate float64) *Generator {
	g := &Generator{
		sampleRate:       sampleRate,
		color:            White,
		rng:              rand.New(rand.NewSource(rand.Int63())),
		bandpass:         filter.NewSVF(sampleRate),
		grainProbability: 0.01,
		crackleRate:      20.0,
	}
	g.bandpass.SetBandpass(1000.0, 500.0)
	g.SetGrainTime(0.020)
	g.SetCrackleDecay(0.010)
	return g
}

// SetSampleRate recomputes rate-dependent state. Call from prepare.
func (g *Generator) SetSampleRate(sampleRate float64) {
	grainTime := float64(g.grainSamples) / g.sampleRate
	g.sampleRate = sampleRate
	g.bandpass.SetSampleRate(sampleRate)
	g.SetGrainTime(grainTime)
	g.SetCrackleDecay(0.010)
}

// SetColor selects the noise color.
func (g *Generator) SetColor(color Color) {
	if color < White || color > Crackle {
		color = White
	}
	g.color = color
}

// Color returns the active color.
func (g *Generator) Color() Color {
	return g.color
}

// SetSeed reseeds the random source for reproducible output.
func (g *Generator) SetSeed(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
}

// SetBandpass configures the filtered color (center and bandwidth in Hz).
func (g *Generator) SetBandpass(center, bandwidth float64) {
	g.bandpass.SetBandpass(center, bandwidth)
}

// SetBandpassResonance boosts the filtered color's selectivity directly.
func (g *Generator) SetBandpassResonance(q float64) {
	g.bandpass.SetQ(q)
}

// SetGrainProbability sets the per-sample chance of starting a grain (0-1).
func (g *Generator) SetGrainProbability(p float64) {
	g.grainProbability = utility.ClampFinite(p, 0.0, 1.0)
}

// SetGrainTime sets the grain window length in seconds (1ms-1000ms).
func (g *Generator) SetGrainTime(seconds float64) {
	seconds = utility.ClampFinite(seconds, minGrainTime, maxGrainTime)
	g.grainSamples = int(seconds * g.sampleRate)
	if g.grainSamples < 1 {
		g.grainSamples = 1
	}
}

// SetCrackleRate sets the expected impulse rate in impulses per second.
func (g *Generator) SetCrackleRate(perSecond float64) {
	g.crackleRate = utility.ClampFinite(perSecond, 0.1, 1000.0)
}

// SetCrackleDecay sets the impulse decay time constant in seconds.
func (g *Generator) SetCrackleDecay(seconds float64) {
	seconds = utility.ClampFinite(seconds, 0.0005, 1.0)
	g.crackleDecay = math.Exp(-1.0 / (seconds * g.sampleRate))
}

// Next generates one sample in [-1, 1].
func (g *Generator) Next() float32 {
	switch g.color {
	case Pink:
		return g.nextPink()
	case Brown:
		return g.nextBrown()
	case Blue:
		return g.nextBlue()
	case Violet:
		return g.nextViolet()
	case Filtered:
		return g.bandpass.Bandpass(g.nextWhite())
	case Granular:
		return g.nextGranular()
	case Crackle:
		return g.nextCrackle()
	default:
		return g.nextWhite()
	}
}

// Process fills buffer - no allocations.
func (g *Generator) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = g.Next()
	}
}

// ProcessAdd mixes noise into buffer at the given gain - no allocations.
func (g *Generator) ProcessAdd(buffer []float32, gain float32) {
	for i := range buffer {
		buffer[i] += g.Next() * gain
	}
}

// Reset clears filter and integrator state. The random sequence continues;
// reseed with SetSeed for reproducibility.
func (g *Generator) Reset() {
	for i := range g.pink {
		g.pink[i] = 0
	}
	g.brown = 0
	g.lastWhite = 0
	g.lastBlue = 0
	g.bandpass.Reset()
	g.grainRemaining = 0
	g.crackleState = 0
}

func (g *Generator) nextWhite() float32 {
	return float32(g.rng.Float64()*2.0 - 1.0)
}

// nextPink runs Paul Kellett's economy pink filter: seven one-pole
// registers summed with tuned gains approximate a 1/f slope within
// +/-0.5 dB across the audio band.
func (g *Generator) nextPink() float32 {
	white := g.rng.Float64()*2.0 - 1.0

	g.pink[0] = 0.99886*g.pink[0] + white*0.0555179
	g.pink[1] = 0.99332*g.pink[1] + white*0.0750759
	g.pink[2] = 0.96900*g.pink[2] + white*0.1538520
	g.pink[3] = 0.86650*g.pink[3] + white*0.3104856
	g.pink[4] = 0.55000*g.pink[4] + white*0.5329522
	g.pink[5] = -0.7616*g.pink[5] - white*0.0168980

	out := g.pink[0] + g.pink[1] + g.pink[2] + g.pink[3] + g.pink[4] + g.pink[5] + g.pink[6] + white*0.5362
	g.pink[6] = white * 0.115926

	return clamp(float32(out * 0.11))
}

func (g *Generator) nextBrown() float32 {
	white := g.rng.Float64()*2.0 - 1.0
	g.brown += white * 0.0625

	// Leaky integration prevents unbounded drift
	g.brown *= 0.997
	if g.brown > 1.0 {
		g.brown = 1.0
	} else if g.brown < -1.0 {
		g.brown = -1.0
	}
	return float32(g.brown)
}

func (g *Generator) nextBlue() float32 {
	white := g.rng.Float64()*2.0 - 1.0
	out := (white - g.lastWhite) * 0.5
	g.lastWhite = white
	return float32(out)
}

func (g *Generator) nextViolet() float32 {
	blue := float64(g.nextBlue())
	out := (blue - g.lastBlue) * 0.5
	g.lastBlue = blue
	return float32(out)
}

func (g *Generator) nextGranular() float32 {
	if g.grainRemaining > 0 {
		g.grainRemaining--
		return g.nextWhite()
	}
	if g.rng.Float64() < g.grainProbability {
		g.grainRemaining = g.grainSamples - 1
		return g.nextWhite()
	}
	return 0
}

func (g *Generator) nextCrackle() float32 {
	// Poisson arrivals: per-sample spawn probability is rate/sampleRate
	if g.rng.Float64() < g.crackleRate/g.sampleRate {
		g.crackleState = g.rng.Float64()*2.0 - 1.0
	} else {
		g.crackleState *= g.crackleDecay
		g.crackleState = utility.FlushDenormal(g.crackleState)
	}
	return float32(g.crackleState)
}

func clamp(x float32) float32 {
	if x > 1.0 {
		return 1.0
	}
	if x < -1.0 {
		return -1.0
	}
	return x
}
