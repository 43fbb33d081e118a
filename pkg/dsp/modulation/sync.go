package modulation

import "math"

// residualLength is the number of output samples a sync reset correction
// spans.
const residualLength = 32

// residualHarmonics are the harmonic counts the residual tables are built
// for. Runtime lookups interpolate between the two nearest tables.
var residualHarmonics = [...]int{8, 16, 32, 64, 128}

// blitBank holds precomputed band-limited step residual tables. A hard sync
// reset is a step discontinuity in the slave output; adding the residual of
// a band-limited step smears the edge without the aliased energy of a naive
// reset.
type blitBank struct {
	tables [len(residualHarmonics)][]float32
}

func newBlitBank() *blitBank {
	b := &blitBank{}
	for i, h := range residualHarmonics {
		b.tables[i] = buildStepResidual(residualLength, h)
	}
	return b
}

// buildStepResidual samples the difference between a band-limited unit step
// with the given harmonic count and an ideal step. The fundamental is chosen
// so the top harmonic sits at Nyquist, matching the frequency region the
// table is selected for at runtime. A linear fade avoids a truncation edge
// at the table end.
func buildStepResidual(length, harmonics int) []float32 {
	r := make([]float32, length)
	f0 := 0.5 / float64(harmonics)
	for i := range r {
		t := float64(i+1) * f0
		s := 0.5
		for k := 1; k <= harmonics; k++ {
			s += math.Sin(2.0*math.Pi*float64(k)*t) / (math.Pi * float64(k))
		}
		fade := 1.0 - float64(i)/float64(length)
		r[i] = float32((s - 1.0) * fade)
	}
	return r
}

// residualFor picks the two tables bracketing the wanted harmonic count and
// the interpolation fraction between them.
func (b *blitBank) residualFor(harmonics float64) (lo, hi []float32, frac float32) {
	if harmonics <= float64(residualHarmonics[0]) {
		return b.tables[0], b.tables[0], 0
	}
	for i := 1; i < len(residualHarmonics); i++ {
		if harmonics <= float64(residualHarmonics[i]) {
			span := float64(residualHarmonics[i] - residualHarmonics[i-1])
			frac = float32((harmonics - float64(residualHarmonics[i-1])) / span)
			return b.tables[i-1], b.tables[i], frac
		}
	}
	last := b.tables[len(b.tables)-1]
	return last, last, 0
}

// residualPlayer plays one triggered residual, scaled to the reset
// discontinuity. Retriggering replaces any residual still playing.
type residualPlayer struct {
	lo, hi []float32
	frac   float32
	amp    float32
	pos    int
}

func (p *residualPlayer) trigger(bank *blitBank, harmonics float64, amp float32) {
	p.lo, p.hi, p.frac = bank.residualFor(harmonics)
	p.amp = amp
	p.pos = 0
}

func (p *residualPlayer) next() float32 {
	if p.lo == nil || p.pos >= len(p.lo) {
		return 0
	}
	v := p.lo[p.pos] + (p.hi[p.pos]-p.lo[p.pos])*p.frac
	p.pos++
	return v * p.amp
}

func (p *residualPlayer) reset() {
	p.lo = nil
	p.hi = nil
	p.amp = 0
	p.pos = 0
}
