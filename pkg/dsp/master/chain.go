// Package master assembles the bus dynamics chain: compressor, overdrive,
// and limiter in a configurable order, with lock-free metering for the UI.
package master

import (
	"math"
	"sync/atomic"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/distortion"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/dynamics"
)

// Stage identifies one processor in the chain.
type Stage int

const (
	// StageCompressor is the bus compressor
	StageCompressor Stage = iota
	// StageOverdrive is the saturation stage
	StageOverdrive
	// StageLimiter is the output brick wall
	StageLimiter

	stageCount = 3
)

// Meters is an immutable metering snapshot published after every buffer.
// The UI thread reads it through Chain.Meters without locking.
type Meters struct {
	PeakIn  float64 // linear
	PeakOut float64 // linear

	CompressorGR float64 // dB
	LimiterGR    float64 // dB
}

// Chain processes planar stereo buffers through the three master stages.
// All methods except Meters must be called from the audio thread.
type Chain struct {
	compressor *dynamics.Compressor
	overdrive  *distortion.Overdrive
	limiter    *dynamics.Limiter

	order    [stageCount]Stage
	bypassed [stageCount]bool

	// Snapshots are double-buffered: the audio thread writes the inactive
	// slot and flips it live, so publishing never allocates
	meterSlots [2]Meters
	meterIdx   int
	meters     atomic.Pointer[Meters]
}

// NewChain creates the chain in its default order: compressor, overdrive,
// limiter.
func NewChain(sampleRate float64) *Chain {
	c := &Chain{
		compressor: dynamics.NewCompressor(sampleRate),
		overdrive:  distortion.NewOverdrive(sampleRate),
		limiter:    dynamics.NewLimiter(sampleRate),
		order:      [stageCount]Stage{StageCompressor, StageOverdrive, StageLimiter},
	}
	c.meters.Store(&c.meterSlots[0])
	c.meterIdx = 1
	return c
}

// Compressor exposes the compressor stage for parameter control.
func (c *Chain) Compressor() *dynamics.Compressor {
	return c.compressor
}

// Overdrive exposes the overdrive stage.
func (c *Chain) Overdrive() *distortion.Overdrive {
	return c.overdrive
}

// Limiter exposes the limiter stage.
func (c *Chain) Limiter() *dynamics.Limiter {
	return c.limiter
}

// SetOrder rearranges the chain. The order must name each stage exactly
// once; invalid orders are ignored.
func (c *Chain) SetOrder(first, second, third Stage) {
	var seen [stageCount]bool
	for _, s := range [...]Stage{first, second, third} {
		if s < StageCompressor || s > StageLimiter || seen[s] {
			return
		}
		seen[s] = true
	}
	c.order = [stageCount]Stage{first, second, third}
}

// Order returns the current stage order.
func (c *Chain) Order() (first, second, third Stage) {
	return c.order[0], c.order[1], c.order[2]
}

// SetBypass bypasses or re-engages one stage.
func (c *Chain) SetBypass(stage Stage, bypassed bool) {
	if stage < StageCompressor || stage > StageLimiter {
		return
	}
	c.bypassed[stage] = bypassed
}

// Bypassed reports whether a stage is bypassed.
func (c *Chain) Bypassed(stage Stage) bool {
	if stage < StageCompressor || stage > StageLimiter {
		return false
	}
	return c.bypassed[stage]
}

// Meters returns the latest metering snapshot. Safe from any goroutine.
func (c *Chain) Meters() Meters {
	return *c.meters.Load()
}

// Process runs the chain over planar stereo buffers in-place and publishes
// a metering snapshot.
func (c *Chain) Process(left, right []float32) {
	peakIn := peak(left, right)

	for _, stage := range c.order {
		if c.bypassed[stage] {
			continue
		}
		switch stage {
		case StageCompressor:
			c.compressor.ProcessStereo(left, right)
		case StageOverdrive:
			c.overdrive.ProcessStereo(left, right)
		case StageLimiter:
			c.limiter.ProcessStereo(left, right)
		}
	}

	c.publishMeters(peakIn, peak(left, right))
}

// ProcessMono runs the chain over a mono buffer in-place.
func (c *Chain) ProcessMono(buffer []float32) {
	peakIn := peakMono(buffer)

	for _, stage := range c.order {
		if c.bypassed[stage] {
			continue
		}
		switch stage {
		case StageCompressor:
			c.compressor.ProcessBuffer(buffer)
		case StageOverdrive:
			c.overdrive.ProcessBuffer(buffer)
		case StageLimiter:
			c.limiter.ProcessBuffer(buffer)
		}
	}

	c.publishMeters(peakIn, peakMono(buffer))
}

// publishMeters fills the inactive snapshot slot and makes it current.
func (c *Chain) publishMeters(peakIn, peakOut float64) {
	m := &c.meterSlots[c.meterIdx]
	m.PeakIn = peakIn
	m.PeakOut = peakOut
	m.CompressorGR = c.compressor.GainReduction()
	m.LimiterGR = c.limiter.GainReduction()
	c.meters.Store(m)
	c.meterIdx ^= 1
}

// Reset clears every stage's state.
func (c *Chain) Reset() {
	c.compressor.Reset()
	c.overdrive.Reset()
	c.limiter.Reset()

	m := &c.meterSlots[c.meterIdx]
	*m = Meters{}
	c.meters.Store(m)
	c.meterIdx ^= 1
}

func peak(left, right []float32) float64 {
	p := peakMono(left)
	if r := peakMono(right); r > p {
		p = r
	}
	return p
}

func peakMono(buffer []float32) float64 {
	p := 0.0
	for _, s := range buffer {
		if v := math.Abs(float64(s)); v > p {
			p = v
		}
	}
	return p
}
