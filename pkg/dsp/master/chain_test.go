package master

import (
	"math"
	"testing"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/dynamics"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

const testRate = 48000.0

func stereoSine(freq float64, amp float32, n int) ([]float32, []float32) {
	left := make([]float32, n)
	right := make([]float32, n)
	for i := range left {
		s := amp * float32(math.Sin(2.0*math.Pi*freq*float64(i)/testRate))
		left[i] = s
		right[i] = s
	}
	return left, right
}

func TestChainHoldsCeiling(t *testing.T) {
	c := NewChain(testRate)
	c.Limiter().SetCeiling(-1.0)
	c.Limiter().SetLookahead(0.0)
	c.Overdrive().SetDrive(10.0)

	left, right := stereoSine(220.0, 1.5, int(testRate))
	c.Process(left, right)

	limit := utility.DBToLinear(-1.0) * 1.0001
	for i := range left {
		if math.Abs(float64(left[i])) > limit || math.Abs(float64(right[i])) > limit {
			t.Fatalf("sample %d exceeds ceiling: L %f R %f", i, left[i], right[i])
		}
	}
}

func TestBypassAllIsTransparent(t *testing.T) {
	c := NewChain(testRate)
	c.SetBypass(StageCompressor, true)
	c.SetBypass(StageOverdrive, true)
	c.SetBypass(StageLimiter, true)

	left, right := stereoSine(440.0, 0.5, 4096)
	wantL := append([]float32(nil), left...)
	c.Process(left, right)

	for i := range left {
		if left[i] != wantL[i] {
			t.Fatalf("bypassed chain altered sample %d: %f vs %f", i, left[i], wantL[i])
		}
	}
}

func TestSetOrderRejectsDuplicates(t *testing.T) {
	c := NewChain(testRate)
	c.SetOrder(StageLimiter, StageLimiter, StageCompressor)
	first, second, third := c.Order()
	if first != StageCompressor || second != StageOverdrive || third != StageLimiter {
		t.Errorf("invalid order accepted: %d %d %d", first, second, third)
	}

	c.SetOrder(StageOverdrive, StageLimiter, StageCompressor)
	first, second, third = c.Order()
	if first != StageOverdrive || second != StageLimiter || third != StageCompressor {
		t.Errorf("valid order rejected: %d %d %d", first, second, third)
	}
}

func TestOrderChangesResult(t *testing.T) {
	render := func(first, second, third Stage) []float32 {
		c := NewChain(testRate)
		c.SetOrder(first, second, third)
		c.Compressor().SetThreshold(-20.0)
		c.Compressor().SetRatio(8.0)
		c.Overdrive().SetDrive(6.0)
		c.Limiter().SetLookahead(0.0)
		left, right := stereoSine(220.0, 0.9, 8192)
		c.Process(left, right)
		return left
	}

	a := render(StageCompressor, StageOverdrive, StageLimiter)
	b := render(StageOverdrive, StageCompressor, StageLimiter)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("reordering the chain produced identical output")
	}
}

func TestProcessPublishesWithoutAllocating(t *testing.T) {
	c := NewChain(testRate)
	left, right := stereoSine(220.0, 0.9, 256)
	mono := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		c.Process(left, right)
	})
	if allocs != 0 {
		t.Errorf("Process allocates %.1f objects per buffer", allocs)
	}

	allocs = testing.AllocsPerRun(100, func() {
		c.ProcessMono(mono)
	})
	if allocs != 0 {
		t.Errorf("ProcessMono allocates %.1f objects per buffer", allocs)
	}

	// Recycled snapshot slots must still publish fresh values
	loud := make([]float32, 256)
	for i := range loud {
		loud[i] = 0.9
	}
	c.ProcessMono(loud)
	if m := c.Meters(); m.PeakIn < 0.85 {
		t.Errorf("loud buffer peak meter %f, want ~0.9", m.PeakIn)
	}
	c.ProcessMono(make([]float32, 256))
	if m := c.Meters(); m.PeakIn != 0.0 {
		t.Errorf("silent buffer peak meter %f, want 0", m.PeakIn)
	}
}

func TestMetersPublished(t *testing.T) {
	c := NewChain(testRate)
	c.Compressor().SetThreshold(-20.0)
	c.Compressor().SetRatio(4.0)
	c.Compressor().SetKnee(dynamics.KneeHard, 0.0)

	left, right := stereoSine(220.0, 0.9, int(testRate/10))
	c.Process(left, right)

	m := c.Meters()
	if m.PeakIn < 0.85 || m.PeakIn > 0.95 {
		t.Errorf("input peak meter %f, want ~0.9", m.PeakIn)
	}
	if m.PeakOut <= 0.0 {
		t.Error("output peak meter empty")
	}
	if m.CompressorGR <= 0.0 {
		t.Error("compressor meter shows no reduction for a hot signal")
	}
}
