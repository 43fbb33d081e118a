package synth

import (
	"math"
	"testing"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
)

func TestNoteToFrequency(t *testing.T) {
	tests := []struct {
		note uint8
		want float64
	}{
		{69, 440.0},
		{81, 880.0},
		{57, 220.0},
		{60, 261.6255653},
		{0, 8.1757989},
	}
	for _, tt := range tests {
		got := NoteToFrequency(tt.note, DefaultTuningA4)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("note %d: got %.4f Hz, want %.4f Hz", tt.note, got, tt.want)
		}
	}

	// Alternate tuning scales everything proportionally
	if got := NoteToFrequency(69, 432.0); math.Abs(got-432.0) > 1e-9 {
		t.Errorf("A4 at 432 tuning: got %.4f", got)
	}
}

func TestParamQueueOrdering(t *testing.T) {
	q := NewParamQueue(8)

	for i := 0; i < 5; i++ {
		if !q.Push(ParamChange{ID: "filter.cutoff", Value: float64(i)}) {
			t.Fatalf("push %d failed on non-full queue", i)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Len = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		change, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if change.Value != float64(i) {
			t.Errorf("pop %d: value %v, want %d (FIFO order)", i, change.Value, i)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("pop on empty queue succeeded")
	}
}

func TestParamQueueFullRejectsPush(t *testing.T) {
	q := NewParamQueue(4)
	for i := 0; i < 4; i++ {
		if !q.Push(ParamChange{Value: float64(i)}) {
			t.Fatalf("push %d failed before capacity", i)
		}
	}
	if q.Push(ParamChange{Value: 99}) {
		t.Error("push succeeded on full queue")
	}

	// Draining one slot makes room again
	q.Pop()
	if !q.Push(ParamChange{Value: 4}) {
		t.Error("push failed after pop freed a slot")
	}
}

func TestRegistryClamps(t *testing.T) {
	r := newEngineRegistry()

	if got, ok := r.Clamp("filter.cutoff", 1e9); !ok || got != dsp.MaxFrequency {
		t.Errorf("cutoff 1e9 clamped to %v, want %v", got, dsp.MaxFrequency)
	}
	if got, ok := r.Clamp("osc.level", -3.0); !ok || got != 0.0 {
		t.Errorf("level -3 clamped to %v, want 0", got)
	}
	if got, ok := r.Clamp("mod.ratio", math.NaN()); !ok || math.IsNaN(got) {
		t.Errorf("NaN ratio survived clamping: %v", got)
	}
	if _, ok := r.Clamp("nonsense.param", 1.0); ok {
		t.Error("unknown ID accepted")
	}
}

func TestRegistryDefaultsCoverEveryID(t *testing.T) {
	r := newEngineRegistry()
	defaults := r.Defaults()
	for _, id := range r.IDs() {
		value, ok := defaults[id]
		if !ok {
			t.Errorf("default missing for %q", id)
			continue
		}
		def, _ := r.Lookup(id)
		if value < def.Min || value > def.Max {
			t.Errorf("%q default %v outside [%v, %v]", id, value, def.Min, def.Max)
		}
	}
}

func TestPrepareValidates(t *testing.T) {
	e := NewEngine(4)
	if err := e.Prepare(1000.0, 512); err == nil {
		t.Error("sample rate 1000 accepted")
	}
	if err := e.Prepare(48000.0, 1); err == nil {
		t.Error("buffer size 1 accepted")
	}
	if err := e.Prepare(48000.0, 512); err != nil {
		t.Errorf("valid prepare failed: %v", err)
	}
}

func TestEngineSilentWhenIdle(t *testing.T) {
	e := NewEngine(4)
	if err := e.Prepare(44100.0, 512); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out := make([]float32, 512)
	for i := range out {
		out[i] = 0.5 // stale data must be overwritten
	}
	e.Process(out)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("idle engine produced %v at sample %d", s, i)
		}
	}
}

func TestEngineRendersAndReleasesNote(t *testing.T) {
	e := NewEngine(4)
	if err := e.Prepare(44100.0, 512); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	e.NoteOn(69, 100)
	out := make([]float32, 512)

	sumSq := 0.0
	for block := 0; block < 8; block++ {
		e.Process(out)
		for _, s := range out {
			sumSq += float64(s) * float64(s)
		}
	}
	rms := math.Sqrt(sumSq / (8.0 * 512.0))
	if rms < 0.005 {
		t.Fatalf("held note RMS %.5f, expected audible output", rms)
	}
	if e.ActiveVoices() != 1 {
		t.Errorf("active voices = %d, want 1", e.ActiveVoices())
	}

	e.NoteOff(69)
	// Render past the default release tail
	blocks := int(44100.0*1.0)/512 + 1
	for block := 0; block < blocks; block++ {
		e.Process(out)
	}
	peak := 0.0
	for _, s := range out {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	if peak > 1e-3 {
		t.Errorf("released note still at %.5f after 1s", peak)
	}
	if e.ActiveVoices() != 0 {
		t.Errorf("active voices = %d after release, want 0", e.ActiveVoices())
	}
}

func TestSetParameterClampsAndApplies(t *testing.T) {
	e := NewEngine(2)
	if err := e.Prepare(44100.0, 256); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if !e.SetParameter("filter.cutoff", 1e9) {
		t.Fatal("SetParameter rejected a known ID")
	}
	if e.SetParameter("does.not.exist", 1.0) {
		t.Error("SetParameter accepted an unknown ID")
	}

	// Changes apply when the audio thread drains the queue
	if got, _ := e.Parameter("filter.cutoff"); got != 1200.0 {
		t.Errorf("cutoff applied before Process: %v", got)
	}
	out := make([]float32, 256)
	e.Process(out)
	if got, _ := e.Parameter("filter.cutoff"); got != dsp.MaxFrequency {
		t.Errorf("cutoff after drain = %v, want clamped %v", got, dsp.MaxFrequency)
	}
}

func TestLoadPresetAppliesKnownIDs(t *testing.T) {
	e := NewEngine(2)
	if err := e.Prepare(44100.0, 256); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	e.LoadPreset(map[string]float64{
		"master.gain":   1.5,
		"noise.level":   0.4,
		"bogus.entry":   9.9,
		"filter.cutoff": 800.0,
	})
	out := make([]float32, 256)
	e.Process(out)

	if got, _ := e.Parameter("master.gain"); got != 1.5 {
		t.Errorf("master.gain = %v, want 1.5", got)
	}
	if got, _ := e.Parameter("noise.level"); got != 0.4 {
		t.Errorf("noise.level = %v, want 0.4", got)
	}
	if got, _ := e.Parameter("filter.cutoff"); got != 800.0 {
		t.Errorf("filter.cutoff = %v, want 800", got)
	}
	if _, ok := e.Parameter("bogus.entry"); ok {
		t.Error("unknown preset entry was stored")
	}
}

func TestMasterGainScalesOutput(t *testing.T) {
	render := func(gain float64) float64 {
		e := NewEngine(2)
		if err := e.Prepare(44100.0, 512); err != nil {
			t.Fatalf("prepare: %v", err)
		}
		// Bypass the nonlinear stages so scaling is exact
		e.SetParameter("master.comp.bypass", 1.0)
		e.SetParameter("master.drive.bypass", 1.0)
		e.SetParameter("master.limiter.bypass", 1.0)
		e.SetParameter("master.gain", gain)

		e.NoteOn(60, 100)
		out := make([]float32, 512)
		sumSq := 0.0
		for block := 0; block < 8; block++ {
			e.Process(out)
			for _, s := range out {
				sumSq += float64(s) * float64(s)
			}
		}
		return math.Sqrt(sumSq / (8.0 * 512.0))
	}

	half := render(0.5)
	full := render(1.0)
	ratio := full / half
	if math.Abs(ratio-2.0) > 0.01 {
		t.Errorf("gain 1.0 vs 0.5 RMS ratio %.4f, want 2.0", ratio)
	}
}

func TestEnvelopeShapeParamsAutomatable(t *testing.T) {
	e := NewEngine(1)
	for _, id := range []string{
		"mod.smoothing",
		"env.amp.curve", "env.amp.retrigger", "env.amp.keytrack",
		"env.filter.curve", "env.filter.retrigger", "env.filter.keytrack",
		"env.pitch.curve", "env.pitch.retrigger", "env.pitch.keytrack",
		"env.aux.curve", "env.aux.retrigger", "env.aux.keytrack",
	} {
		if !e.SetParameter(id, 0.0) {
			t.Errorf("%q not registered", id)
		}
	}
}

func TestAttackCurveParameterShapesOutput(t *testing.T) {
	render := func(curve float64) []float32 {
		e := NewEngine(1)
		if err := e.Prepare(44100.0, 512); err != nil {
			t.Fatalf("prepare: %v", err)
		}
		e.SetParameter("master.comp.bypass", 1.0)
		e.SetParameter("master.drive.bypass", 1.0)
		e.SetParameter("master.limiter.bypass", 1.0)
		e.SetParameter("env.amp.attack", 0.05)
		e.SetParameter("env.amp.curve", curve)

		e.NoteOn(69, 100)
		out := make([]float32, 512)
		e.Process(out)
		return out
	}

	linear := render(0.0)
	exponential := render(1.0)
	same := true
	for i := range linear {
		if linear[i] != exponential[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("attack curve parameter had no effect on the rendered attack")
	}
}

func TestModSmoothingParameterApplies(t *testing.T) {
	e := NewEngine(1)
	if err := e.Prepare(44100.0, 256); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !e.SetParameter("mod.smoothing", 0.02) {
		t.Fatal("mod.smoothing rejected")
	}
	e.Process(make([]float32, 256))
	if got, _ := e.Parameter("mod.smoothing"); got != 0.02 {
		t.Errorf("mod.smoothing after drain = %v, want 0.02", got)
	}
}

func TestVoiceReusableAfterStop(t *testing.T) {
	e := NewEngine(1)
	if err := e.Prepare(44100.0, 256); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out := make([]float32, 256)
	e.NoteOn(60, 100)
	e.Process(out)
	e.AllNotesOff()
	if e.ActiveVoices() != 0 {
		t.Fatalf("voices still active after AllNotesOff")
	}

	e.NoteOn(72, 100)
	sumSq := 0.0
	for block := 0; block < 4; block++ {
		e.Process(out)
		for _, s := range out {
			sumSq += float64(s) * float64(s)
		}
	}
	if math.Sqrt(sumSq/(4.0*256.0)) < 0.005 {
		t.Error("reused voice produced no output")
	}
}
