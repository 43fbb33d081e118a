package synth

import (
	"fmt"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/distortion"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/envelope"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/master"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/modulation"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/noise"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/wavetable"
	"github.com/danieltibaquira/padtrack-sub002/pkg/voice"
)

// DefaultVoiceCount is the polyphony used when the caller does not choose.
const DefaultVoiceCount = 8

// Engine is the complete synthesizer: a voice pool mixed to mono, the master
// dynamics chain, and a lock-free parameter boundary. Process, NoteOn and
// NoteOff belong to the audio thread; SetParameter and LoadPreset may be
// called from any single control thread.
type Engine struct {
	sampleRate float64
	maxBuffer  int
	prepared   bool

	voices    []*Voice
	allocator *voice.Allocator
	chain     *master.Chain

	registry *Registry
	queue    *ParamQueue

	// current mirrors every registered parameter; keys never change after
	// construction so audio-thread writes do not allocate
	current map[string]float64

	masterGain float64
}

// NewEngine creates an engine with the given polyphony playing the built-in
// morphing wavetable. Call Prepare before Process.
func NewEngine(voiceCount int) *Engine {
	if voiceCount < 1 {
		voiceCount = 1
	}
	table := wavetable.NewBasicShapes()

	e := &Engine{
		sampleRate: dsp.SampleRate44k1,
		voices:     make([]*Voice, voiceCount),
		chain:      master.NewChain(dsp.SampleRate44k1),
		registry:   newEngineRegistry(),
		queue:      NewParamQueue(256),
		masterGain: 0.7,
	}

	pool := make([]voice.Voice, voiceCount)
	for i := range e.voices {
		e.voices[i] = NewVoice(e.sampleRate, table)
		pool[i] = e.voices[i]
	}
	e.allocator = voice.NewAllocator(pool)

	e.current = e.registry.Defaults()
	for _, id := range e.registry.IDs() {
		e.applyParameter(id, e.current[id])
	}
	return e
}

// Prepare configures the engine for a sample rate and maximum buffer size.
// It recomputes every rate-dependent coefficient and re-applies the current
// parameter values, so it is safe to call between renders when the host
// renegotiates the stream.
func (e *Engine) Prepare(sampleRate float64, maxBufferSize int) error {
	if sampleRate < 8000.0 || sampleRate > 192000.0 {
		return fmt.Errorf("synth: sample rate %v out of range [8000, 192000]", sampleRate)
	}
	if maxBufferSize < dsp.MinBufferSize || maxBufferSize > dsp.MaxBufferSize {
		return fmt.Errorf("synth: buffer size %d out of range [%d, %d]",
			maxBufferSize, dsp.MinBufferSize, dsp.MaxBufferSize)
	}

	e.sampleRate = sampleRate
	e.maxBuffer = maxBufferSize

	for _, v := range e.voices {
		v.SetSampleRate(sampleRate)
	}
	// Chain stages carry sample-rate-baked delay lines and detector
	// coefficients; rebuilding is simpler than threading a rate change
	// through every stage
	e.chain = master.NewChain(sampleRate)
	e.allocator.Reset()

	for _, id := range e.registry.IDs() {
		e.applyParameter(id, e.current[id])
	}
	e.prepared = true
	return nil
}

// SampleRate returns the prepared sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Registry exposes the parameter definitions for host enumeration.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Allocator exposes the voice allocator for mode and stealing control.
func (e *Engine) Allocator() *voice.Allocator {
	return e.allocator
}

// Meters returns the master chain metering snapshot. Safe from any
// goroutine.
func (e *Engine) Meters() master.Meters {
	return e.chain.Meters()
}

// NoteOn starts a note. Audio thread only.
func (e *Engine) NoteOn(note, velocity uint8) {
	if velocity == 0 {
		e.allocator.NoteOff(note)
		return
	}
	e.allocator.NoteOn(note, velocity)
}

// NoteOff releases a note. Audio thread only.
func (e *Engine) NoteOff(note uint8) {
	e.allocator.NoteOff(note)
}

// AllNotesOff silences every voice immediately.
func (e *Engine) AllNotesOff() {
	e.allocator.Reset()
}

// ActiveVoices returns the number of sounding voices.
func (e *Engine) ActiveVoices() int {
	return e.allocator.ActiveCount()
}

// SetParameter clamps a value to its registered range and queues it for the
// audio thread. Unknown IDs and full queues return false.
func (e *Engine) SetParameter(id string, value float64) bool {
	clamped, ok := e.registry.Clamp(id, value)
	if !ok {
		return false
	}
	return e.queue.Push(ParamChange{ID: id, Value: clamped})
}

// LoadPreset queues every parameter in the preset. Unknown IDs are skipped.
// Parameters absent from the preset keep their current values.
func (e *Engine) LoadPreset(preset map[string]float64) {
	// Walk the registry so application order is deterministic
	for _, id := range e.registry.IDs() {
		if value, ok := preset[id]; ok {
			e.SetParameter(id, value)
		}
	}
}

// Parameter returns the value the audio thread last applied. It reads state
// that Process writes, so call it from the audio thread or while rendering
// is stopped; the UI polls Meters instead.
func (e *Engine) Parameter(id string) (float64, bool) {
	value, ok := e.current[id]
	return value, ok
}

// Process renders one mono buffer in-place: drains pending parameter
// changes, mixes the active voices, then runs the master chain and gain.
// No allocations.
func (e *Engine) Process(out []float32) {
	e.drainParams()

	for i := range out {
		out[i] = 0
	}
	if !e.prepared {
		return
	}

	for _, v := range e.voices {
		v.ProcessAdd(out)
	}

	e.chain.ProcessMono(out)

	gain := float32(e.masterGain)
	for i := range out {
		out[i] *= gain
	}
}

func (e *Engine) drainParams() {
	for {
		change, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.current[change.ID] = change.Value
		e.applyParameter(change.ID, change.Value)
	}
}

// applyParameter routes one registered ID to its component setter. Values
// arrive pre-clamped by the registry.
func (e *Engine) applyParameter(id string, value float64) {
	switch id {
	case "osc.morph":
		for _, v := range e.voices {
			v.SetMorph(value)
		}
	case "osc.level":
		for _, v := range e.voices {
			v.SetOscillatorLevel(value)
		}

	case "mod.mode":
		for _, v := range e.voices {
			v.Modulation().SetMode(modulation.Mode(int(value)))
		}
	case "mod.depth":
		for _, v := range e.voices {
			v.Modulation().SetDepth(value)
		}
	case "mod.ratio":
		for _, v := range e.voices {
			v.Modulation().SetRatio(value)
		}
	case "mod.fine":
		for _, v := range e.voices {
			v.Modulation().SetFineTune(value)
		}
	case "mod.phase":
		for _, v := range e.voices {
			v.Modulation().SetPhaseOffset(value)
		}
	case "mod.asymmetry":
		for _, v := range e.voices {
			v.Modulation().SetAsymmetry(value)
		}
	case "mod.antialias":
		for _, v := range e.voices {
			v.Modulation().SetAntiAlias(value >= 0.5)
		}
	case "mod.smoothing":
		for _, v := range e.voices {
			v.Modulation().SetSmoothingTime(value)
		}

	case "noise.color":
		for _, v := range e.voices {
			v.Noise().SetColor(noise.Color(int(value)))
		}
	case "noise.level":
		for _, v := range e.voices {
			v.SetNoiseLevel(value)
		}

	case "filter.cutoff":
		for _, v := range e.voices {
			v.SetCutoff(value)
		}
	case "filter.resonance":
		for _, v := range e.voices {
			v.Filter().SetResonance(value)
		}
	case "filter.drive":
		for _, v := range e.voices {
			v.Filter().SetDrive(value)
		}
	case "filter.envdepth":
		for _, v := range e.voices {
			v.SetFilterEnvDepth(value)
		}
	case "filter.oversample":
		for _, v := range e.voices {
			v.Filter().SetOversampling(int(value))
		}

	case "env.amp.attack":
		for _, v := range e.voices {
			v.AmpEnvelope().SetAttack(value)
		}
	case "env.amp.decay":
		for _, v := range e.voices {
			v.AmpEnvelope().SetDecay(value)
		}
	case "env.amp.sustain":
		for _, v := range e.voices {
			v.AmpEnvelope().SetSustain(value)
		}
	case "env.amp.release":
		for _, v := range e.voices {
			v.AmpEnvelope().SetRelease(value)
		}
	case "env.amp.curve":
		curve := envelope.Curve(int(value))
		for _, v := range e.voices {
			v.AmpEnvelope().SetCurves(curve, curve, curve)
		}
	case "env.amp.retrigger":
		mode := envelope.RetriggerMode(int(value))
		for _, v := range e.voices {
			v.AmpEnvelope().SetRetriggerMode(mode)
		}
	case "env.amp.keytrack":
		for _, v := range e.voices {
			v.AmpEnvelope().SetKeyTracking(value)
		}

	case "env.filter.attack":
		for _, v := range e.voices {
			v.FilterEnvelope().SetAttack(value)
		}
	case "env.filter.decay":
		for _, v := range e.voices {
			v.FilterEnvelope().SetDecay(value)
		}
	case "env.filter.sustain":
		for _, v := range e.voices {
			v.FilterEnvelope().SetSustain(value)
		}
	case "env.filter.release":
		for _, v := range e.voices {
			v.FilterEnvelope().SetRelease(value)
		}
	case "env.filter.curve":
		curve := envelope.Curve(int(value))
		for _, v := range e.voices {
			v.FilterEnvelope().SetCurves(curve, curve, curve)
		}
	case "env.filter.retrigger":
		mode := envelope.RetriggerMode(int(value))
		for _, v := range e.voices {
			v.FilterEnvelope().SetRetriggerMode(mode)
		}
	case "env.filter.keytrack":
		for _, v := range e.voices {
			v.FilterEnvelope().SetKeyTracking(value)
		}

	case "env.pitch.attack":
		for _, v := range e.voices {
			v.PitchEnvelope().SetAttack(value)
		}
	case "env.pitch.decay":
		for _, v := range e.voices {
			v.PitchEnvelope().SetDecay(value)
		}
	case "env.pitch.sustain":
		for _, v := range e.voices {
			v.PitchEnvelope().SetSustain(value)
		}
	case "env.pitch.release":
		for _, v := range e.voices {
			v.PitchEnvelope().SetRelease(value)
		}
	case "env.pitch.depth":
		for _, v := range e.voices {
			v.SetPitchEnvDepth(value)
		}
	case "env.pitch.curve":
		curve := envelope.Curve(int(value))
		for _, v := range e.voices {
			v.PitchEnvelope().SetCurves(curve, curve, curve)
		}
	case "env.pitch.retrigger":
		mode := envelope.RetriggerMode(int(value))
		for _, v := range e.voices {
			v.PitchEnvelope().SetRetriggerMode(mode)
		}
	case "env.pitch.keytrack":
		for _, v := range e.voices {
			v.PitchEnvelope().SetKeyTracking(value)
		}

	case "env.aux.attack":
		for _, v := range e.voices {
			v.AuxEnvelope().SetAttack(value)
		}
	case "env.aux.decay":
		for _, v := range e.voices {
			v.AuxEnvelope().SetDecay(value)
		}
	case "env.aux.sustain":
		for _, v := range e.voices {
			v.AuxEnvelope().SetSustain(value)
		}
	case "env.aux.release":
		for _, v := range e.voices {
			v.AuxEnvelope().SetRelease(value)
		}
	case "env.aux.depth":
		for _, v := range e.voices {
			v.SetAuxMorphDepth(value)
		}
	case "env.aux.curve":
		curve := envelope.Curve(int(value))
		for _, v := range e.voices {
			v.AuxEnvelope().SetCurves(curve, curve, curve)
		}
	case "env.aux.retrigger":
		mode := envelope.RetriggerMode(int(value))
		for _, v := range e.voices {
			v.AuxEnvelope().SetRetriggerMode(mode)
		}
	case "env.aux.keytrack":
		for _, v := range e.voices {
			v.AuxEnvelope().SetKeyTracking(value)
		}

	case "master.comp.threshold":
		e.chain.Compressor().SetThreshold(value)
	case "master.comp.ratio":
		e.chain.Compressor().SetRatio(value)
	case "master.comp.attack":
		e.chain.Compressor().SetAttack(value)
	case "master.comp.release":
		e.chain.Compressor().SetRelease(value)
	case "master.comp.bypass":
		e.chain.SetBypass(master.StageCompressor, value >= 0.5)

	case "master.drive.family":
		e.chain.Overdrive().SetFamily(distortion.Family(int(value)))
	case "master.drive.amount":
		e.chain.Overdrive().SetDrive(value)
	case "master.drive.mix":
		e.chain.Overdrive().SetMix(value)
	case "master.drive.bypass":
		e.chain.SetBypass(master.StageOverdrive, value >= 0.5)

	case "master.limiter.ceiling":
		e.chain.Limiter().SetCeiling(value)
	case "master.limiter.release":
		e.chain.Limiter().SetRelease(value)
	case "master.limiter.bypass":
		e.chain.SetBypass(master.StageLimiter, value >= 0.5)

	case "master.gain":
		e.masterGain = value
	}
}
