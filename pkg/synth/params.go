package synth

import (
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
)

// ParamDef describes one automatable parameter.
type ParamDef struct {
	ID      string
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// Registry holds the parameter definitions and clamps caller-supplied
// values. Out-of-range and non-finite values clamp rather than error so a
// bad host value can never reach the audio thread.
type Registry struct {
	defs  map[string]ParamDef
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]ParamDef)}
}

// Register adds a definition. Re-registering an ID replaces it.
func (r *Registry) Register(def ParamDef) {
	if _, exists := r.defs[def.ID]; !exists {
		r.order = append(r.order, def.ID)
	}
	r.defs[def.ID] = def
}

// Clamp validates a value against the parameter's range. Unknown IDs return
// false.
func (r *Registry) Clamp(id string, value float64) (float64, bool) {
	def, ok := r.defs[id]
	if !ok {
		return 0, false
	}
	return utility.ClampFinite(value, def.Min, def.Max), true
}

// Lookup returns the definition for an ID.
func (r *Registry) Lookup(id string) (ParamDef, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// IDs returns every registered ID in registration order.
func (r *Registry) IDs() []string {
	return r.order
}

// Defaults returns a preset holding every parameter at its default value.
func (r *Registry) Defaults() map[string]float64 {
	preset := make(map[string]float64, len(r.order))
	for _, id := range r.order {
		preset[id] = r.defs[id].Default
	}
	return preset
}

// newEngineRegistry enumerates every automatable parameter of the engine.
func newEngineRegistry() *Registry {
	r := NewRegistry()

	for _, def := range []ParamDef{
		{"osc.morph", "Oscillator morph position", 0.0, 3.0, 0.0},
		{"osc.level", "Oscillator level", 0.0, 1.0, 0.8},

		{"mod.mode", "Modulation mode", 0.0, 9.0, 0.0},
		{"mod.depth", "Modulation depth", 0.0, 1.0, 1.0},
		{"mod.ratio", "Modulator frequency ratio", 0.001, 64.0, 1.0},
		{"mod.fine", "Modulator fine tune (cents)", -1200.0, 1200.0, 0.0},
		{"mod.phase", "Modulator phase offset", 0.0, 1.0, 0.0},
		{"mod.asymmetry", "Ring asymmetry", -1.0, 1.0, 0.0},
		{"mod.antialias", "Modulation anti-aliasing", 0.0, 1.0, 1.0},
		{"mod.smoothing", "Modulation smoothing time (s)", 0.0, 0.1, 0.005},

		{"noise.color", "Noise color", 0.0, 7.0, 0.0},
		{"noise.level", "Noise level", 0.0, 1.0, 0.0},

		{"filter.cutoff", "Filter cutoff (Hz)", dsp.MinFrequency, dsp.MaxFrequency, 1200.0},
		{"filter.resonance", "Filter resonance", dsp.MinResonance, dsp.MaxResonance, 0.2},
		{"filter.drive", "Filter drive", dsp.MinDrive, dsp.MaxDrive, 1.0},
		{"filter.envdepth", "Filter envelope depth (octaves)", -5.0, 5.0, 2.0},
		{"filter.oversample", "Filter oversampling factor", 1.0, 4.0, 1.0},

		{"env.amp.attack", "Amp attack (s)", 0.0, 30.0, 0.005},
		{"env.amp.decay", "Amp decay (s)", 0.0, 30.0, 0.100},
		{"env.amp.sustain", "Amp sustain", 0.0, 1.0, 0.8},
		{"env.amp.release", "Amp release (s)", 0.0, 30.0, 0.200},
		{"env.amp.curve", "Amp envelope curve", 0.0, 5.0, 0.0},
		{"env.amp.retrigger", "Amp envelope retrigger mode", 0.0, 2.0, 0.0},
		{"env.amp.keytrack", "Amp envelope key tracking", -1.0, 1.0, 0.0},

		{"env.filter.attack", "Filter env attack (s)", 0.0, 30.0, 0.010},
		{"env.filter.decay", "Filter env decay (s)", 0.0, 30.0, 0.300},
		{"env.filter.sustain", "Filter env sustain", 0.0, 1.0, 0.3},
		{"env.filter.release", "Filter env release (s)", 0.0, 30.0, 0.300},
		{"env.filter.curve", "Filter env curve", 0.0, 5.0, 0.0},
		{"env.filter.retrigger", "Filter env retrigger mode", 0.0, 2.0, 0.0},
		{"env.filter.keytrack", "Filter env key tracking", -1.0, 1.0, 0.0},

		{"env.pitch.attack", "Pitch env attack (s)", 0.0, 30.0, 0.0},
		{"env.pitch.decay", "Pitch env decay (s)", 0.0, 30.0, 0.150},
		{"env.pitch.sustain", "Pitch env sustain", 0.0, 1.0, 0.0},
		{"env.pitch.release", "Pitch env release (s)", 0.0, 30.0, 0.050},
		{"env.pitch.depth", "Pitch env depth (semitones)", -24.0, 24.0, 0.0},
		{"env.pitch.curve", "Pitch env curve", 0.0, 5.0, 0.0},
		{"env.pitch.retrigger", "Pitch env retrigger mode", 0.0, 2.0, 0.0},
		{"env.pitch.keytrack", "Pitch env key tracking", -1.0, 1.0, 0.0},

		{"env.aux.attack", "Aux env attack (s)", 0.0, 30.0, 0.050},
		{"env.aux.decay", "Aux env decay (s)", 0.0, 30.0, 0.500},
		{"env.aux.sustain", "Aux env sustain", 0.0, 1.0, 0.5},
		{"env.aux.release", "Aux env release (s)", 0.0, 30.0, 0.200},
		{"env.aux.depth", "Aux env morph depth", -3.0, 3.0, 0.0},
		{"env.aux.curve", "Aux env curve", 0.0, 5.0, 0.0},
		{"env.aux.retrigger", "Aux env retrigger mode", 0.0, 2.0, 0.0},
		{"env.aux.keytrack", "Aux env key tracking", -1.0, 1.0, 0.0},

		{"master.comp.threshold", "Compressor threshold (dB)", dsp.MinThresholdDB, dsp.MaxThresholdDB, -18.0},
		{"master.comp.ratio", "Compressor ratio", dsp.MinRatio, dsp.MaxRatio, 3.0},
		{"master.comp.attack", "Compressor attack (s)", dsp.MinAttack, dsp.MaxAttack, 0.005},
		{"master.comp.release", "Compressor release (s)", dsp.MinRelease, dsp.MaxRelease, 0.080},
		{"master.comp.bypass", "Compressor bypass", 0.0, 1.0, 0.0},

		{"master.drive.family", "Overdrive family", 0.0, 4.0, 0.0},
		{"master.drive.amount", "Overdrive amount", 1.0, dsp.MaxDrive, 1.0},
		{"master.drive.mix", "Overdrive mix", 0.0, 1.0, 0.3},
		{"master.drive.bypass", "Overdrive bypass", 0.0, 1.0, 0.0},

		{"master.limiter.ceiling", "Limiter ceiling (dB)", -24.0, 0.0, -0.3},
		{"master.limiter.release", "Limiter release (s)", dsp.MinRelease, dsp.MaxRelease, 0.050},
		{"master.limiter.bypass", "Limiter bypass", 0.0, 1.0, 0.0},

		{"master.gain", "Master gain", 0.0, 2.0, 0.7},
	} {
		r.Register(def)
	}

	return r
}
