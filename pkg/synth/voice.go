// Package synth composes the DSP building blocks into voices and a
// polyphonic engine with a lock-free parameter boundary.
package synth

import (
	"math"

	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/envelope"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/filter"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/modulation"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/noise"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/utility"
	"github.com/danieltibaquira/padtrack-sub002/pkg/dsp/wavetable"
)

// Voice is one playable note: two wavetable oscillators combined by the
// modulation engine, a noise source, four envelopes, and the ladder filter.
// A voice is safe to reuse once its amp envelope returns to idle.
type Voice struct {
	sampleRate float64

	mod    *modulation.Engine
	noise  *noise.Generator
	filter *filter.Ladder

	ampEnv    *envelope.DADSR
	filterEnv *envelope.DADSR
	pitchEnv  *envelope.DADSR
	auxEnv    *envelope.DADSR

	note     uint8
	velocity uint8
	age      int64

	baseFrequency  float64
	oscLevel       float64
	noiseLevel     float64
	baseMorph      float64
	baseCutoff     float64
	pitchDepth     float64 // semitones
	filterEnvDepth float64 // octaves
	auxMorphDepth  float64 // morph frames
}

// NewVoice creates a voice playing the given wavetable.
func NewVoice(sampleRate float64, table *wavetable.Table) *Voice {
	v := &Voice{
		sampleRate:     sampleRate,
		mod:            modulation.New(sampleRate, table, table),
		noise:          noise.New(sampleRate),
		filter:         filter.NewLadder(sampleRate),
		ampEnv:         envelope.New(sampleRate),
		filterEnv:      envelope.New(sampleRate),
		pitchEnv:       envelope.New(sampleRate),
		auxEnv:         envelope.New(sampleRate),
		baseFrequency:  DefaultTuningA4,
		oscLevel:       0.8,
		baseCutoff:     1200.0,
		filterEnvDepth: 2.0,
	}
	v.ampEnv.SetADSR(0.005, 0.100, 0.8, 0.200)
	v.filterEnv.SetADSR(0.010, 0.300, 0.3, 0.300)
	v.pitchEnv.SetADSR(0.0, 0.150, 0.0, 0.050)
	v.auxEnv.SetADSR(0.050, 0.500, 0.5, 0.200)
	return v
}

// SetSampleRate recomputes every rate-dependent coefficient. Call from
// prepare only.
func (v *Voice) SetSampleRate(sampleRate float64) {
	v.sampleRate = sampleRate
	v.mod.SetSampleRate(sampleRate)
	v.noise.SetSampleRate(sampleRate)
	v.filter.SetSampleRate(sampleRate)
	v.ampEnv.SetSampleRate(sampleRate)
	v.filterEnv.SetSampleRate(sampleRate)
	v.pitchEnv.SetSampleRate(sampleRate)
	v.auxEnv.SetSampleRate(sampleRate)
}

// Modulation exposes the oscillator modulation engine.
func (v *Voice) Modulation() *modulation.Engine {
	return v.mod
}

// Noise exposes the noise generator.
func (v *Voice) Noise() *noise.Generator {
	return v.noise
}

// Filter exposes the ladder filter.
func (v *Voice) Filter() *filter.Ladder {
	return v.filter
}

// AmpEnvelope exposes the amplitude envelope.
func (v *Voice) AmpEnvelope() *envelope.DADSR {
	return v.ampEnv
}

// FilterEnvelope exposes the cutoff modulation envelope.
func (v *Voice) FilterEnvelope() *envelope.DADSR {
	return v.filterEnv
}

// PitchEnvelope exposes the pitch modulation envelope.
func (v *Voice) PitchEnvelope() *envelope.DADSR {
	return v.pitchEnv
}

// AuxEnvelope exposes the morph modulation envelope.
func (v *Voice) AuxEnvelope() *envelope.DADSR {
	return v.auxEnv
}

// SetOscillatorLevel sets the oscillator mix level (0-1).
func (v *Voice) SetOscillatorLevel(level float64) {
	v.oscLevel = utility.ClampFinite(level, 0.0, 1.0)
}

// SetNoiseLevel sets the noise mix level (0-1).
func (v *Voice) SetNoiseLevel(level float64) {
	v.noiseLevel = utility.ClampFinite(level, 0.0, 1.0)
}

// SetMorph sets the base wavetable morph position.
func (v *Voice) SetMorph(position float64) {
	v.baseMorph = utility.ClampFinite(position, 0.0, 8.0)
}

// SetCutoff sets the base filter cutoff in Hz. The filter envelope scales it
// exponentially around this value.
func (v *Voice) SetCutoff(hz float64) {
	v.baseCutoff = utility.ClampFinite(hz, dsp.MinFrequency, dsp.MaxFrequency)
}

// SetPitchEnvDepth sets the pitch envelope depth in semitones.
func (v *Voice) SetPitchEnvDepth(semitones float64) {
	v.pitchDepth = utility.ClampFinite(semitones, -24.0, 24.0)
}

// SetFilterEnvDepth sets the filter envelope depth in octaves.
func (v *Voice) SetFilterEnvDepth(octaves float64) {
	v.filterEnvDepth = utility.ClampFinite(octaves, -5.0, 5.0)
}

// SetAuxMorphDepth routes the aux envelope to the morph position with the
// given depth in frames.
func (v *Voice) SetAuxMorphDepth(depth float64) {
	v.auxMorphDepth = utility.ClampFinite(depth, -3.0, 3.0)
}

// NoteOn starts the voice.
func (v *Voice) NoteOn(note, velocity uint8) {
	if note > 127 {
		note = 127
	}
	v.note = note
	v.velocity = velocity
	v.age = 0
	v.baseFrequency = NoteToFrequency(note, DefaultTuningA4)

	v.ampEnv.NoteOn(velocity, note)
	v.filterEnv.NoteOn(velocity, note)
	v.pitchEnv.NoteOn(velocity, note)
	v.auxEnv.NoteOn(velocity, note)
}

// NoteOff releases the voice.
func (v *Voice) NoteOff() {
	v.ampEnv.NoteOff()
	v.filterEnv.NoteOff()
	v.pitchEnv.NoteOff()
	v.auxEnv.NoteOff()
}

// Stop silences the voice immediately, making it available for reuse.
func (v *Voice) Stop() {
	v.ampEnv.Reset()
	v.filterEnv.Reset()
	v.pitchEnv.Reset()
	v.auxEnv.Reset()
	v.mod.Reset()
	v.filter.Reset()
}

// IsActive reports whether the voice is producing output.
func (v *Voice) IsActive() bool {
	return v.ampEnv.IsActive()
}

// Note returns the MIDI note the voice is playing.
func (v *Voice) Note() uint8 {
	return v.note
}

// Velocity returns the note-on velocity.
func (v *Voice) Velocity() uint8 {
	return v.velocity
}

// Age returns how long the voice has been playing, in samples.
func (v *Voice) Age() int64 {
	return v.age
}

// Amplitude returns the current amp envelope level, used for quietest-voice
// stealing.
func (v *Voice) Amplitude() float64 {
	return v.ampEnv.Level()
}

// ProcessAdd renders the voice and mixes it into buffer - no allocations.
func (v *Voice) ProcessAdd(buffer []float32) {
	if !v.IsActive() {
		return
	}

	for i := range buffer {
		// Pitch envelope bends the oscillator pair in semitones
		pitch := float64(v.pitchEnv.Next())
		freq := v.baseFrequency
		if v.pitchDepth != 0 {
			freq *= math.Pow(2.0, v.pitchDepth*pitch/12.0)
		}
		v.mod.SetFrequency(freq)

		// Aux envelope sweeps the morph position
		if v.auxMorphDepth != 0 {
			aux := float64(v.auxEnv.Next())
			v.mod.Carrier().SetFramePosition(v.baseMorph + v.auxMorphDepth*aux)
		} else {
			v.auxEnv.Next()
			v.mod.Carrier().SetFramePosition(v.baseMorph)
		}

		sample := v.mod.Next() * float32(v.oscLevel)
		if v.noiseLevel > 0 {
			sample += v.noise.Next() * float32(v.noiseLevel)
		}

		// Filter envelope scales the cutoff exponentially, in octaves
		fenv := float64(v.filterEnv.Next())
		v.filter.SetCutoff(v.baseCutoff * math.Pow(2.0, v.filterEnvDepth*fenv))

		sample = v.filter.Process(sample)
		buffer[i] += sample * v.ampEnv.Next()
	}
	v.age += int64(len(buffer))
}
