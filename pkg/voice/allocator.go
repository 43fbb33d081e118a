// Package voice allocates notes to a fixed pool of synthesizer voices.
package voice

// Voice is the contract a playable voice must satisfy for allocation.
type Voice interface {
	// IsActive reports whether the voice is producing output
	IsActive() bool
	// Note returns the MIDI note the voice is playing
	Note() uint8
	// Velocity returns the note-on velocity
	Velocity() uint8
	// Amplitude returns the current output level, for quietest stealing
	Amplitude() float64
	// Age returns how long the voice has been playing, in samples
	Age() int64
	// NoteOn starts a note
	NoteOn(note, velocity uint8)
	// NoteOff releases the note
	NoteOff()
	// Stop silences the voice immediately
	Stop()
}

// AllocationMode selects how incoming notes map to voices.
type AllocationMode int

const (
	// ModePoly gives each note its own voice
	ModePoly AllocationMode = iota
	// ModeMono plays one voice, retriggering on every note
	ModeMono
	// ModeLegato plays one voice; overlapping notes change pitch without a
	// hard retrigger (the voice's envelope retrigger mode decides the rest)
	ModeLegato
)

// StealingMode selects the victim when every voice is busy.
type StealingMode int

const (
	// StealOldest takes the longest-playing voice
	StealOldest StealingMode = iota
	// StealQuietest takes the voice with the lowest amplitude
	StealQuietest
	// StealNone drops new notes when the pool is full
	StealNone
)

// Allocator maps notes onto a voice pool. Not safe for concurrent use; call
// it from the thread that drives the engine.
type Allocator struct {
	voices   []Voice
	mode     AllocationMode
	stealing StealingMode

	noteToVoice map[uint8]int
	lastUsed    int

	sustainPedal   bool
	sustainedNotes map[uint8]bool

	currentNote uint8
	noteHeld    bool
}

// NewAllocator creates a poly allocator with oldest stealing over the given
// pool.
func NewAllocator(voices []Voice) *Allocator {
	return &Allocator{
		voices:         voices,
		noteToVoice:    make(map[uint8]int, len(voices)),
		sustainedNotes: make(map[uint8]bool),
	}
}

// SetMode switches the allocation mode and stops all voices.
func (a *Allocator) SetMode(mode AllocationMode) {
	if mode < ModePoly || mode > ModeLegato {
		mode = ModePoly
	}
	a.mode = mode
	a.Reset()
}

// Mode returns the allocation mode.
func (a *Allocator) Mode() AllocationMode {
	return a.mode
}

// SetStealingMode selects the voice stealing behavior.
func (a *Allocator) SetStealingMode(mode StealingMode) {
	if mode < StealOldest || mode > StealNone {
		mode = StealOldest
	}
	a.stealing = mode
}

// NoteOn routes a note-on to a voice.
func (a *Allocator) NoteOn(note, velocity uint8) {
	if note > 127 {
		note = 127
	}
	switch a.mode {
	case ModeMono:
		a.noteOnMono(note, velocity)
	case ModeLegato:
		a.noteOnLegato(note, velocity)
	default:
		a.noteOnPoly(note, velocity)
	}
}

// NoteOff routes a note-off. With the sustain pedal down the release is
// deferred until the pedal lifts.
func (a *Allocator) NoteOff(note uint8) {
	if a.sustainPedal {
		a.sustainedNotes[note] = true
		return
	}

	switch a.mode {
	case ModeMono, ModeLegato:
		if a.noteHeld && note == a.currentNote {
			a.voices[0].NoteOff()
			a.noteHeld = false
			delete(a.noteToVoice, note)
		}
	default:
		if idx, ok := a.noteToVoice[note]; ok {
			a.voices[idx].NoteOff()
			delete(a.noteToVoice, note)
		}
	}
}

// SetSustainPedal holds releases while down and flushes them on lift.
func (a *Allocator) SetSustainPedal(down bool) {
	a.sustainPedal = down
	if down {
		return
	}
	for note := range a.sustainedNotes {
		delete(a.sustainedNotes, note)
		a.NoteOff(note)
	}
}

// Reset stops every voice and clears the note map.
func (a *Allocator) Reset() {
	for _, v := range a.voices {
		v.Stop()
	}
	a.noteToVoice = make(map[uint8]int, len(a.voices))
	a.sustainedNotes = make(map[uint8]bool)
	a.sustainPedal = false
	a.noteHeld = false
	a.currentNote = 0
}

// ActiveCount returns the number of sounding voices.
func (a *Allocator) ActiveCount() int {
	count := 0
	for _, v := range a.voices {
		if v.IsActive() {
			count++
		}
	}
	return count
}

func (a *Allocator) noteOnPoly(note, velocity uint8) {
	// A repeated note retriggers its existing voice
	if idx, ok := a.noteToVoice[note]; ok {
		a.voices[idx].NoteOn(note, velocity)
		return
	}

	idx := a.findFreeVoice()
	if idx == -1 {
		idx = a.stealVoice()
		if idx == -1 {
			return
		}
	}
	a.voices[idx].NoteOn(note, velocity)
	a.noteToVoice[note] = idx
}

func (a *Allocator) noteOnMono(note, velocity uint8) {
	for note := range a.noteToVoice {
		delete(a.noteToVoice, note)
	}
	a.voices[0].NoteOn(note, velocity)
	a.noteToVoice[note] = 0
	a.currentNote = note
	a.noteHeld = true
}

func (a *Allocator) noteOnLegato(note, velocity uint8) {
	// While a note is held the voice follows the new pitch; the envelope
	// retrigger mode decides whether levels restart
	a.noteOnMono(note, velocity)
}

// findFreeVoice walks the pool round-robin so released voices ring out
// evenly.
func (a *Allocator) findFreeVoice() int {
	for i := 0; i < len(a.voices); i++ {
		idx := (a.lastUsed + i + 1) % len(a.voices)
		if !a.voices[idx].IsActive() {
			a.lastUsed = idx
			return idx
		}
	}
	return -1
}

func (a *Allocator) stealVoice() int {
	if a.stealing == StealNone {
		return -1
	}

	best := -1
	var bestValue float64
	for i, v := range a.voices {
		switch a.stealing {
		case StealQuietest:
			amp := v.Amplitude()
			if best == -1 || amp < bestValue {
				best = i
				bestValue = amp
			}
		default:
			age := float64(v.Age())
			if best == -1 || age > bestValue {
				best = i
				bestValue = age
			}
		}
	}

	if best != -1 {
		stolen := a.voices[best].Note()
		if idx, ok := a.noteToVoice[stolen]; ok && idx == best {
			delete(a.noteToVoice, stolen)
		}
		a.voices[best].Stop()
		a.lastUsed = best
	}
	return best
}
