package synth

import "math"

// DefaultTuningA4 is the standard concert pitch reference.
const DefaultTuningA4 = 440.0

// NoteToFrequency converts a MIDI note number to a frequency in Hz using
// equal temperament around the given A4 tuning.
func NoteToFrequency(note uint8, tuningA4 float64) float64 {
	return tuningA4 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}
