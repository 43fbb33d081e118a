// Package wavetable provides multi-frame wavetables and a morphing
// wavetable oscillator.
package wavetable

import (
	"fmt"
	"math"
)

// DefaultFrameLength is the frame size used by the built-in table builders.
const DefaultFrameLength = 2048

// Frame holds one waveform cycle. Immutable once loaded into a Table.
type Frame []float32

// Table is an ordered sequence of equal-length frames for morphing playback.
// Read-only during playback.
type Table struct {
	name     string
	frames   []Frame
	frameLen int
	mask     int
}

// NewTable validates the frames and builds a table. All frames must share the
// same power-of-two length. This is the one place wavetable data can fail;
// playback never errors.
func NewTable(name string, frames []Frame) (*Table, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("wavetable %q: no frames", name)
	}
	frameLen := len(frames[0])
	if frameLen < 4 || frameLen&(frameLen-1) != 0 {
		return nil, fmt.Errorf("wavetable %q: frame length %d is not a power of two >= 4", name, frameLen)
	}
	for i, f := range frames {
		if len(f) != frameLen {
			return nil, fmt.Errorf("wavetable %q: frame %d has length %d, expected %d", name, i, len(f), frameLen)
		}
		for j, s := range f {
			if s != s || float64(s) > 16.0 || float64(s) < -16.0 {
				return nil, fmt.Errorf("wavetable %q: frame %d sample %d is not a sane value", name, i, j)
			}
		}
	}
	return &Table{
		name:     name,
		frames:   frames,
		frameLen: frameLen,
		mask:     frameLen - 1,
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// FrameCount returns the number of morph frames.
func (t *Table) FrameCount() int {
	return len(t.frames)
}

// FrameLength returns the per-frame sample count.
func (t *Table) FrameLength() int {
	return t.frameLen
}

// at reads a sample with a wrapped sample index and clamped frame index.
func (t *Table) at(frame, index int) float32 {
	if frame < 0 {
		frame = 0
	}
	if frame >= len(t.frames) {
		frame = len(t.frames) - 1
	}
	return t.frames[frame][index&t.mask]
}

// BuildSine builds a single sine cycle.
func BuildSine(length int) Frame {
	f := make(Frame, length)
	for i := range f {
		f[i] = float32(math.Sin(2.0 * math.Pi * float64(i) / float64(length)))
	}
	return f
}

// BuildSaw builds a band-limited sawtooth by additive synthesis up to
// maxHarmonic (inclusive).
func BuildSaw(length, maxHarmonic int) Frame {
	f := make(Frame, length)
	for h := 1; h <= maxHarmonic; h++ {
		amp := 1.0 / float64(h)
		for i := range f {
			f[i] += float32(amp * math.Sin(2.0*math.Pi*float64(h)*float64(i)/float64(length)))
		}
	}
	normalize(f)
	return f
}

// BuildSquare builds a band-limited square from odd harmonics up to
// maxHarmonic (inclusive).
func BuildSquare(length, maxHarmonic int) Frame {
	f := make(Frame, length)
	for h := 1; h <= maxHarmonic; h += 2 {
		amp := 1.0 / float64(h)
		for i := range f {
			f[i] += float32(amp * math.Sin(2.0*math.Pi*float64(h)*float64(i)/float64(length)))
		}
	}
	normalize(f)
	return f
}

// BuildTriangle builds a band-limited triangle from odd harmonics up to
// maxHarmonic (inclusive).
func BuildTriangle(length, maxHarmonic int) Frame {
	f := make(Frame, length)
	sign := 1.0
	for h := 1; h <= maxHarmonic; h += 2 {
		amp := sign / float64(h*h)
		for i := range f {
			f[i] += float32(amp * math.Sin(2.0*math.Pi*float64(h)*float64(i)/float64(length)))
		}
		sign = -sign
	}
	normalize(f)
	return f
}

// BuildPulse builds a band-limited pulse with the given duty cycle by
// summing harmonics of the Fourier series.
func BuildPulse(length, maxHarmonic int, duty float64) Frame {
	if duty < 0.01 {
		duty = 0.01
	}
	if duty > 0.99 {
		duty = 0.99
	}
	f := make(Frame, length)
	for h := 1; h <= maxHarmonic; h++ {
		amp := 2.0 / (math.Pi * float64(h)) * math.Sin(math.Pi*float64(h)*duty)
		for i := range f {
			f[i] += float32(amp * math.Cos(2.0*math.Pi*float64(h)*float64(i)/float64(length)))
		}
	}
	normalize(f)
	return f
}

// NewBasicShapes builds the default four-frame morph table
// (sine -> triangle -> saw -> square).
func NewBasicShapes() *Table {
	const maxHarmonic = 256
	t, err := NewTable("basic", []Frame{
		BuildSine(DefaultFrameLength),
		BuildTriangle(DefaultFrameLength, maxHarmonic),
		BuildSaw(DefaultFrameLength, maxHarmonic),
		BuildSquare(DefaultFrameLength, maxHarmonic),
	})
	if err != nil {
		// The built-in frames always validate
		panic(err)
	}
	return t
}

// normalize scales a frame to a +/-1 peak.
func normalize(f Frame) {
	peak := float32(0)
	for _, s := range f {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}
	if peak == 0 {
		return
	}
	inv := 1.0 / peak
	for i := range f {
		f[i] *= inv
	}
}
