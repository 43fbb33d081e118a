// Package dsp provides shared constants for the padtrack signal processing core.
package dsp

// Common audio constants used throughout the DSP packages.
const (
	// Gain/Level constants
	MinDB     = -96.0 // Minimum dB value (effectively silence)
	UnityGain = 1.0   // Unity gain (0 dB)

	// Frequency ranges
	MinFrequency = 20.0    // 20 Hz
	MaxFrequency = 20000.0 // 20 kHz

	// Filter parameter ranges
	MinResonance = 0.0
	MaxResonance = 1.0
	MinDrive     = 0.0
	MaxDrive     = 10.0

	// Resonance at and above which the ladder filter enters its
	// self-oscillation region
	SelfOscillationThreshold = 0.9

	// Dynamics parameter ranges
	MinThresholdDB = -60.0
	MaxThresholdDB = 0.0
	MinRatio       = 1.0
	MaxRatio       = 20.0

	// Attack/Release time ranges (in seconds)
	MinAttack  = 0.0001 // 0.1ms
	MaxAttack  = 1.0    // 1s
	MinRelease = 0.001  // 1ms
	MaxRelease = 5.0    // 5s

	// Maximum lookahead for dynamics processors (in seconds)
	MaxLookahead = 0.010 // 10ms

	// Channel counts
	Mono   = 1
	Stereo = 2

	// Common sample rates
	SampleRate44k1 = 44100.0
	SampleRate48k  = 48000.0
	SampleRate96k  = 96000.0

	// Buffer sizes
	MinBufferSize     = 32
	DefaultBufferSize = 512
	MaxBufferSize     = 8192

	// Smoothing times
	FastSmoothing   = 0.001 // 1ms
	MediumSmoothing = 0.005 // 5ms
	SlowSmoothing   = 0.050 // 50ms

	// Values below this magnitude are flushed to zero to avoid denormal
	// CPU spikes inside feedback paths
	DenormalThreshold = 1e-15

	// Level below which a releasing envelope is considered silent
	SilenceThreshold = 1e-4
)
