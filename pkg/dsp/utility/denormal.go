package utility

import "math"

// denormalThreshold mirrors dsp.DenormalThreshold; duplicated here so the
// utility package stays import-free within the module.
const denormalThreshold = 1e-15

// FlushDenormal returns zero for values small enough to become denormal
// floats. Feedback paths call this at the end of each stage so that decaying
// tails cannot park the FPU in denormal territory. NaN inputs are flushed to
// zero as well, which doubles as a last-resort guard on the audio thread.
func FlushDenormal(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < denormalThreshold && x > -denormalThreshold {
		return 0
	}
	return x
}

// FlushDenormal32 is the float32 variant of FlushDenormal.
func FlushDenormal32(x float32) float32 {
	if x != x { // NaN
		return 0
	}
	if x < 1e-15 && x > -1e-15 {
		return 0
	}
	return x
}
