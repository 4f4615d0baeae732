package rake

import "math/cmplx"

// Correlate computes the conjugate inner product of the delay-shifted sample
// window against the reference pattern:
//
//	sum_j window[delay+j] * conj(pattern[j])
//
// It is a pure function of its inputs. If the window does not cover the full
// pattern at the requested delay the correlation is zero, matching the
// history-bounds guard of the streaming host.
func Correlate(window []complex128, delay int, pattern []complex128) complex128 {
	if delay < 0 || delay+len(pattern) > len(window) {
		return 0
	}
	var sum complex128
	shifted := window[delay : delay+len(pattern)]
	for j, chip := range pattern {
		sum += shifted[j] * cmplx.Conj(chip)
	}
	return sum
}

// NormalizedMagnitude scales a raw correlation magnitude by the pattern
// length, yielding the [0,1]-ish quantity the detection and lock thresholds
// are defined over (exactly [0,1] for unit-power chips and samples).
func NormalizedMagnitude(corr complex128, patternLength int) float64 {
	if patternLength <= 0 {
		return 0
	}
	return cmplx.Abs(corr) / float64(patternLength)
}
