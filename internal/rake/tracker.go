package rake

import "math"

// trackerParams capture the smoothing and threshold inputs for one symbol
// pass. They are derived from the receiver's current AdaptiveParams at the
// top of each pass so a concurrent configuration update never straddles a
// pass.
type trackerParams struct {
	alpha              float64 // first-order smoothing coefficient, (0,1]
	detectionThreshold float64
	lockThreshold      float64
	maxMisses          int
}

// smoothingAlpha derives the exponential smoothing coefficient from the
// tracking bandwidth and the symbol period. Higher bandwidth means faster
// gain adaptation at the cost of noisier steady-state estimates.
func smoothingAlpha(bandwidthHz, sampleRate float64, patternLength int) float64 {
	if bandwidthHz <= 0 || sampleRate <= 0 || patternLength <= 0 {
		return 1
	}
	symbolPeriod := float64(patternLength) / sampleRate
	alpha := 1 - math.Exp(-2*math.Pi*bandwidthHz*symbolPeriod)
	if alpha < 1e-4 {
		alpha = 1e-4
	}
	if alpha > 1 {
		alpha = 1
	}
	return alpha
}

// updateFinger consumes one correlation for a finger: it advances the gain
// and smoothed-magnitude filters and steps the lock-state machine. corr is
// the raw correlation, normMag its length-normalized magnitude. It returns
// the state transition taken, if any.
//
// The canonical lifecycle:
//
//	searching -> tracking   first magnitude above the detection threshold
//	tracking  -> locked     smoothed magnitude above the lock threshold
//	locked    -> tracking   smoothed magnitude back below the lock threshold
//	tracking  -> searching  magnitude below the detection threshold for
//	                        maxMisses consecutive symbols
//
// A locked finger always demotes through tracking; it never drops straight
// to searching.
func updateFinger(f *Finger, corr complex128, normMag float64, patternLength int, p trackerParams) (from, to LockState, changed bool) {
	from = f.State

	switch f.State {
	case StateSearching:
		if normMag > p.detectionThreshold {
			// Seed the channel estimate from the detecting symbol so the
			// combiner has a usable weight immediately.
			f.Gain = scaleComplex(corr, 1/float64(patternLength))
			f.SmoothedMag = normMag
			f.Misses = 0
			f.State = StateTracking
		}

	case StateTracking:
		f.Gain = smoothComplex(f.Gain, scaleComplex(corr, 1/float64(patternLength)), p.alpha)
		f.SmoothedMag = (1-p.alpha)*f.SmoothedMag + p.alpha*normMag

		if f.SmoothedMag > p.lockThreshold {
			f.Misses = 0
			f.State = StateLocked
			break
		}
		if normMag < p.detectionThreshold {
			f.Misses++
			if f.Misses >= p.maxMisses {
				f.Misses = 0
				f.SmoothedMag = 0
				f.State = StateSearching
			}
		} else {
			f.Misses = 0
		}

	case StateLocked:
		f.Gain = smoothComplex(f.Gain, scaleComplex(corr, 1/float64(patternLength)), p.alpha)
		f.SmoothedMag = (1-p.alpha)*f.SmoothedMag + p.alpha*normMag

		if f.SmoothedMag < p.lockThreshold {
			f.Misses = 0
			f.State = StateTracking
		}
	}

	to = f.State
	return from, to, from != to
}

func scaleComplex(c complex128, s float64) complex128 {
	return complex(real(c)*s, imag(c)*s)
}

func smoothComplex(old, sample complex128, alpha float64) complex128 {
	return complex(
		(1-alpha)*real(old)+alpha*real(sample),
		(1-alpha)*imag(old)+alpha*imag(sample),
	)
}
