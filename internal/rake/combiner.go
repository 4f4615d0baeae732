package rake

import "math/cmplx"

// Combine performs maximal-ratio combining of the de-spread finger symbols.
// symbols[i] is finger i's length-normalized de-spread symbol for this
// period. Each tracking or locked finger contributes conj(gain)*symbol, and
// the sum is normalized by the total gain power so the output is an unbiased
// symbol estimate. Searching fingers carry no reliable channel estimate and
// contribute nothing.
//
// When no finger is tracking or locked there is no channel estimate at all;
// the combiner treats that as signal loss and emits zero rather than passing
// through an unweighted correlation.
func Combine(fingers []Finger, symbols []complex128) complex128 {
	var sum complex128
	var totalPower float64

	for i := range fingers {
		f := &fingers[i]
		if f.State != StateTracking && f.State != StateLocked {
			continue
		}
		sum += cmplx.Conj(f.Gain) * symbols[i]
		totalPower += real(f.Gain)*real(f.Gain) + imag(f.Gain)*imag(f.Gain)
	}

	if totalPower == 0 {
		return 0
	}
	return complex(real(sum)/totalPower, imag(sum)/totalPower)
}
