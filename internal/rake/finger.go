// Package rake implements a multipath diversity combiner for spread-spectrum
// signals. A bank of fingers tracks resolvable echoes of the same
// transmission, each de-spread against a reference chip pattern at its own
// delay and recombined by maximal-ratio combining into one symbol estimate.
// A path searcher reassigns fingers as the channel changes, and an adaptive
// controller widens the tracking loops with platform speed from GPS
// telemetry.
package rake

import "fmt"

// LockState represents a finger's confidence tier.
type LockState string

const (
	StateSearching LockState = "searching" // no path assigned, or path lost
	StateTracking  LockState = "tracking"  // path detected, gain estimate converging
	StateLocked    LockState = "locked"    // smoothed magnitude above the lock threshold
)

// Finger is one tracked multipath component: a delay into the sample window,
// a complex channel-gain estimate, and a lock state driven by correlation
// magnitude against the detection and lock thresholds.
type Finger struct {
	Delay int        // sample offset of this path, >= 0
	Gain  complex128 // smoothed channel-weight estimate
	State LockState

	// SmoothedMag is the exponentially smoothed normalized correlation
	// magnitude, the quantity the lock thresholds are compared against.
	SmoothedMag float64

	// Misses counts consecutive symbols below the detection threshold
	// while tracking. The sustained-loss demotion to searching fires when
	// it reaches the tracker's miss limit.
	Misses int

	// LastReassignedAt is the absolute sample count at which the path
	// searcher last assigned this finger a new delay. The reassignment
	// dwell is measured from here.
	LastReassignedAt uint64
}

// FingerBank is a fixed-size ordered collection of fingers. It is sized once
// at construction and never reallocated; per-symbol processing mutates the
// entries in place.
type FingerBank struct {
	fingers []Finger
}

// NewFingerBank builds a bank of min(numFingers, len(delays), len(gains))
// fingers, each seeded with its delay and gain and starting in the searching
// state. Construction fails when numFingers < 1, when the delay and gain
// arrays disagree in length, or when the clamped count is zero.
func NewFingerBank(numFingers int, delays []int, gains []complex128) (*FingerBank, error) {
	if numFingers < 1 {
		return nil, fmt.Errorf("%w: number of fingers must be at least 1, got %d", ErrConfig, numFingers)
	}
	if len(delays) != len(gains) {
		return nil, fmt.Errorf("%w: %d delays but %d gains", ErrConfig, len(delays), len(gains))
	}

	count := numFingers
	if len(delays) < count {
		count = len(delays)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no finger definitions supplied", ErrConfig)
	}

	fingers := make([]Finger, count)
	for i := range fingers {
		if delays[i] < 0 {
			return nil, fmt.Errorf("%w: finger %d delay %d is negative", ErrConfig, i, delays[i])
		}
		fingers[i] = Finger{
			Delay: delays[i],
			Gain:  gains[i],
			State: StateSearching,
		}
	}
	return &FingerBank{fingers: fingers}, nil
}

// Count returns the number of fingers fixed at construction.
func (b *FingerBank) Count() int { return len(b.fingers) }

// SetDelays replaces every finger's delay. The slice length must equal the
// bank's count; on mismatch the call fails and no delay changes.
func (b *FingerBank) SetDelays(delays []int) error {
	if len(delays) != len(b.fingers) {
		return fmt.Errorf("%w: got %d delays for %d fingers", ErrConfig, len(delays), len(b.fingers))
	}
	for _, d := range delays {
		if d < 0 {
			return fmt.Errorf("%w: delay %d is negative", ErrConfig, d)
		}
	}
	for i := range b.fingers {
		b.fingers[i].Delay = delays[i]
	}
	return nil
}

// SetGains replaces every finger's gain estimate. The slice length must
// equal the bank's count; on mismatch the call fails and no gain changes.
func (b *FingerBank) SetGains(gains []complex128) error {
	if len(gains) != len(b.fingers) {
		return fmt.Errorf("%w: got %d gains for %d fingers", ErrConfig, len(gains), len(b.fingers))
	}
	for i := range b.fingers {
		b.fingers[i].Gain = gains[i]
	}
	return nil
}

// Fingers returns a snapshot copy of the bank's entries.
func (b *FingerBank) Fingers() []Finger {
	out := make([]Finger, len(b.fingers))
	copy(out, b.fingers)
	return out
}

// finger returns the mutable entry at index i for in-place updates.
func (b *FingerBank) finger(i int) *Finger { return &b.fingers[i] }

// MaxDelay returns the deepest delay currently assigned to any finger.
func (b *FingerBank) MaxDelay() int {
	max := 0
	for i := range b.fingers {
		if b.fingers[i].Delay > max {
			max = b.fingers[i].Delay
		}
	}
	return max
}

// HasDelay reports whether any finger is already assigned the given delay.
func (b *FingerBank) HasDelay(delay int) bool {
	for i := range b.fingers {
		if b.fingers[i].Delay == delay {
			return true
		}
	}
	return false
}
