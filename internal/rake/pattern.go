package rake

import "fmt"

// ReferencePattern is the fixed-length chip sequence the correlator
// de-spreads against. The length is set once at construction; replacement
// patterns must match it exactly.
type ReferencePattern struct {
	chips []complex128
}

// NewReferencePattern allocates an all-ones pattern of the given length.
func NewReferencePattern(length int) (*ReferencePattern, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: pattern length must be at least 1, got %d", ErrConfig, length)
	}
	chips := make([]complex128, length)
	for i := range chips {
		chips[i] = complex(1, 0)
	}
	return &ReferencePattern{chips: chips}, nil
}

// Length returns the pattern length fixed at construction.
func (p *ReferencePattern) Length() int { return len(p.chips) }

// Set replaces the chip sequence. The replacement must have exactly the
// constructed length; on mismatch the call fails and the old pattern stays
// in effect.
func (p *ReferencePattern) Set(chips []complex128) error {
	if len(chips) != len(p.chips) {
		return fmt.Errorf("%w: pattern length %d does not match configured length %d",
			ErrConfig, len(chips), len(p.chips))
	}
	copy(p.chips, chips)
	return nil
}

// Chips returns a snapshot copy of the chip sequence.
func (p *ReferencePattern) Chips() []complex128 {
	out := make([]complex128, len(p.chips))
	copy(out, p.chips)
	return out
}

// chipsRef exposes the backing slice for the per-symbol hot path, which must
// not allocate. Callers must not mutate it.
func (p *ReferencePattern) chipsRef() []complex128 { return p.chips }
