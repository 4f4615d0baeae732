package rake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrackerParams() trackerParams {
	return trackerParams{
		alpha:              0.5,
		detectionThreshold: 0.5,
		lockThreshold:      0.7,
		maxMisses:          3,
	}
}

func TestSmoothingAlpha(t *testing.T) {
	t.Parallel()

	a120 := smoothingAlpha(120, 1e6, 64)
	a200 := smoothingAlpha(200, 1e6, 64)
	assert.Greater(t, a200, a120, "wider bandwidth adapts faster")
	assert.Greater(t, a120, 0.0)
	assert.LessOrEqual(t, a200, 1.0)

	// Degenerate inputs collapse to instantaneous updates.
	assert.Equal(t, 1.0, smoothingAlpha(0, 1e6, 64))
	assert.Equal(t, 1.0, smoothingAlpha(120, 0, 64))

	// Tiny bandwidths stay above the floor so filters never freeze.
	assert.GreaterOrEqual(t, smoothingAlpha(1e-9, 1e6, 1), 1e-4)
}

func TestUpdateFingerSearchingToTracking(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateSearching}
	corr := complex(6.4, 0) // normMag 0.8 over length 8

	from, to, changed := updateFinger(f, corr, 0.8, 8, testTrackerParams())
	require.True(t, changed)
	assert.Equal(t, StateSearching, from)
	assert.Equal(t, StateTracking, to)
	assert.Equal(t, StateTracking, f.State)

	// Gain seeds from the detecting symbol's normalized correlation.
	assert.InDelta(t, 0.8, real(f.Gain), 1e-12)
	assert.InDelta(t, 0.8, f.SmoothedMag, 1e-12)
}

func TestUpdateFingerStaysSearchingBelowThreshold(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateSearching}
	_, _, changed := updateFinger(f, complex(2.4, 0), 0.3, 8, testTrackerParams())
	assert.False(t, changed)
	assert.Equal(t, StateSearching, f.State)
	assert.Zero(t, f.Gain)
}

func TestUpdateFingerTrackingToLocked(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateTracking, Gain: complex(0.8, 0), SmoothedMag: 0.65}
	p := testTrackerParams()

	// Strong symbols push the smoothed magnitude over the lock threshold:
	// 0.5*0.65 + 0.5*0.9 = 0.775 > 0.7.
	from, to, changed := updateFinger(f, complex(7.2, 0), 0.9, 8, p)
	require.True(t, changed)
	assert.Equal(t, StateTracking, from)
	assert.Equal(t, StateLocked, to)
	assert.Zero(t, f.Misses)
}

func TestUpdateFingerLockedToTracking(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateLocked, Gain: complex(0.9, 0), SmoothedMag: 0.75}
	p := testTrackerParams()

	// 0.5*0.75 + 0.5*0.2 = 0.475 < 0.7: the lock degrades but the finger
	// demotes to tracking, never straight to searching.
	_, to, changed := updateFinger(f, complex(1.6, 0), 0.2, 8, p)
	require.True(t, changed)
	assert.Equal(t, StateTracking, to)
}

func TestUpdateFingerSustainedLossDemotesToSearching(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateTracking, Gain: complex(0.6, 0), SmoothedMag: 0.55}
	p := testTrackerParams()

	weak := complex(0.8, 0) // normMag 0.1
	for i := 0; i < p.maxMisses-1; i++ {
		_, _, changed := updateFinger(f, weak, 0.1, 8, p)
		assert.False(t, changed, "miss %d should not yet demote", i+1)
		assert.Equal(t, StateTracking, f.State)
	}

	_, to, changed := updateFinger(f, weak, 0.1, 8, p)
	require.True(t, changed)
	assert.Equal(t, StateSearching, to)
	assert.Zero(t, f.Misses)
	assert.Zero(t, f.SmoothedMag)
}

func TestUpdateFingerMissCounterResetsOnDetection(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateTracking, Gain: complex(0.6, 0), SmoothedMag: 0.55}
	p := testTrackerParams()

	updateFinger(f, complex(0.8, 0), 0.1, 8, p)
	updateFinger(f, complex(0.8, 0), 0.1, 8, p)
	assert.Equal(t, 2, f.Misses)

	// One good symbol clears the consecutive-miss count.
	updateFinger(f, complex(4.8, 0), 0.6, 8, p)
	assert.Zero(t, f.Misses)
	assert.Equal(t, StateTracking, f.State)
}

func TestUpdateFingerGainSmoothing(t *testing.T) {
	t.Parallel()

	f := &Finger{State: StateTracking, Gain: complex(1, 0), SmoothedMag: 0.6}
	p := testTrackerParams()

	// Symbol estimate 0.5+0j: gain moves halfway with alpha 0.5.
	updateFinger(f, complex(4, 0), 0.5, 8, p)
	assert.InDelta(t, 0.75, real(f.Gain), 1e-12)
	assert.InDelta(t, 0.0, imag(f.Gain), 1e-12)
}

func TestUpdateFingerDeterministicSequence(t *testing.T) {
	t.Parallel()

	// The same correlation sequence always produces the same lifecycle.
	run := func() []LockState {
		f := &Finger{State: StateSearching}
		p := testTrackerParams()
		seq := []float64{0.2, 0.8, 0.9, 0.9, 0.1, 0.1, 0.1, 0.1}
		states := make([]LockState, 0, len(seq))
		for _, mag := range seq {
			updateFinger(f, complex(mag*8, 0), mag, 8, p)
			states = append(states, f.State)
		}
		return states
	}
	assert.Equal(t, run(), run())
}
