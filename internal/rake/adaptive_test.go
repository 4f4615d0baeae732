package rake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveRates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		speedKmh float64
		rate     float64
		bw       float64
	}{
		{"stationary clamps to low band floor", 0, 10, 100},
		{"below low band clamps", 10, 10, 100},
		{"low band floor", 15, 10, 100},
		{"low band midpoint", 37.5, 15, 110},
		{"band boundary is continuous", 60, 20, 120},
		{"high band midpoint", 90, 35, 160},
		{"high band ceiling", 120, 50, 200},
		{"above high band clamps", 200, 50, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rate, bw := AdaptiveRates(tc.speedKmh)
			assert.InDelta(t, tc.rate, rate, 1e-9)
			assert.InDelta(t, tc.bw, bw, 1e-9)
		})
	}
}

func TestAdaptiveRatesMonotonic(t *testing.T) {
	t.Parallel()

	prevRate, prevBW := AdaptiveRates(0)
	for speed := 1.0; speed <= 150; speed++ {
		rate, bw := AdaptiveRates(speed)
		assert.GreaterOrEqual(t, rate, prevRate, "search rate dipped at %.0f km/h", speed)
		assert.GreaterOrEqual(t, bw, prevBW, "bandwidth dipped at %.0f km/h", speed)
		prevRate, prevBW = rate, bw
	}
}
