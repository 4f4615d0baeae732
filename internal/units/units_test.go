package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	t.Parallel()

	for _, unit := range ValidUnits {
		assert.True(t, IsValid(unit), "expected %q to be valid", unit)
	}
	assert.False(t, IsValid("furlongs"))
	assert.False(t, IsValid(""))
}

func TestKnotsToKmh(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 41.4848, KnotsToKmh(22.4), 0.0001)
	assert.InDelta(t, 1.852, KnotsToKmh(1), 0.0001)
	assert.Zero(t, KnotsToKmh(0))
}

func TestMpsToKmh(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 45.0, MpsToKmh(12.5), 0.0001)
	assert.InDelta(t, 36.0, MpsToKmh(10.0), 0.0001)
}

func TestConvertSpeed(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 10.0, ConvertSpeed(36.0, MPS), 0.0001)
	assert.InDelta(t, 36.0, ConvertSpeed(36.0, KMH), 0.0001)
	assert.InDelta(t, 22.369, ConvertSpeed(36.0, MPH), 0.01)
	assert.InDelta(t, 19.438, ConvertSpeed(36.0, KNOTS), 0.01)

	// Unknown units fall back to km/h.
	assert.InDelta(t, 36.0, ConvertSpeed(36.0, "parsecs"), 0.0001)
}
