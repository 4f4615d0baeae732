// Package units provides shared constants and conversions for speed units.
package units

// Unit constants
const (
	KMH   = "kmh"
	MPS   = "mps"
	MPH   = "mph"
	KNOTS = "knots"
)

// Conversion factors to km/h, the unit the receiver stores speeds in.
// NMEA RMC reports ground speed in knots; GPSD TPV reports metres/second.
const (
	KmhPerKnot = 1.852
	KmhPerMps  = 3.6
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KMH, MPS, MPH, KNOTS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "kmh, mps, mph, knots"
}

// KnotsToKmh converts a speed in knots to km/h.
func KnotsToKmh(knots float64) float64 {
	return knots * KmhPerKnot
}

// MpsToKmh converts a speed in metres per second to km/h.
func MpsToKmh(mps float64) float64 {
	return mps * KmhPerMps
}

// ConvertSpeed converts a speed from km/h to the target units.
// The receiver stores speeds in km/h.
func ConvertSpeed(speedKmh float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKmh / KmhPerMps
	case MPH:
		return speedKmh * 0.621371
	case KNOTS:
		return speedKmh / KmhPerKnot
	case KMH:
		return speedKmh
	default:
		return speedKmh // default to km/h if unknown unit
	}
}
