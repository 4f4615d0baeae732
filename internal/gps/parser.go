// Package gps extracts platform speed from GPS telemetry text. Two wire
// formats are understood: NMEA0183 sentences (RMC and VTG carry ground
// speed) and the GPSD daemon's TPV JSON reports. All parse functions are
// pure; feeding the receiver is the caller's job.
package gps

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/rake.receiver/internal/units"
)

// Parse failures wrap one of these sentinels so callers can distinguish a
// malformed payload from an unsupported format with errors.Is.
var (
	ErrUnrecognizedFormat = fmt.Errorf("unrecognized GPS data format")
	ErrMalformedSentence  = fmt.Errorf("malformed NMEA sentence")
	ErrMalformedReport    = fmt.Errorf("malformed GPSD report")
)

// Sentence IDs that carry ground speed. RMC reports knots in field 7;
// VTG reports km/h directly in field 7.
var (
	rmcTalkers = []string{"$GPRMC", "$GNRMC"}
	vtgTalkers = []string{"$GPVTG", "$GNVTG"}
)

// tpvReport is the subset of a GPSD TPV (time-position-velocity) report the
// receiver cares about. Speed is a pointer so a missing field can be told
// apart from a zero speed.
type tpvReport struct {
	Class string   `json:"class"`
	Speed *float64 `json:"speed"` // metres/second
}

// ParseNMEASpeed extracts ground speed in km/h from an NMEA0183 sentence.
// Only RMC and VTG sentences carry speed; anything else is malformed as far
// as the speed feed is concerned.
func ParseNMEASpeed(sentence string) (float64, error) {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" || sentence[0] != '$' {
		return 0, fmt.Errorf("%w: missing $ prefix", ErrMalformedSentence)
	}

	fields := strings.Split(sentence, ",")
	if len(fields) < 8 {
		return 0, fmt.Errorf("%w: got %d fields, need at least 8", ErrMalformedSentence, len(fields))
	}

	talker := fields[0]
	for _, id := range rmcTalkers {
		if talker == id {
			knots, err := strconv.ParseFloat(fields[7], 64)
			if err != nil {
				return 0, fmt.Errorf("%w: bad speed field %q", ErrMalformedSentence, fields[7])
			}
			return units.KnotsToKmh(knots), nil
		}
	}
	for _, id := range vtgTalkers {
		if talker == id {
			kmh, err := strconv.ParseFloat(fields[7], 64)
			if err != nil {
				return 0, fmt.Errorf("%w: bad speed field %q", ErrMalformedSentence, fields[7])
			}
			return kmh, nil
		}
	}

	return 0, fmt.Errorf("%w: sentence %q carries no speed", ErrMalformedSentence, talker)
}

// ParseGPSDSpeed extracts speed in km/h from a GPSD JSON report. Only TPV
// reports with a numeric speed field succeed; SKY, VERSION and friends fail.
func ParseGPSDSpeed(report string) (float64, error) {
	var tpv tpvReport
	if err := json.Unmarshal([]byte(report), &tpv); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	if tpv.Class != "TPV" {
		return 0, fmt.Errorf("%w: class %q is not TPV", ErrMalformedReport, tpv.Class)
	}
	if tpv.Speed == nil {
		return 0, fmt.Errorf("%w: no speed field", ErrMalformedReport)
	}
	return units.MpsToKmh(*tpv.Speed), nil
}

// ParseSpeed auto-detects the telemetry format from the first non-whitespace
// byte and dispatches: '{' is a GPSD JSON report, '$' is an NMEA sentence.
func ParseSpeed(data string) (float64, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty input", ErrUnrecognizedFormat)
	}
	switch trimmed[0] {
	case '{':
		return ParseGPSDSpeed(trimmed)
	case '$':
		return ParseNMEASpeed(trimmed)
	default:
		return 0, fmt.Errorf("%w: leading byte %q", ErrUnrecognizedFormat, trimmed[0])
	}
}
