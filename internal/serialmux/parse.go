package serialmux

import "strings"

const (
	PayloadTypeNMEARMC    = "nmea_rmc"
	PayloadTypeNMEAVTG    = "nmea_vtg"
	PayloadTypeNMEAOther  = "nmea_other"
	PayloadTypeGPSDReport = "gpsd_report"
	PayloadTypeUnknown    = "unknown"
)

// ClassifyPayload inspects a telemetry line and returns a simple payload type
// token. Classification is intentionally shallow; full parsing happens in the
// gps package.
func ClassifyPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(payload, "$") && strings.Contains(payload, "RMC"):
		return PayloadTypeNMEARMC
	case strings.HasPrefix(payload, "$") && strings.Contains(payload, "VTG"):
		return PayloadTypeNMEAVTG
	case strings.HasPrefix(payload, "$"):
		return PayloadTypeNMEAOther
	case strings.HasPrefix(payload, "{"):
		return PayloadTypeGPSDReport
	default:
		return PayloadTypeUnknown
	}
}
