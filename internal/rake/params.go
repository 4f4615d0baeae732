package rake

// NoFix is the gpsSpeed sentinel meaning no speed estimate has arrived yet.
const NoFix = -1.0

// Default tuning values. They match the manual fallback the adaptive
// controller restores when adaptive mode is off or no fix is available.
const (
	DefaultPathSearchRate         = 20.0  // probes/second
	DefaultTrackingBandwidth      = 120.0 // Hz
	DefaultPathDetectionThreshold = 0.5
	DefaultLockThreshold          = 0.7
	DefaultReassignmentPeriod     = 1.0 // seconds
	DefaultMaxMisses              = 8   // consecutive below-detection symbols before search
	DefaultSampleRate             = 1e6 // samples/second
	DefaultSearchWindow           = 64  // candidate delay range in samples
)

// Params is the per-receiver tuning state. PathSearchRate and
// TrackingBandwidth hold the currently effective values: controller-derived
// when adaptive mode is on and a fix exists, manual otherwise.
type Params struct {
	PathSearchRate         float64 `json:"path_search_rate"`
	TrackingBandwidth      float64 `json:"tracking_bandwidth"`
	PathDetectionThreshold float64 `json:"path_detection_threshold"`
	LockThreshold          float64 `json:"lock_threshold"`
	ReassignmentPeriod     float64 `json:"reassignment_period"`
	GPSSpeed               float64 `json:"gps_speed"`
	AdaptiveMode           bool    `json:"adaptive_mode"`
}

// DefaultParams returns the tuning state a receiver starts with: manual
// defaults, no fix, adaptive mode off.
func DefaultParams() Params {
	return Params{
		PathSearchRate:         DefaultPathSearchRate,
		TrackingBandwidth:      DefaultTrackingBandwidth,
		PathDetectionThreshold: DefaultPathDetectionThreshold,
		LockThreshold:          DefaultLockThreshold,
		ReassignmentPeriod:     DefaultReassignmentPeriod,
		GPSSpeed:               NoFix,
		AdaptiveMode:           false,
	}
}
