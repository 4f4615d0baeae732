package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/rake.receiver/internal/rake"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for receiver tuning
// parameters. The schema matches the /api/params endpoint so the same JSON
// can be used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Finger bank params
	NumFingers    *int       `json:"num_fingers,omitempty"`
	Delays        []int      `json:"delays,omitempty"`
	Gains         []float64  `json:"gains,omitempty"` // real seed gains; phase starts at zero
	PatternLength *int       `json:"pattern_length,omitempty"`

	// Stream params
	SampleRate   *float64 `json:"sample_rate,omitempty"`
	SearchWindow *int     `json:"search_window,omitempty"`

	// Tracking params
	PathSearchRate         *float64 `json:"path_search_rate,omitempty"`
	TrackingBandwidth      *float64 `json:"tracking_bandwidth,omitempty"`
	PathDetectionThreshold *float64 `json:"path_detection_threshold,omitempty"`
	LockThreshold          *float64 `json:"lock_threshold,omitempty"`
	ReassignmentPeriod     *float64 `json:"reassignment_period,omitempty"`
	MaxMisses              *int     `json:"max_misses,omitempty"`

	// Adaptive params
	AdaptiveMode *bool `json:"adaptive_mode,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.NumFingers != nil && *c.NumFingers < 1 {
		return fmt.Errorf("num_fingers must be at least 1, got %d", *c.NumFingers)
	}
	if len(c.Delays) != len(c.Gains) {
		return fmt.Errorf("delays and gains must have the same length, got %d and %d",
			len(c.Delays), len(c.Gains))
	}
	for _, d := range c.Delays {
		if d < 0 {
			return fmt.Errorf("delays must be non-negative, got %d", d)
		}
	}
	if c.PatternLength != nil && *c.PatternLength < 1 {
		return fmt.Errorf("pattern_length must be at least 1, got %d", *c.PatternLength)
	}
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %f", *c.SampleRate)
	}
	if c.PathDetectionThreshold != nil {
		if *c.PathDetectionThreshold <= 0 || *c.PathDetectionThreshold > 1 {
			return fmt.Errorf("path_detection_threshold must be in (0,1], got %f", *c.PathDetectionThreshold)
		}
	}
	if c.LockThreshold != nil {
		if *c.LockThreshold <= 0 || *c.LockThreshold > 1 {
			return fmt.Errorf("lock_threshold must be in (0,1], got %f", *c.LockThreshold)
		}
	}
	if c.ReassignmentPeriod != nil && *c.ReassignmentPeriod < 0 {
		return fmt.Errorf("reassignment_period must be non-negative, got %f", *c.ReassignmentPeriod)
	}
	return nil
}

// GetNumFingers returns the num_fingers value or the default.
func (c *TuningConfig) GetNumFingers() int {
	if c.NumFingers == nil {
		return 3
	}
	return *c.NumFingers
}

// GetDelays returns the configured finger delays or evenly spaced defaults.
func (c *TuningConfig) GetDelays() []int {
	if len(c.Delays) > 0 {
		return c.Delays
	}
	delays := make([]int, c.GetNumFingers())
	for i := range delays {
		delays[i] = i * 4
	}
	return delays
}

// GetGains returns the configured seed gains or zeros, as complex values.
func (c *TuningConfig) GetGains() []complex128 {
	if len(c.Gains) > 0 {
		gains := make([]complex128, len(c.Gains))
		for i, g := range c.Gains {
			gains[i] = complex(g, 0)
		}
		return gains
	}
	return make([]complex128, c.GetNumFingers())
}

// GetPatternLength returns the pattern_length value or the default.
func (c *TuningConfig) GetPatternLength() int {
	if c.PatternLength == nil {
		return 64
	}
	return *c.PatternLength
}

// GetSampleRate returns the sample_rate value or the default.
func (c *TuningConfig) GetSampleRate() float64 {
	if c.SampleRate == nil {
		return rake.DefaultSampleRate
	}
	return *c.SampleRate
}

// GetSearchWindow returns the search_window value or the default.
func (c *TuningConfig) GetSearchWindow() int {
	if c.SearchWindow == nil {
		return rake.DefaultSearchWindow
	}
	return *c.SearchWindow
}

// GetPathSearchRate returns the path_search_rate value or the default.
func (c *TuningConfig) GetPathSearchRate() float64 {
	if c.PathSearchRate == nil {
		return rake.DefaultPathSearchRate
	}
	return *c.PathSearchRate
}

// GetTrackingBandwidth returns the tracking_bandwidth value or the default.
func (c *TuningConfig) GetTrackingBandwidth() float64 {
	if c.TrackingBandwidth == nil {
		return rake.DefaultTrackingBandwidth
	}
	return *c.TrackingBandwidth
}

// GetPathDetectionThreshold returns the path_detection_threshold value or the default.
func (c *TuningConfig) GetPathDetectionThreshold() float64 {
	if c.PathDetectionThreshold == nil {
		return rake.DefaultPathDetectionThreshold
	}
	return *c.PathDetectionThreshold
}

// GetLockThreshold returns the lock_threshold value or the default.
func (c *TuningConfig) GetLockThreshold() float64 {
	if c.LockThreshold == nil {
		return rake.DefaultLockThreshold
	}
	return *c.LockThreshold
}

// GetReassignmentPeriod returns the reassignment_period value or the default.
func (c *TuningConfig) GetReassignmentPeriod() float64 {
	if c.ReassignmentPeriod == nil {
		return rake.DefaultReassignmentPeriod
	}
	return *c.ReassignmentPeriod
}

// GetMaxMisses returns the max_misses value or the default.
func (c *TuningConfig) GetMaxMisses() int {
	if c.MaxMisses == nil {
		return rake.DefaultMaxMisses
	}
	return *c.MaxMisses
}

// GetAdaptiveMode returns the adaptive_mode value or the default.
func (c *TuningConfig) GetAdaptiveMode() bool {
	if c.AdaptiveMode == nil {
		return false
	}
	return *c.AdaptiveMode
}

// ReceiverConfigFromTuning builds a rake.Config from a loaded TuningConfig.
// The event sink is wired by the caller.
func ReceiverConfigFromTuning(c *TuningConfig) rake.Config {
	return rake.Config{
		NumFingers:    c.GetNumFingers(),
		Delays:        c.GetDelays(),
		Gains:         c.GetGains(),
		PatternLength: c.GetPatternLength(),
		SampleRate:    c.GetSampleRate(),
		SearchWindow:  c.GetSearchWindow(),
		MaxMisses:     c.GetMaxMisses(),
	}
}
