package rake

import (
	"fmt"
	"strings"
	"sync"

	"github.com/banshee-data/rake.receiver/internal/gps"
	"github.com/banshee-data/rake.receiver/internal/monitoring"
)

// FingerEvent records a lock-state transition or path reassignment.
type FingerEvent struct {
	Finger      int       `json:"finger"`
	Delay       int       `json:"delay"`
	From        LockState `json:"from"`
	To          LockState `json:"to"`
	Magnitude   float64   `json:"magnitude"`
	SampleCount uint64    `json:"sample_count"`
}

// SpeedUpdate records an accepted speed estimate and the rates in effect
// after the adaptive controller ran.
type SpeedUpdate struct {
	Source            string  `json:"source"` // "nmea", "gpsd", "manual"
	SpeedKmh          float64 `json:"speed_kmh"`
	PathSearchRate    float64 `json:"path_search_rate"`
	TrackingBandwidth float64 `json:"tracking_bandwidth"`
	Adaptive          bool    `json:"adaptive"`
}

// EventSink receives receiver events as they happen. Implementations must be
// fast or buffer internally; sinks are called from the streaming and control
// paths. A nil sink disables event recording.
type EventSink interface {
	RecordFingerEvent(FingerEvent)
	RecordSpeedUpdate(SpeedUpdate)
}

// Config collects the construction-time parameters of a Receiver.
type Config struct {
	NumFingers    int
	Delays        []int
	Gains         []complex128
	PatternLength int

	// SampleRate converts the probe cadence and reassignment dwell from
	// wall time to samples. Defaults to DefaultSampleRate.
	SampleRate float64

	// SearchWindow is the deepest candidate delay the path searcher
	// probes. Defaults to DefaultSearchWindow.
	SearchWindow int

	// MaxMisses is the consecutive below-detection symbol count that
	// demotes a tracking finger to searching. Defaults to DefaultMaxMisses.
	MaxMisses int

	// Sink receives finger and speed events; nil disables recording.
	Sink EventSink
}

// Receiver is the RAKE engine: finger bank, reference pattern, tracker,
// combiner, path searcher and adaptive controller behind one mutex. The
// streaming host calls ProcessBlock from a single goroutine; every other
// method is a control-surface call that may come from a different goroutine.
// A configuration update takes effect no later than the next full block.
type Receiver struct {
	mu      sync.Mutex
	bank    *FingerBank
	pattern *ReferencePattern
	search  *pathSearcher
	sink    EventSink

	sampleRate float64
	maxMisses  int

	params          Params
	manualRate      float64
	manualBandwidth float64

	buf         []complex128 // sample history spanning the current symbol
	symbols     []complex128 // per-finger de-spread scratch, sized once
	sampleCount uint64
	nextProbeAt uint64
}

// NewReceiver validates the configuration and builds a receiver with default
// tuning parameters and every finger searching.
func NewReceiver(cfg Config) (*Receiver, error) {
	bank, err := NewFingerBank(cfg.NumFingers, cfg.Delays, cfg.Gains)
	if err != nil {
		return nil, err
	}
	pattern, err := NewReferencePattern(cfg.PatternLength)
	if err != nil {
		return nil, err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	searchWindow := cfg.SearchWindow
	if searchWindow <= 0 {
		searchWindow = DefaultSearchWindow
	}
	maxMisses := cfg.MaxMisses
	if maxMisses <= 0 {
		maxMisses = DefaultMaxMisses
	}

	params := DefaultParams()
	return &Receiver{
		bank:            bank,
		pattern:         pattern,
		search:          newPathSearcher(searchWindow),
		sink:            cfg.Sink,
		sampleRate:      sampleRate,
		maxMisses:       maxMisses,
		params:          params,
		manualRate:      params.PathSearchRate,
		manualBandwidth: params.TrackingBandwidth,
		symbols:         make([]complex128, bank.Count()),
	}, nil
}

// ProcessBlock consumes a block of complex baseband samples and returns the
// combined symbols it produced: one per pattern-length input group, delayed
// by enough history to cover the deepest finger.
func (r *Receiver) ProcessBlock(in []complex128) []complex128 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, in...)

	chips := r.pattern.chipsRef()
	length := len(chips)
	tp := trackerParams{
		alpha:              smoothingAlpha(r.params.TrackingBandwidth, r.sampleRate, length),
		detectionThreshold: r.params.PathDetectionThreshold,
		lockThreshold:      r.params.LockThreshold,
		maxMisses:          r.maxMisses,
	}
	probeInterval := r.probeIntervalSamples(length)
	dwell := uint64(r.params.ReassignmentPeriod * r.sampleRate)

	var out []complex128
	for {
		span := r.bank.MaxDelay() + length
		if len(r.buf) < span {
			break
		}

		for i := 0; i < r.bank.Count(); i++ {
			f := r.bank.finger(i)
			corr := Correlate(r.buf[:span], f.Delay, chips)
			normMag := NormalizedMagnitude(corr, length)
			r.symbols[i] = scaleComplex(corr, 1/float64(length))

			if from, to, changed := updateFinger(f, corr, normMag, length, tp); changed {
				r.emitFingerEvent(FingerEvent{
					Finger:      i,
					Delay:       f.Delay,
					From:        from,
					To:          to,
					Magnitude:   normMag,
					SampleCount: r.sampleCount,
				})
			}
		}

		out = append(out, Combine(r.bank.fingers, r.symbols))

		if r.sampleCount >= r.nextProbeAt {
			for _, ev := range r.search.probe(r.bank, r.buf, chips,
				r.params.PathDetectionThreshold, r.params.LockThreshold,
				dwell, r.sampleCount) {
				r.emitFingerEvent(ev)
			}
			r.nextProbeAt = r.sampleCount + probeInterval
		}

		// Advance one symbol period without reallocating the history.
		r.buf = r.buf[:copy(r.buf, r.buf[length:])]
		r.sampleCount += uint64(length)
	}
	return out
}

// probeIntervalSamples converts the path search rate into a probe interval
// in samples, floored at one symbol period.
func (r *Receiver) probeIntervalSamples(patternLength int) uint64 {
	rate := r.params.PathSearchRate
	if rate <= 0 {
		return uint64(patternLength)
	}
	interval := uint64(r.sampleRate / rate)
	if interval < uint64(patternLength) {
		interval = uint64(patternLength)
	}
	return interval
}

func (r *Receiver) emitFingerEvent(ev FingerEvent) {
	if r.sink != nil {
		r.sink.RecordFingerEvent(ev)
	}
}

// NumFingers returns the finger count fixed at construction.
func (r *Receiver) NumFingers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank.Count()
}

// Fingers returns a snapshot of the bank.
func (r *Receiver) Fingers() []Finger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank.Fingers()
}

// SetDelays replaces all finger delays; the slice length must match the
// finger count.
func (r *Receiver) SetDelays(delays []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank.SetDelays(delays)
}

// SetGains replaces all finger gain estimates; the slice length must match
// the finger count.
func (r *Receiver) SetGains(gains []complex128) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bank.SetGains(gains)
}

// PatternLength returns the reference pattern length fixed at construction.
func (r *Receiver) PatternLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pattern.Length()
}

// SetPattern replaces the reference pattern; the length must match the
// configured pattern length.
func (r *Receiver) SetPattern(chips []complex128) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pattern.Set(chips)
}

// Params returns a snapshot of the current tuning state.
func (r *Receiver) Params() Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// SearchStats returns a snapshot of the path searcher's counters.
func (r *Receiver) SearchStats() SearchStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.search.Stats()
}

// PathSearchRate returns the effective probe rate in Hz.
func (r *Receiver) PathSearchRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.PathSearchRate
}

// SetPathSearchRate sets the manual probe rate. While adaptive mode is on
// the controller-derived value stays in effect; the manual value is restored
// when adaptive mode turns off or the fix is lost.
func (r *Receiver) SetPathSearchRate(rateHz float64) error {
	if rateHz <= 0 {
		return fmt.Errorf("%w: path search rate must be positive, got %g", ErrConfig, rateHz)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manualRate = rateHz
	r.recomputeRates()
	return nil
}

// TrackingBandwidth returns the effective tracking loop bandwidth in Hz.
func (r *Receiver) TrackingBandwidth() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.TrackingBandwidth
}

// SetTrackingBandwidth sets the manual tracking bandwidth, with the same
// manual/adaptive precedence as SetPathSearchRate.
func (r *Receiver) SetTrackingBandwidth(bandwidthHz float64) error {
	if bandwidthHz <= 0 {
		return fmt.Errorf("%w: tracking bandwidth must be positive, got %g", ErrConfig, bandwidthHz)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manualBandwidth = bandwidthHz
	r.recomputeRates()
	return nil
}

// PathDetectionThreshold returns the normalized magnitude above which a
// candidate path is considered detected.
func (r *Receiver) PathDetectionThreshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.PathDetectionThreshold
}

// SetPathDetectionThreshold sets the detection threshold, in (0,1].
func (r *Receiver) SetPathDetectionThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("%w: detection threshold must be in (0,1], got %g", ErrConfig, threshold)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params.PathDetectionThreshold = threshold
	return nil
}

// LockThreshold returns the smoothed magnitude above which a finger locks.
func (r *Receiver) LockThreshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.LockThreshold
}

// SetLockThreshold sets the lock threshold, in (0,1].
func (r *Receiver) SetLockThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("%w: lock threshold must be in (0,1], got %g", ErrConfig, threshold)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params.LockThreshold = threshold
	return nil
}

// ReassignmentPeriod returns the minimum dwell in seconds between
// reassignments of the same finger.
func (r *Receiver) ReassignmentPeriod() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.ReassignmentPeriod
}

// SetReassignmentPeriod sets the reassignment dwell in seconds.
func (r *Receiver) SetReassignmentPeriod(seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: reassignment period must be non-negative, got %g", ErrConfig, seconds)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params.ReassignmentPeriod = seconds
	return nil
}

// GPSSpeed returns the last recorded platform speed in km/h, or NoFix.
func (r *Receiver) GPSSpeed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.GPSSpeed
}

// SetGPSSpeed records a platform speed in km/h and, when adaptive mode is
// on, recomputes the search rate and tracking bandwidth. The speed is
// recorded even when adaptive mode is off.
func (r *Receiver) SetGPSSpeed(speedKmh float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSpeedLocked(speedKmh, "manual")
}

// AdaptiveMode reports whether speed-adaptive tuning is enabled.
func (r *Receiver) AdaptiveMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.AdaptiveMode
}

// SetAdaptiveMode toggles speed-adaptive tuning. Enabling it recomputes the
// rates from the current speed immediately; disabling restores the manual
// values.
func (r *Receiver) SetAdaptiveMode(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.params.AdaptiveMode == enable {
		return
	}
	r.params.AdaptiveMode = enable
	r.recomputeRates()
	monitoring.Logf("adaptive mode %v: search rate %.1f Hz, bandwidth %.1f Hz",
		enable, r.params.PathSearchRate, r.params.TrackingBandwidth)
}

// ParseNMEA0183 extracts speed from an NMEA sentence and records it. Parse
// failures leave the speed and tuning untouched.
func (r *Receiver) ParseNMEA0183(sentence string) error {
	speed, err := gps.ParseNMEASpeed(sentence)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSpeedLocked(speed, "nmea")
	return nil
}

// ParseGPSD extracts speed from a GPSD TPV report and records it.
func (r *Receiver) ParseGPSD(report string) error {
	speed, err := gps.ParseGPSDSpeed(report)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSpeedLocked(speed, "gpsd")
	return nil
}

// ParseGPSData auto-detects the telemetry format and records the speed.
func (r *Receiver) ParseGPSData(data string) error {
	speed, err := gps.ParseSpeed(data)
	if err != nil {
		return err
	}
	source := "nmea"
	if trimmed := strings.TrimSpace(data); trimmed != "" && trimmed[0] == '{' {
		source = "gpsd"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSpeedLocked(speed, source)
	return nil
}

// setSpeedLocked records a speed, runs the controller and emits the update.
// Callers hold r.mu.
func (r *Receiver) setSpeedLocked(speedKmh float64, source string) {
	r.params.GPSSpeed = speedKmh
	r.recomputeRates()
	if r.sink != nil {
		r.sink.RecordSpeedUpdate(SpeedUpdate{
			Source:            source,
			SpeedKmh:          speedKmh,
			PathSearchRate:    r.params.PathSearchRate,
			TrackingBandwidth: r.params.TrackingBandwidth,
			Adaptive:          r.params.AdaptiveMode,
		})
	}
}

// recomputeRates applies the adaptive controller when it is authoritative,
// and the manual values otherwise. Callers hold r.mu.
func (r *Receiver) recomputeRates() {
	if r.params.AdaptiveMode && r.params.GPSSpeed >= 0 {
		r.params.PathSearchRate, r.params.TrackingBandwidth = AdaptiveRates(r.params.GPSSpeed)
		return
	}
	r.params.PathSearchRate = r.manualRate
	r.params.TrackingBandwidth = r.manualBandwidth
}
