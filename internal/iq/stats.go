package iq

import (
	"sync/atomic"

	"github.com/banshee-data/rake.receiver/internal/monitoring"
)

// StreamStats is an atomic counter set for the I/Q ingest path. The listener
// increments from its read loop; LogStats reports and resets the interval
// counters.
type StreamStats struct {
	packets uint64
	bytes   uint64
	dropped uint64
	samples uint64
}

// NewStreamStats returns a zeroed stats collector.
func NewStreamStats() *StreamStats {
	return &StreamStats{}
}

func (s *StreamStats) AddPacket(n int) {
	atomic.AddUint64(&s.packets, 1)
	atomic.AddUint64(&s.bytes, uint64(n))
}

func (s *StreamStats) AddDropped() {
	atomic.AddUint64(&s.dropped, 1)
}

func (s *StreamStats) AddSamples(count int) {
	atomic.AddUint64(&s.samples, uint64(count))
}

// Snapshot returns the counters accumulated since the last LogStats call.
func (s *StreamStats) Snapshot() (packets, bytes, dropped, samples uint64) {
	return atomic.LoadUint64(&s.packets),
		atomic.LoadUint64(&s.bytes),
		atomic.LoadUint64(&s.dropped),
		atomic.LoadUint64(&s.samples)
}

// LogStats logs the interval counters and resets them.
func (s *StreamStats) LogStats() {
	packets := atomic.SwapUint64(&s.packets, 0)
	bytes := atomic.SwapUint64(&s.bytes, 0)
	dropped := atomic.SwapUint64(&s.dropped, 0)
	samples := atomic.SwapUint64(&s.samples, 0)
	monitoring.Logf("I/Q stream: %d packets, %d bytes, %d samples, %d dropped",
		packets, bytes, samples, dropped)
}
