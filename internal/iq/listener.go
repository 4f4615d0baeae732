package iq

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/rake.receiver/internal/monitoring"
)

// StreamStatsInterface provides sample stream statistics management
type StreamStatsInterface interface {
	AddPacket(bytes int)
	AddDropped()
	AddSamples(count int)
	LogStats()
}

// BlockHandler consumes decoded sample blocks. The receiver's ProcessBlock
// satisfies this signature.
type BlockHandler func(samples []complex128) error

// UDPListener receives interleaved float32 I/Q packets from UDP and hands the
// decoded blocks to a handler, with configurable statistics collection.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	conn        *net.UDPConn
	stats       StreamStatsInterface
	handler     BlockHandler
}

// UDPListenerConfig contains configuration options for the UDP listener
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       StreamStatsInterface
	Handler     BlockHandler
}

// NewUDPListener creates a new UDP listener with the provided configuration
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	// Provide a no-op stats implementation when none is supplied to avoid
	// nil pointer dereferences in the packet handling and logging paths.
	var stats StreamStatsInterface
	if config.Stats != nil {
		stats = config.Stats
	} else {
		stats = &noopStats{}
	}

	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 4 << 20
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      rcvBuf,
		logInterval: logInterval,
		stats:       stats,
		handler:     config.Handler,
	}
}

// noopStats is a StreamStatsInterface implementation that does nothing.
// It is used as a safe default when no stats collector is provided.
type noopStats struct{}

func (n *noopStats) AddPacket(bytes int)  {}
func (n *noopStats) AddDropped()          {}
func (n *noopStats) AddSamples(count int) {}
func (n *noopStats) LogStats()            {}

// LocalAddr returns the bound UDP address once Start has opened the socket.
// It is useful when listening on port 0 in tests.
func (l *UDPListener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Start begins listening for UDP packets and processing them. It blocks
// until the context is cancelled or the socket fails.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("I/Q listener started on %s with receive buffer %d bytes", conn.LocalAddr(), l.rcvBuf)

	go l.startStatsLogging(ctx)

	// One datagram per read; 8192 samples is far beyond any sane MTU.
	buffer := make([]byte, 65536)
	samples := make([]complex128, 0, 8192)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("I/Q listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			l.stats.AddPacket(n)

			samples = samples[:0]
			samples, err = DecodeSamples(samples, buffer[:n])
			if err != nil {
				l.stats.AddDropped()
				monitoring.Logf("Error decoding packet from %v: %v", addr, err)
				continue
			}
			l.stats.AddSamples(len(samples))

			if l.handler != nil {
				if err := l.handler(samples); err != nil {
					monitoring.Logf("Error handling block from %v: %v", addr, err)
				}
			}
		}
	}
}

// startStatsLogging periodically logs stream statistics
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	// Trigger an initial stats report shortly after startup to avoid a
	// long silence on first-run. Then continue on the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}
