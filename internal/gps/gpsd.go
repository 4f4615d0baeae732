package gps

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/banshee-data/rake.receiver/internal/monitoring"
)

// watchCommand asks gpsd to stream JSON reports for all devices.
const watchCommand = `?WATCH={"enable":true,"json":true}` + "\r\n"

// GPSDFeed streams TPV reports from a gpsd daemon over TCP. Each raw JSON
// line is handed to the configured handler; parse decisions stay with the
// caller so the same handler can serve the serial NMEA feed.
type GPSDFeed struct {
	addr        string
	dialTimeout time.Duration
	handler     func(line string)
}

// NewGPSDFeed creates a feed for the gpsd daemon at addr (host:port).
func NewGPSDFeed(addr string, handler func(line string)) *GPSDFeed {
	return &GPSDFeed{
		addr:        addr,
		dialTimeout: 10 * time.Second,
		handler:     handler,
	}
}

// Monitor connects to gpsd, enables watch mode and forwards report lines to
// the handler until the context is cancelled or the connection drops.
func (f *GPSDFeed) Monitor(ctx context.Context) error {
	dialer := net.Dialer{Timeout: f.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", f.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to gpsd at %s: %w", f.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return fmt.Errorf("failed to enable gpsd watch mode: %w", err)
	}

	// Close the connection when the context is cancelled so the blocked
	// scanner read returns.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scan := bufio.NewScanner(conn)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		f.handler(line)
	}

	if ctx.Err() != nil {
		monitoring.Logf("gpsd feed stopped: %v", ctx.Err())
		return nil
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("gpsd stream read failed: %w", err)
	}
	return nil
}
