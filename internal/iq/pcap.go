//go:build pcap
// +build pcap

package iq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/rake.receiver/internal/monitoring"
)

// ReadPCAPFile replays captured I/Q UDP packets from a PCAP file through the
// given block handler, as if they had arrived on the live socket.
// This function is only available when building with the 'pcap' build tag.
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, stats StreamStatsInterface, handler BlockHandler) error {
	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	// Only the I/Q stream port is interesting.
	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filterStr, err)
	}
	monitoring.Logf("PCAP BPF filter set: %s", filterStr)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	startTime := time.Now()

	samples := make([]complex128, 0, 8192)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("PCAP reader stopping due to context cancellation (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				// End of PCAP file
				elapsed := time.Since(startTime)
				monitoring.Logf("PCAP file reading complete: %d packets processed in %v", packetCount, elapsed)
				return nil
			}

			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue // Skip non-UDP packets (shouldn't happen with BPF filter)
			}

			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}

			payload := udp.Payload
			if len(payload) == 0 {
				continue
			}

			if stats != nil {
				stats.AddPacket(len(payload))
			}

			samples = samples[:0]
			samples, err = DecodeSamples(samples, payload)
			if err != nil {
				if stats != nil {
					stats.AddDropped()
				}
				monitoring.Logf("Error decoding PCAP packet %d: %v", packetCount, err)
				continue
			}
			if stats != nil {
				stats.AddSamples(len(samples))
			}

			if handler != nil {
				if err := handler(samples); err != nil {
					monitoring.Logf("Error handling PCAP packet %d: %v", packetCount, err)
				}
			}

			if packetCount%10000 == 0 {
				monitoring.Logf("PCAP progress: %d packets replayed", packetCount)
			}
		}
	}
}
