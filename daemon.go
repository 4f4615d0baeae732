package main

import (
	"log"
	"net"
	"strconv"

	"github.com/banshee-data/rake.receiver/internal/config"
	"github.com/banshee-data/rake.receiver/internal/rake"
	"github.com/banshee-data/rake.receiver/internal/serialmux"
)

// applyTuning pushes the runtime-adjustable parameters from the tuning file
// onto a freshly built receiver. Construction-time parameters (finger count,
// pattern length, sample rate) are handled by ReceiverConfigFromTuning.
func applyTuning(receiver *rake.Receiver, tuning *config.TuningConfig) {
	setters := []struct {
		name  string
		apply func() error
	}{
		{"path_search_rate", func() error { return receiver.SetPathSearchRate(tuning.GetPathSearchRate()) }},
		{"tracking_bandwidth", func() error { return receiver.SetTrackingBandwidth(tuning.GetTrackingBandwidth()) }},
		{"path_detection_threshold", func() error { return receiver.SetPathDetectionThreshold(tuning.GetPathDetectionThreshold()) }},
		{"lock_threshold", func() error { return receiver.SetLockThreshold(tuning.GetLockThreshold()) }},
		{"reassignment_period", func() error { return receiver.SetReassignmentPeriod(tuning.GetReassignmentPeriod()) }},
	}
	for _, s := range setters {
		if err := s.apply(); err != nil {
			log.Fatalf("Invalid %s in tuning config: %v", s.name, err)
		}
	}
	receiver.SetAdaptiveMode(tuning.GetAdaptiveMode())
}

// handleTelemetry feeds one GPS line to the receiver. Sentences the parsers
// don't understand (GSV, GGA, gpsd's VERSION banner) are normal on a live
// feed and only logged at the unknown-payload level.
func handleTelemetry(receiver *rake.Receiver, payload string) {
	if err := receiver.ParseGPSData(payload); err != nil {
		log.Printf("ignoring %s telemetry line: %v", serialmux.ClassifyPayload(payload), err)
	}
}

// udpPort extracts the numeric port from a listen address for PCAP filtering.
func udpPort(address string) int {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
