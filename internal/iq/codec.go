// Package iq ingests complex baseband samples for the receiver: a UDP
// listener for live streams, a raw capture file reader for offline work, and
// an optional pcap replay path. The wire format is interleaved little-endian
// float32 I/Q pairs.
package iq

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BytesPerSample is the encoded size of one complex sample (two float32s).
const BytesPerSample = 8

// DecodeSamples converts interleaved little-endian float32 I/Q bytes into
// complex samples, appending to dst. Payloads that are not a whole number of
// samples are rejected rather than truncated so a framing bug surfaces
// immediately.
func DecodeSamples(dst []complex128, payload []byte) ([]complex128, error) {
	if len(payload)%BytesPerSample != 0 {
		return dst, fmt.Errorf("payload length %d is not a multiple of %d", len(payload), BytesPerSample)
	}
	for off := 0; off < len(payload); off += BytesPerSample {
		i := math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
		q := math.Float32frombits(binary.LittleEndian.Uint32(payload[off+4:]))
		dst = append(dst, complex(float64(i), float64(q)))
	}
	return dst, nil
}

// EncodeSamples converts complex samples into interleaved little-endian
// float32 I/Q bytes, appending to dst. It is the inverse of DecodeSamples and
// exists for tests and capture tooling.
func EncodeSamples(dst []byte, samples []complex128) []byte {
	for _, s := range samples {
		var buf [BytesPerSample]byte
		binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(float32(real(s))))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(imag(s))))
		dst = append(dst, buf[:]...)
	}
	return dst
}
