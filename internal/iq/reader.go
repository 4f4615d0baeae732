package iq

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// CaptureReader streams complex samples from a raw capture file (the same
// interleaved float32 I/Q layout as the UDP wire format, no header).
type CaptureReader struct {
	f   *os.File
	buf []byte
}

// OpenCapture opens a raw I/Q capture file for reading.
func OpenCapture(path string) (*CaptureReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	return &CaptureReader{f: f}, nil
}

// ReadBlock reads up to blockSize samples. It returns io.EOF once the capture
// is exhausted; a trailing partial sample is reported as an error.
func (r *CaptureReader) ReadBlock(blockSize int) ([]complex128, error) {
	want := blockSize * BytesPerSample
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}
	n, err := io.ReadFull(r.f, r.buf[:want])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	if n%BytesPerSample != 0 {
		return nil, fmt.Errorf("capture ends mid-sample (%d trailing bytes)", n%BytesPerSample)
	}
	return DecodeSamples(nil, r.buf[:n])
}

// Close closes the underlying file.
func (r *CaptureReader) Close() error {
	return r.f.Close()
}

// ReadAllSamples loads an entire capture file into memory. Intended for
// offline tooling, not the streaming path.
func ReadAllSamples(path string) ([]complex128, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("capture ends mid-sample (%d trailing bytes)", len(data)%BytesPerSample)
	}
	return DecodeSamples(make([]complex128, 0, len(data)/BytesPerSample), data)
}
