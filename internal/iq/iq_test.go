package iq

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSamples(t *testing.T) {
	t.Parallel()

	want := []complex128{
		complex(1, 0),
		complex(0, -1),
		complex(0.5, 0.25),
	}
	payload := EncodeSamples(nil, want)
	require.Len(t, payload, 3*BytesPerSample)

	got, err := DecodeSamples(nil, payload)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.InDelta(t, real(want[i]), real(got[i]), 1e-7)
		assert.InDelta(t, imag(want[i]), imag(got[i]), 1e-7)
	}
}

func TestDecodeSamplesRejectsPartialSample(t *testing.T) {
	t.Parallel()

	_, err := DecodeSamples(nil, make([]byte, 7))
	assert.ErrorContains(t, err, "not a multiple")
}

func TestDecodeSamplesAppends(t *testing.T) {
	t.Parallel()

	dst := []complex128{complex(9, 9)}
	payload := EncodeSamples(nil, []complex128{complex(1, 2)})

	got, err := DecodeSamples(dst, payload)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, complex(9.0, 9.0), got[0])
}

func writeCapture(t *testing.T, samples []complex128) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.iq")
	require.NoError(t, os.WriteFile(path, EncodeSamples(nil, samples), 0o644))
	return path
}

func TestCaptureReaderBlocks(t *testing.T) {
	t.Parallel()

	samples := make([]complex128, 10)
	for i := range samples {
		samples[i] = complex(float64(i), 0)
	}
	path := writeCapture(t, samples)

	r, err := OpenCapture(path)
	require.NoError(t, err)
	defer r.Close()

	block, err := r.ReadBlock(4)
	require.NoError(t, err)
	assert.Len(t, block, 4)
	assert.Equal(t, complex(0.0, 0.0), block[0])
	assert.Equal(t, complex(3.0, 0.0), block[3])

	block, err = r.ReadBlock(4)
	require.NoError(t, err)
	assert.Len(t, block, 4)

	// Final partial block.
	block, err = r.ReadBlock(4)
	require.NoError(t, err)
	assert.Len(t, block, 2)

	_, err = r.ReadBlock(4)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadAllSamples(t *testing.T) {
	t.Parallel()

	path := writeCapture(t, []complex128{complex(1, 1), complex(2, 2)})

	samples, err := ReadAllSamples(path)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestReadAllSamplesRejectsTruncatedCapture(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.iq")
	require.NoError(t, os.WriteFile(path, make([]byte, 12), 0o644))

	_, err := ReadAllSamples(path)
	assert.ErrorContains(t, err, "mid-sample")
}

func TestStreamStats(t *testing.T) {
	t.Parallel()

	stats := NewStreamStats()
	stats.AddPacket(64)
	stats.AddPacket(32)
	stats.AddSamples(12)
	stats.AddDropped()

	packets, bytes, dropped, samples := stats.Snapshot()
	assert.Equal(t, uint64(2), packets)
	assert.Equal(t, uint64(96), bytes)
	assert.Equal(t, uint64(1), dropped)
	assert.Equal(t, uint64(12), samples)

	stats.LogStats()

	packets, bytes, dropped, samples = stats.Snapshot()
	assert.Zero(t, packets)
	assert.Zero(t, bytes)
	assert.Zero(t, dropped)
	assert.Zero(t, samples)
}

func TestUDPListenerDeliversBlocks(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var received []complex128

	listener := NewUDPListener(UDPListenerConfig{
		Address: "127.0.0.1:0",
		Stats:   NewStreamStats(),
		Handler: func(samples []complex128) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, samples...)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	// Wait for the socket to bind.
	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = listener.LocalAddr()
		return addr != nil
	}, 2*time.Second, 10*time.Millisecond)

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	payload := EncodeSamples(nil, []complex128{complex(1, 0), complex(0, 1)})

	// UDP on loopback is reliable in practice, but retry in case the
	// first datagram races the listener's read loop.
	require.Eventually(t, func() bool {
		_, err := conn.Write(payload)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 2
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
