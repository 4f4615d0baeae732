package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanProfileFlatCapture(t *testing.T) {
	t.Parallel()

	const patternLength = 8
	const window = 16

	// A single pulse train: ones everywhere gives magnitude 1 at delay 0.
	samples := make([]complex128, 8*patternLength+window+patternLength)
	for i := range samples {
		samples[i] = 1
	}

	profile := scanProfile(samples, patternLength, window)
	require.Len(t, profile, window+1)
	for delay, mag := range profile {
		assert.InDelta(t, 1.0, mag, 1e-9, "delay %d", delay)
	}
}

func TestTopPeaksOrdering(t *testing.T) {
	t.Parallel()

	profile := []float64{0.1, 0.9, 0.5, 0.9, 0.2}

	peaks := topPeaks(profile, 3)
	require.Len(t, peaks, 3)
	// Ties break toward the lower delay.
	assert.Equal(t, 1, peaks[0].delay)
	assert.Equal(t, 3, peaks[1].delay)
	assert.Equal(t, 2, peaks[2].delay)

	// Requesting more peaks than delays clamps.
	assert.Len(t, topPeaks(profile, 99), 5)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.html")
	require.NoError(t, renderHTML([]float64{0.1, 0.8, 0.3}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Delay Profile")
}

func TestRenderPNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.png")
	require.NoError(t, renderPNG([]float64{0.1, 0.8, 0.3}, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
