package gps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rmcFixture = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"

func TestParseNMEASpeed(t *testing.T) {
	t.Parallel()

	t.Run("GPRMC ground speed in knots", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseNMEASpeed(rmcFixture)
		require.NoError(t, err)
		assert.InDelta(t, 41.4848, kmh, 0.0001) // 22.4 kn × 1.852
	})

	t.Run("GNRMC talker accepted", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseNMEASpeed("$GNRMC,081836,A,3751.65,S,14507.36,E,010.0,360.0,130998,011.3,E*62")
		require.NoError(t, err)
		assert.InDelta(t, 18.52, kmh, 0.0001)
	})

	t.Run("VTG speed already in km/h", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseNMEASpeed("$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48")
		require.NoError(t, err)
		assert.InDelta(t, 10.2, kmh, 0.0001)
	})

	t.Run("surrounding whitespace tolerated", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseNMEASpeed("  " + rmcFixture + "\r\n")
		require.NoError(t, err)
		assert.InDelta(t, 41.4848, kmh, 0.0001)
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		t.Parallel()
		_, err := ParseNMEASpeed("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
		assert.ErrorIs(t, err, ErrMalformedSentence)
	})

	t.Run("rejects short sentence", func(t *testing.T) {
		t.Parallel()
		_, err := ParseNMEASpeed("$GPRMC,123519,A")
		assert.ErrorIs(t, err, ErrMalformedSentence)
	})

	t.Run("rejects non-numeric speed", func(t *testing.T) {
		t.Parallel()
		_, err := ParseNMEASpeed("$GPRMC,123519,A,4807.038,N,01131.000,E,fast,084.4,230394,003.1,W*6A")
		assert.ErrorIs(t, err, ErrMalformedSentence)
	})

	t.Run("rejects speedless sentence type", func(t *testing.T) {
		t.Parallel()
		_, err := ParseNMEASpeed("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
		assert.ErrorIs(t, err, ErrMalformedSentence)
	})
}

func TestParseGPSDSpeed(t *testing.T) {
	t.Parallel()

	t.Run("TPV speed in m/s", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseGPSDSpeed(`{"class":"TPV","device":"/dev/ttyUSB0","speed":12.5}`)
		require.NoError(t, err)
		assert.InDelta(t, 45.0, kmh, 0.0001)
	})

	t.Run("zero speed is a valid fix", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseGPSDSpeed(`{"class":"TPV","speed":0}`)
		require.NoError(t, err)
		assert.Zero(t, kmh)
	})

	t.Run("rejects non-TPV class", func(t *testing.T) {
		t.Parallel()
		_, err := ParseGPSDSpeed(`{"class":"SKY","satellites":[]}`)
		assert.ErrorIs(t, err, ErrMalformedReport)
	})

	t.Run("rejects missing speed field", func(t *testing.T) {
		t.Parallel()
		_, err := ParseGPSDSpeed(`{"class":"TPV","lat":48.1}`)
		assert.ErrorIs(t, err, ErrMalformedReport)
	})

	t.Run("rejects non-numeric speed", func(t *testing.T) {
		t.Parallel()
		_, err := ParseGPSDSpeed(`{"class":"TPV","speed":"brisk"}`)
		assert.ErrorIs(t, err, ErrMalformedReport)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		t.Parallel()
		_, err := ParseGPSDSpeed(`{"class":"TPV",`)
		assert.ErrorIs(t, err, ErrMalformedReport)
	})
}

func TestParseSpeed(t *testing.T) {
	t.Parallel()

	t.Run("dispatches JSON to GPSD parser", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseSpeed(`{"class":"TPV","speed":10.0}`)
		require.NoError(t, err)
		assert.InDelta(t, 36.0, kmh, 0.0001)
	})

	t.Run("dispatches $ to NMEA parser", func(t *testing.T) {
		t.Parallel()
		kmh, err := ParseSpeed(rmcFixture)
		require.NoError(t, err)
		assert.InDelta(t, 41.4848, kmh, 0.0001)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSpeed("PSRF103,00,6,00,0")
		assert.ErrorIs(t, err, ErrUnrecognizedFormat)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSpeed("   \r\n")
		assert.ErrorIs(t, err, ErrUnrecognizedFormat)
	})

	t.Run("failures propagate the inner sentinel", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSpeed("$GPRMC,bad")
		assert.True(t, errors.Is(err, ErrMalformedSentence))
	})
}
