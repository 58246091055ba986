package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndReadWAVRoundTrip(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(0.25 * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}
	clip := Clip{Samples: samples, SampleRate: 16000, Channels: 1}

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, WriteWAV(path, clip))

	decoded, err := ReadWAV(path)
	require.NoError(t, err)
	require.Equal(t, clip.SampleRate, decoded.SampleRate)
	require.Equal(t, clip.Channels, decoded.Channels)
	require.Len(t, decoded.Samples, len(clip.Samples))

	// Allow one LSB of quantization wiggle per sample.
	for i := range clip.Samples {
		require.InDelta(t, clip.Samples[i], decoded.Samples[i], 1)
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-wav.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := ReadWAV(path)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestReadWAVRejectsMissingChunks(t *testing.T) {
	t.Parallel()

	// RIFF/WAVE header with no fmt or data chunks.
	header := append([]byte("RIFF"), 0, 0, 0, 0)
	header = append(header, []byte("WAVE")...)

	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(path, header, 0o644))

	_, err := ReadWAV(path)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestClipDuration(t *testing.T) {
	t.Parallel()

	clip := Clip{Samples: make([]int16, 48000), SampleRate: 16000, Channels: 1}
	require.Equal(t, "3s", clip.Duration().String())

	stereo := Clip{Samples: make([]int16, 48000), SampleRate: 16000, Channels: 2}
	require.Equal(t, "1.5s", stereo.Duration().String())

	require.Equal(t, "0s", Clip{}.Duration().String())
}

func TestClipSilenceDetection(t *testing.T) {
	t.Parallel()

	silent := Clip{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}
	require.True(t, silent.IsSilent(-65))

	metrics := silent.Measure()
	require.True(t, math.IsInf(metrics.RMSdBFS, -1))
	require.True(t, math.IsInf(metrics.PeakdBFS, -1))

	loud := make([]int16, 16000)
	for i := range loud {
		loud[i] = int16(0.25 * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}
	voice := Clip{Samples: loud, SampleRate: 16000, Channels: 1}
	require.False(t, voice.IsSilent(-65))

	metrics = voice.Measure()
	require.Greater(t, metrics.PeakdBFS, -20.0)
	require.Greater(t, metrics.RMSdBFS, -20.0)
}

func TestFloatToPCM16Clamps(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 32767, floatToPCM16(1.5))
	require.EqualValues(t, -32768, floatToPCM16(-1.5))
	require.EqualValues(t, 0, floatToPCM16(0))
}
