package audio

import (
	"math"
	"time"
)

// Clip holds decoded audio in the uniform representation the engine
// expects: interleaved 16-bit PCM at a fixed sample rate.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Metrics summarizes clip loudness for silence detection.
type Metrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

func (c Clip) Measure() Metrics {
	if len(c.Samples) == 0 {
		return Metrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}
	}

	var peak float64
	var sumSquares float64
	for _, s := range c.Samples {
		value := float64(s) / 32768.0
		abs := math.Abs(value)
		if abs > peak {
			peak = abs
		}
		sumSquares += value * value
	}

	rms := math.Sqrt(sumSquares / float64(len(c.Samples)))
	return Metrics{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  int64(len(c.Samples)),
	}
}

// IsSilent reports whether the clip sits below the threshold. The peak
// gate sits 6 dB above the RMS threshold so short transients do not
// count as speech.
func (c Clip) IsSilent(thresholdDBFS float64) bool {
	m := c.Measure()
	if m.Samples == 0 {
		return true
	}
	return m.RMSdBFS <= thresholdDBFS && m.PeakdBFS <= thresholdDBFS+6
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
