package audio

import (
	"encoding/binary"
	"math"
)

// RMSPCM16LE computes the root mean square level of raw PCM16LE mono audio,
// normalized to 0..1. Odd trailing bytes are ignored.
func RMSPCM16LE(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// PeakPCM16LE returns the largest absolute sample of raw PCM16LE mono audio,
// normalized to 0..1.
func PeakPCM16LE(pcm []byte) float64 {
	n := len(pcm) / 2
	peak := 0.0
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		v := math.Abs(float64(s) / 32768.0)
		if v > peak {
			peak = v
		}
	}
	return peak
}

// DurationSeconds reports how long a raw PCM16LE mono buffer plays at the
// given sample rate.
func DurationSeconds(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return float64(len(pcm)/2) / float64(sampleRate)
}
