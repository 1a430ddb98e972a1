package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestRMSPCM16LE(t *testing.T) {
	if got := RMSPCM16LE(nil); got != 0 {
		t.Fatalf("RMSPCM16LE(nil) = %v, want 0", got)
	}
	if got := RMSPCM16LE(pcmFromSamples([]int16{0, 0, 0, 0})); got != 0 {
		t.Fatalf("RMSPCM16LE(silence) = %v, want 0", got)
	}

	// A constant full-scale signal has RMS equal to its amplitude.
	loud := pcmFromSamples([]int16{32767, 32767, 32767, 32767})
	if got := RMSPCM16LE(loud); math.Abs(got-32767.0/32768.0) > 1e-6 {
		t.Fatalf("RMSPCM16LE(full scale) = %v, want ~1", got)
	}

	quiet := pcmFromSamples([]int16{100, -100, 100, -100})
	loud2 := pcmFromSamples([]int16{10000, -10000, 10000, -10000})
	if RMSPCM16LE(quiet) >= RMSPCM16LE(loud2) {
		t.Fatalf("quiet RMS %v >= loud RMS %v", RMSPCM16LE(quiet), RMSPCM16LE(loud2))
	}
}

func TestPeakPCM16LE(t *testing.T) {
	pcm := pcmFromSamples([]int16{10, -2000, 512})
	want := 2000.0 / 32768.0
	if got := PeakPCM16LE(pcm); math.Abs(got-want) > 1e-9 {
		t.Fatalf("PeakPCM16LE() = %v, want %v", got, want)
	}
}

func TestDurationSeconds(t *testing.T) {
	pcm := make([]byte, 16000*2) // one second at 16 kHz
	if got := DurationSeconds(pcm, 16000); got != 1.0 {
		t.Fatalf("DurationSeconds() = %v, want 1.0", got)
	}
	if got := DurationSeconds(pcm, 0); got != 1.0 {
		t.Fatalf("DurationSeconds() with default rate = %v, want 1.0", got)
	}
}
