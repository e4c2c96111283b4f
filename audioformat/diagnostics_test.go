package audioformat

import (
	"math"
	"testing"
)

func sineBuffer(freq float64, sampleRate, frames int) *Buffer {
	buf := NewBuffer(frames, F32, Planar, MonoLayout(), sampleRate)
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		buf.WriteSample(0, i, v)
	}
	return buf
}

func TestDominantFrequencyFindsKnownTone(t *testing.T) {
	const sampleRate = 48000
	buf := sineBuffer(1000, sampleRate, 4096)

	got := buf.DominantFrequency(0)
	if math.Abs(got-1000) > float64(sampleRate)/float64(4096) {
		t.Fatalf("expected dominant frequency near 1000 Hz, got %v", got)
	}
}

func TestIsSilentDetectsZeroBuffer(t *testing.T) {
	buf := NewBuffer(256, F32, Planar, MonoLayout(), 48000)
	if !buf.IsSilent(0) {
		t.Fatal("expected a freshly-allocated buffer to read as silent")
	}
}

func TestIsSilentRejectsTone(t *testing.T) {
	buf := sineBuffer(1000, 48000, 256)
	if buf.IsSilent(0) {
		t.Fatal("expected a 1kHz tone not to read as silent")
	}
}
