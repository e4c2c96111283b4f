package audioformat

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// DominantFrequency returns the frequency in Hz of the
// largest-magnitude bin in channel ch's spectrum. Test fixtures use it
// to verify a known tone survives a processing path unchanged (spec.md
// §8 scenario 1: "hardware output channel 0 delivers the same 1 kHz
// sine to within quantization of the declared internal format").
func (b *Buffer) DominantFrequency(ch int) float64 {
	samples := make([]float64, b.Frames)
	for i := 0; i < b.Frames; i++ {
		samples[i] = b.ReadSample(ch, i)
	}
	spectrum := fft.FFTReal(samples)

	bestBin, bestMag := 0, 0.0
	for i := 1; i < len(spectrum)/2; i++ {
		mag := math.Hypot(real(spectrum[i]), imag(spectrum[i]))
		if mag > bestMag {
			bestMag, bestBin = mag, i
		}
	}
	return float64(bestBin) * float64(b.SampleRate) / float64(len(samples))
}

// IsSilent reports whether every channel of buf stays at or below
// threshold in magnitude for its whole duration. A threshold <= 0 uses
// a -80 dBFS-equivalent default. Used to decide whether a block is
// worth logging as a buffer underrun versus genuine silence.
func (b *Buffer) IsSilent(threshold float64) bool {
	if threshold <= 0 {
		threshold = 1e-4
	}
	for ch := 0; ch < b.Layout.Channels; ch++ {
		for f := 0; f < b.Frames; f++ {
			if math.Abs(b.ReadSample(ch, f)) > threshold {
				return false
			}
		}
	}
	return true
}
