package audioformat

import "fmt"

// Buffer is a fixed-frame-count block of audio samples, either a single
// interleaved byte region or one byte region per channel.
//
// Invariant (spec.md §3): region size in bytes equals
// frames * bytesPerSample * (interleaved ? channels : 1).
// A Buffer is never mutated after it is published onto a pad — a new
// Buffer is produced instead, so it is safe to share by reference between
// a producer and a consumer within one tick.
type Buffer struct {
	Frames      int
	Format      SampleFormat
	Arrangement Arrangement
	Layout      ChannelLayout
	SampleRate  int

	// Interleaved regions hold exactly one entry, len == frames*bps*channels.
	// Planar regions hold one entry per channel, each len == frames*bps.
	Regions [][]byte

	refs int32 // not read or written anywhere; no buffer reference count is kept
}

// NewBuffer allocates a zero-filled Buffer of the given shape.
func NewBuffer(frames int, format SampleFormat, arr Arrangement, layout ChannelLayout, sampleRate int) *Buffer {
	b := &Buffer{
		Frames:      frames,
		Format:      format,
		Arrangement: arr,
		Layout:      layout,
		SampleRate:  sampleRate,
	}
	bps := format.BytesPerSample()
	switch arr {
	case Interleaved:
		b.Regions = [][]byte{make([]byte, frames*bps*layout.Channels)}
	case Planar:
		b.Regions = make([][]byte, layout.Channels)
		for i := range b.Regions {
			b.Regions[i] = make([]byte, frames*bps)
		}
	}
	return b
}

// Validate checks the region_bytes invariant from spec.md §3.
func (b *Buffer) Validate() error {
	bps := b.Format.BytesPerSample()
	switch b.Arrangement {
	case Interleaved:
		if len(b.Regions) != 1 {
			return fmt.Errorf("audioformat: interleaved buffer must have exactly one region, got %d", len(b.Regions))
		}
		want := b.Frames * bps * b.Layout.Channels
		if len(b.Regions[0]) != want {
			return fmt.Errorf("audioformat: interleaved region is %d bytes, want %d", len(b.Regions[0]), want)
		}
	case Planar:
		if len(b.Regions) != b.Layout.Channels {
			return fmt.Errorf("audioformat: planar buffer must have one region per channel, got %d regions for %d channels", len(b.Regions), b.Layout.Channels)
		}
		want := b.Frames * bps
		for i, r := range b.Regions {
			if len(r) != want {
				return fmt.Errorf("audioformat: planar region %d is %d bytes, want %d", i, len(r), want)
			}
		}
	default:
		return fmt.Errorf("audioformat: unknown arrangement %d", b.Arrangement)
	}
	return nil
}

// Silence overwrites every region with zero bytes, in place.
func (b *Buffer) Silence() {
	for _, r := range b.Regions {
		for i := range r {
			r[i] = 0
		}
	}
}

// SilenceBuffer allocates a fresh all-zero Buffer matching the given shape,
// used whenever a missing upstream must still produce a full block
// (spec.md §4.1 failure semantics, §8 boundary behaviors).
func SilenceBuffer(frames int, format SampleFormat, arr Arrangement, layout ChannelLayout, sampleRate int) *Buffer {
	return NewBuffer(frames, format, arr, layout, sampleRate)
}

func (b *Buffer) regionAt(ch, frame int) []byte {
	bps := b.Format.BytesPerSample()
	if b.Arrangement == Planar {
		off := frame * bps
		return b.Regions[ch][off : off+bps]
	}
	off := (frame*b.Layout.Channels + ch) * bps
	return b.Regions[0][off : off+bps]
}

// ReadSample returns the normalized value of channel ch, frame frame.
func (b *Buffer) ReadSample(ch, frame int) float64 {
	return readSample(b.Format, b.regionAt(ch, frame))
}

// WriteSample writes a normalized value into channel ch, frame frame,
// clamping/scaling per the format's narrowing rule if needed.
func (b *Buffer) WriteSample(ch, frame int, v float64) {
	writeSample(b.Format, v, b.regionAt(ch, frame))
}
