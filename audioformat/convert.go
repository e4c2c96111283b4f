package audioformat

import "fmt"

// ExtraChannelPolicy controls what happens to channels beyond the
// destination layout's count, or how missing channels are synthesized,
// per connection (spec.md §4.3).
type ExtraChannelPolicy int

const (
	// SumIntoFirst adds any extra source channels into channel 0 of the
	// destination, and duplicates channel 0 into any extra destination
	// channels that have no source counterpart.
	SumIntoFirst ExtraChannelPolicy = iota
	// DuplicateFirst always duplicates the first source channel into
	// every destination channel beyond the source's count, and drops
	// any source channels beyond the destination's count.
	DuplicateFirst
)

// Convert copies every frame of src into dst, converting from src's
// format/arrangement to dst's, performing the sample-format and
// interleaving conversion described in spec.md §4.3. Only the first
// min(src, dst) channels are copied; any further dst channels are left
// untouched. src and dst must already have buffers of the correct
// shape and equal frame counts; Convert does not allocate.
func Convert(dst *Buffer, src *Buffer) error {
	if dst.Frames != src.Frames {
		return fmt.Errorf("audioformat: frame count mismatch: src=%d dst=%d", src.Frames, dst.Frames)
	}
	frames := src.Frames
	srcCh := src.Layout.Channels
	dstCh := dst.Layout.Channels
	n := srcCh
	if dstCh < n {
		n = dstCh
	}

	srcBps := src.Format.BytesPerSample()
	dstBps := dst.Format.BytesPerSample()

	srcAt := func(ch, frame int) []byte {
		if src.Arrangement == Planar {
			off := frame * srcBps
			return src.Regions[ch][off : off+srcBps]
		}
		off := (frame*srcCh + ch) * srcBps
		return src.Regions[0][off : off+srcBps]
	}
	dstAt := func(ch, frame int) []byte {
		if dst.Arrangement == Planar {
			off := frame * dstBps
			return dst.Regions[ch][off : off+dstBps]
		}
		off := (frame*dstCh + ch) * dstBps
		return dst.Regions[0][off : off+dstBps]
	}

	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < n; ch++ {
			v := readSample(src.Format, srcAt(ch, frame))
			writeSample(dst.Format, v, dstAt(ch, frame))
		}
	}
	return nil
}

// AdaptChannels writes a dst buffer (already allocated with dst.Layout's
// channel count) from src, applying policy to the channels that don't
// have a direct 1:1 counterpart. dst and src may already differ in
// sample format and arrangement; AdaptChannels performs both the format
// conversion and the channel-count adaptation in one pass.
func AdaptChannels(dst *Buffer, src *Buffer, policy ExtraChannelPolicy) error {
	if dst.Frames != src.Frames {
		return fmt.Errorf("audioformat: frame count mismatch: src=%d dst=%d", src.Frames, dst.Frames)
	}
	frames := src.Frames
	srcCh := src.Layout.Channels
	dstCh := dst.Layout.Channels
	srcBps := src.Format.BytesPerSample()
	dstBps := dst.Format.BytesPerSample()

	srcAt := func(ch, frame int) []byte {
		if src.Arrangement == Planar {
			off := frame * srcBps
			return src.Regions[ch][off : off+srcBps]
		}
		off := (frame*srcCh + ch) * srcBps
		return src.Regions[0][off : off+srcBps]
	}
	dstAt := func(ch, frame int) []byte {
		if dst.Arrangement == Planar {
			off := frame * dstBps
			return dst.Regions[ch][off : off+dstBps]
		}
		off := (frame*dstCh + ch) * dstBps
		return dst.Regions[0][off : off+dstBps]
	}

	for frame := 0; frame < frames; frame++ {
		switch policy {
		case DuplicateFirst:
			first := readSample(src.Format, srcAt(0, frame))
			for ch := 0; ch < dstCh; ch++ {
				if ch < srcCh {
					writeSample(dst.Format, readSample(src.Format, srcAt(ch, frame)), dstAt(ch, frame))
				} else {
					writeSample(dst.Format, first, dstAt(ch, frame))
				}
			}
		case SumIntoFirst:
			var extraSum float64
			for ch := 0; ch < srcCh; ch++ {
				v := readSample(src.Format, srcAt(ch, frame))
				if ch < dstCh {
					if ch == 0 {
						// deferred: added to extraSum below
					} else {
						writeSample(dst.Format, v, dstAt(ch, frame))
					}
				} else {
					extraSum += v
				}
			}
			var first float64
			if srcCh > 0 {
				first = readSample(src.Format, srcAt(0, frame))
			}
			writeSample(dst.Format, clamp(first+extraSum), dstAt(0, frame))
			for ch := srcCh; ch < dstCh; ch++ {
				writeSample(dst.Format, first, dstAt(ch, frame))
			}
		default:
			return fmt.Errorf("audioformat: unknown extra-channel policy %d", policy)
		}
	}
	return nil
}

// Deinterleave produces a planar Buffer from an interleaved one, same
// format and layout.
func Deinterleave(src *Buffer) *Buffer {
	dst := NewBuffer(src.Frames, src.Format, Planar, src.Layout, src.SampleRate)
	bps := src.Format.BytesPerSample()
	ch := src.Layout.Channels
	for frame := 0; frame < src.Frames; frame++ {
		for c := 0; c < ch; c++ {
			srcOff := (frame*ch + c) * bps
			dstOff := frame * bps
			copy(dst.Regions[c][dstOff:dstOff+bps], src.Regions[0][srcOff:srcOff+bps])
		}
	}
	return dst
}

// Interleave produces an interleaved Buffer from a planar one, same
// format and layout.
func Interleave(src *Buffer) *Buffer {
	dst := NewBuffer(src.Frames, src.Format, Interleaved, src.Layout, src.SampleRate)
	bps := src.Format.BytesPerSample()
	ch := src.Layout.Channels
	for frame := 0; frame < src.Frames; frame++ {
		for c := 0; c < ch; c++ {
			srcOff := frame * bps
			dstOff := (frame*ch + c) * bps
			copy(dst.Regions[0][dstOff:dstOff+bps], src.Regions[c][srcOff:srcOff+bps])
		}
	}
	return dst
}
