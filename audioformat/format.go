// Package audioformat implements the sample-format conversion boundary
// between hardware-native PCM and the internal float representation used
// by the audio graph, plus the planar/interleaved buffer type that flows
// between nodes.
package audioformat

import "fmt"

// SampleFormat identifies the binary layout of one sample.
type SampleFormat int

const (
	S16 SampleFormat = iota // signed 16-bit little-endian
	S24                     // signed 24-bit-in-32 little-endian, sign-extended
	S32                     // signed 32-bit little-endian
	F32                     // 32-bit float little-endian
	F64                     // 64-bit float little-endian
)

// BytesPerSample returns the storage width of one sample in the format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case S16:
		return 2
	case S24, S32, F32:
		return 4
	case F64:
		return 8
	default:
		panic(fmt.Sprintf("audioformat: unknown sample format %d", f))
	}
}

func (f SampleFormat) String() string {
	switch f {
	case S16:
		return "s16"
	case S24:
		return "s24"
	case S32:
		return "s32"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

// ParseFormat maps the config-file format names from spec.md §6 to a
// SampleFormat.
func ParseFormat(name string) (SampleFormat, error) {
	switch name {
	case "s16":
		return S16, nil
	case "s24":
		return S24, nil
	case "s32":
		return S32, nil
	case "f32":
		return F32, nil
	case "f64":
		return F64, nil
	default:
		return 0, fmt.Errorf("audioformat: unknown sample format %q", name)
	}
}

// Arrangement is the channel layout of a buffer's byte regions.
type Arrangement int

const (
	Interleaved Arrangement = iota
	Planar
)

// ChannelLayout names the channel count and the semantic identity of each
// channel (left, right, center, ...). Identifiers beyond the well-known
// set are accepted as opaque labels.
type ChannelLayout struct {
	Channels    int
	Identifiers []string
}

// MonoLayout is the 1-channel layout.
func MonoLayout() ChannelLayout { return ChannelLayout{Channels: 1, Identifiers: []string{"C"}} }

// StereoLayout is the 2-channel layout.
func StereoLayout() ChannelLayout {
	return ChannelLayout{Channels: 2, Identifiers: []string{"L", "R"}}
}

// ParseLayout maps the config-file layout names from spec.md §6 to a
// ChannelLayout. Only "mono", "stereo", "5.1" and "7.1" are recognized;
// any other name, including other "N.M" surround notations, returns an
// error.
func ParseLayout(name string) (ChannelLayout, error) {
	switch name {
	case "mono":
		return MonoLayout(), nil
	case "stereo":
		return StereoLayout(), nil
	case "5.1":
		return ChannelLayout{Channels: 6, Identifiers: []string{"L", "R", "C", "LFE", "SL", "SR"}}, nil
	case "7.1":
		return ChannelLayout{Channels: 8, Identifiers: []string{"L", "R", "C", "LFE", "SL", "SR", "BL", "BR"}}, nil
	default:
		return ChannelLayout{}, fmt.Errorf("audioformat: unknown channel layout %q", name)
	}
}
