package devicestate

import "fmt"

// RME TotalMix channel kinds, matching RmeOscCommands.cpp's
// channelType switch (0=input, 1=playback, 2=output).
const (
	RmeChannelInput    = "input"
	RmeChannelPlayback = "playback"
	RmeChannelOutput   = "output"
)

// ChannelVolumeAddress returns the per-channel volume address RME
// TotalMix FX uses, e.g. "/3/input/volume" for input channel 3
// (RmeOscCommands.cpp's setChannelVolume address format).
func ChannelVolumeAddress(kind string, channel int) string {
	return fmt.Sprintf("/%d/%s/volume", channel, kind)
}

// ChannelMuteAddress mirrors ChannelVolumeAddress for the mute toggle.
func ChannelMuteAddress(kind string, channel int) string {
	return fmt.Sprintf("/%d/%s/mute", channel, kind)
}

// ChannelSoloAddress mirrors ChannelVolumeAddress for the solo
// toggle. RME TotalMix FX has no solo for output channels
// (RmeOscCommands.cpp: "Solo is not available for output channels").
func ChannelSoloAddress(kind string, channel int) (string, error) {
	if kind == RmeChannelOutput {
		return "", fmt.Errorf("devicestate: solo is not available for RME output channels")
	}
	return fmt.Sprintf("/%d/%s/solo", channel, kind), nil
}

// ChannelPanAddress mirrors ChannelVolumeAddress for pan.
func ChannelPanAddress(kind string, channel int) string {
	return fmt.Sprintf("/%d/%s/pan", channel, kind)
}

// MatrixGainAddress returns the crosspoint gain address for routing
// sourceChannel into destChannel on TotalMix FX's matrix (volA page),
// matching RmeOscCommands.cpp's setMatrixGain.
func MatrixGainAddress(sourceChannel, destChannel int) string {
	return fmt.Sprintf("/matrix/volA/%d/%d", sourceChannel, destChannel)
}

// MainVolumeAddress is TotalMix FX's master output volume.
const MainVolumeAddress = "/main/volume"

// MainMuteAddress is TotalMix FX's master output mute.
const MainMuteAddress = "/main/mute"

// EncodePan maps a [-1, 1] pan value to RME's 0-1 range (0.5 is
// center), matching RmeOscCommands.cpp's setChannelPan.
func EncodePan(pan float32) float32 {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	return (pan + 1) * 0.5
}

// EncodeBool maps a boolean toggle (mute, solo, phantom power) to the
// 0.0/1.0 float RME's OSC vocabulary expects.
func EncodeBool(v bool) float32 {
	if v {
		return 1
	}
	return 0
}

// RmeFullStateAddresses synthesizes the per-channel query sweep
// spec.md §4.6 describes for a TotalMix FX device ("a batch of
// per-parameter queries (e.g., per-channel volume/mute/pan)"), given
// the channel count for each of the three RME channel kinds. Solo is
// omitted for output channels, matching ChannelSoloAddress's own
// restriction.
func RmeFullStateAddresses(inputChannels, playbackChannels, outputChannels int) []string {
	addrs := []string{MainVolumeAddress, MainMuteAddress}
	kinds := []struct {
		kind string
		n    int
	}{
		{RmeChannelInput, inputChannels},
		{RmeChannelPlayback, playbackChannels},
		{RmeChannelOutput, outputChannels},
	}
	for _, k := range kinds {
		for ch := 0; ch < k.n; ch++ {
			addrs = append(addrs, ChannelVolumeAddress(k.kind, ch))
			addrs = append(addrs, ChannelMuteAddress(k.kind, ch))
			addrs = append(addrs, ChannelPanAddress(k.kind, ch))
			if soloAddr, err := ChannelSoloAddress(k.kind, ch); err == nil {
				addrs = append(addrs, soloAddr)
			}
		}
	}
	return addrs
}
