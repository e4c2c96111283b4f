package devicestate

import "testing"

func TestChannelAddressesFollowRmeVocabulary(t *testing.T) {
	if got := ChannelVolumeAddress(RmeChannelInput, 3); got != "/3/input/volume" {
		t.Fatalf("got %q", got)
	}
	if got := ChannelMuteAddress(RmeChannelOutput, 1); got != "/1/output/mute" {
		t.Fatalf("got %q", got)
	}
	if got := ChannelPanAddress(RmeChannelPlayback, 0); got != "/0/playback/pan" {
		t.Fatalf("got %q", got)
	}
	if got := MatrixGainAddress(2, 5); got != "/matrix/volA/2/5" {
		t.Fatalf("got %q", got)
	}
}

func TestChannelSoloAddressRejectsOutputChannels(t *testing.T) {
	if _, err := ChannelSoloAddress(RmeChannelOutput, 0); err == nil {
		t.Fatal("expected an error for solo on an output channel")
	}
	if _, err := ChannelSoloAddress(RmeChannelInput, 0); err != nil {
		t.Fatalf("unexpected error for solo on an input channel: %v", err)
	}
}

func TestEncodePanClampsToUnitRange(t *testing.T) {
	if got := EncodePan(0); got != 0.5 {
		t.Fatalf("expected center pan to encode to 0.5, got %v", got)
	}
	if got := EncodePan(-5); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := EncodePan(5); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
}

func TestRmeFullStateAddressesCoversEveryChannelKind(t *testing.T) {
	addrs := RmeFullStateAddresses(2, 1, 2)

	want := map[string]bool{
		MainVolumeAddress:                   true,
		MainMuteAddress:                     true,
		ChannelVolumeAddress("input", 0):    true,
		ChannelVolumeAddress("input", 1):    true,
		ChannelMuteAddress("input", 0):      true,
		ChannelPanAddress("input", 0):       true,
		ChannelVolumeAddress("playback", 0): true,
		ChannelVolumeAddress("output", 0):   true,
		ChannelVolumeAddress("output", 1):   true,
	}
	got := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		got[a] = true
	}
	for a := range want {
		if !got[a] {
			t.Fatalf("expected %q in RmeFullStateAddresses output, got %v", a, addrs)
		}
	}

	// Output channels have no solo address.
	for _, a := range addrs {
		if a == "/0/output/solo" || a == "/1/output/solo" {
			t.Fatalf("did not expect a solo address for an output channel, got %q", a)
		}
	}
}
