package main

import (
	"errors"
	"testing"

	"github.com/kestrelaudio/audiograph/config"
	"github.com/kestrelaudio/audiograph/dspfilters"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func emptyOptions() *cliOptions {
	return &cliOptions{
		ConfigPath:  strPtr(""),
		Device:      strPtr(""),
		IP:          strPtr(""),
		Port:        intPtr(0),
		ReceivePort: intPtr(0),
		SampleRate:  intPtr(0),
		BufferSize:  intPtr(0),
		AutoConfig:  boolPtr(false),
		FFMPEGPath:  strPtr(""),
		Help:        boolPtr(false),
	}
}

func TestLoadConfigurationRequiresConfigOrAutoConfig(t *testing.T) {
	if _, err := loadConfiguration(emptyOptions()); err == nil {
		t.Fatal("expected an error when neither --config nor --auto-config is given")
	}
}

func TestLoadConfigurationAutoConfigBuildsDefaults(t *testing.T) {
	opts := emptyOptions()
	*opts.AutoConfig = true
	*opts.Device = "Focusrite"
	*opts.SampleRate = 96000

	cfg, err := loadConfiguration(opts)
	if err != nil {
		t.Fatalf("loadConfiguration: %v", err)
	}
	if cfg.ASIODeviceName != "Focusrite" {
		t.Fatalf("expected device override applied, got %q", cfg.ASIODeviceName)
	}
	if cfg.SampleRate != 96000 {
		t.Fatalf("expected sampleRate override applied, got %d", cfg.SampleRate)
	}
	if cfg.BufferSize != 512 {
		t.Fatalf("expected default bufferSize 512 untouched, got %d", cfg.BufferSize)
	}
}

func TestApplyOverridesOnlySetsExplicitFlags(t *testing.T) {
	cfg := &config.Configuration{
		ASIODeviceName: "original",
		TargetPort:     8000,
		SampleRate:     44100,
	}
	opts := emptyOptions()
	*opts.SampleRate = 48000

	applyOverrides(cfg, opts)

	if cfg.ASIODeviceName != "original" {
		t.Fatalf("expected untouched device name, got %q", cfg.ASIODeviceName)
	}
	if cfg.TargetPort != 8000 {
		t.Fatalf("expected untouched target port, got %d", cfg.TargetPort)
	}
	if cfg.SampleRate != 48000 {
		t.Fatalf("expected sampleRate override applied, got %d", cfg.SampleRate)
	}
}

func TestBuildFilterChainDefaultsToPassthrough(t *testing.T) {
	chain, err := buildFilterChain(config.NodeConfig{Name: "fx"})
	if err != nil {
		t.Fatalf("buildFilterChain: %v", err)
	}
	if _, ok := chain.(dspfilters.Passthrough); !ok {
		t.Fatalf("expected Passthrough, got %T", chain)
	}
}

func TestBuildFilterChainGainParsesParam(t *testing.T) {
	chain, err := buildFilterChain(config.NodeConfig{
		Name:        "fx",
		FilterGraph: "gain",
		Params:      map[string]string{"gain": "2.5"},
	})
	if err != nil {
		t.Fatalf("buildFilterChain: %v", err)
	}
	if _, ok := chain.(*dspfilters.Gain); !ok {
		t.Fatalf("expected *dspfilters.Gain, got %T", chain)
	}
}

func TestBuildFilterChainRejectsBadGainParam(t *testing.T) {
	_, err := buildFilterChain(config.NodeConfig{
		Name:        "fx",
		FilterGraph: "gain",
		Params:      map[string]string{"gain": "not-a-number"},
	})
	if err == nil {
		t.Fatal("expected an error for an unparseable gain param")
	}
}

func TestBuildFilterChainRejectsUnknownPlugin(t *testing.T) {
	_, err := buildFilterChain(config.NodeConfig{Name: "fx", FilterGraph: "convolution-reverb"})
	if err == nil {
		t.Fatal("expected an error for an unwired filter chain plugin name")
	}
}

func TestExitCodeForDistinguishesHardwareAndRuntimeErrors(t *testing.T) {
	hwErr := &hardwareError{errors.New("no device")}
	if got := exitCodeFor(hwErr); got != 2 {
		t.Fatalf("expected exit code 2 for hardware error, got %d", got)
	}
	rtErr := &runtimeError{errors.New("boom")}
	if got := exitCodeFor(rtErr); got != 3 {
		t.Fatalf("expected exit code 3 for runtime error, got %d", got)
	}
}

func TestBuildGraphRejectsUnknownNodeType(t *testing.T) {
	cfg := &config.Configuration{
		InternalFormat: config.FormatF32,
		InternalLayout: "stereo",
		SampleRate:     48000,
		BufferSize:     512,
		Nodes: []config.NodeConfig{
			{Name: "weird", Type: "teleporter"},
		},
	}
	if _, _, _, _, err := buildGraph(cfg, ""); err == nil {
		t.Fatal("expected an error for an unknown node type")
	}
}

func TestSplitGraphParamAddressParsesNodeAndParam(t *testing.T) {
	node, param, ok := splitGraphParamAddress("/graph/fx/gain")
	if !ok || node != "fx" || param != "gain" {
		t.Fatalf("expected (fx, gain, true), got (%q, %q, %v)", node, param, ok)
	}
}

func TestSplitGraphParamAddressRejectsMalformed(t *testing.T) {
	for _, addr := range []string{"/graph/fx", "/graph/fx/gain/extra", "/other/fx/gain", "graph/fx/gain"} {
		if _, _, ok := splitGraphParamAddress(addr); ok {
			t.Fatalf("expected %q to be rejected", addr)
		}
	}
}

func TestNewDaemonWiresGraphParamControlToEngine(t *testing.T) {
	cfg := &config.Configuration{
		InternalFormat: config.FormatF32,
		InternalLayout: "mono",
		SampleRate:     48000,
		BufferSize:     256,
		Nodes: []config.NodeConfig{
			{Name: "fx", Type: "filter_chain", FilterGraph: "gain", Params: map[string]string{"gain": "1"}},
		},
	}
	d, err := newDaemon(cfg, "")
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	ok, err := d.engine.QueueParam("fx", "gain", "3")
	if err != nil || !ok {
		t.Fatalf("QueueParam: ok=%v err=%v", ok, err)
	}
}

func TestRmeChannelCountsDerivedFromHardwareNodes(t *testing.T) {
	cfg := &config.Configuration{
		Nodes: []config.NodeConfig{
			{Name: "in", Type: "hardware_source", ChannelIndices: []int{0, 1}},
			{Name: "out", Type: "hardware_sink", ChannelIndices: []int{0, 1, 2}},
		},
	}
	inputs, outputs := rmeChannelCounts(cfg)
	if inputs != 2 || outputs != 3 {
		t.Fatalf("expected (2, 3), got (%d, %d)", inputs, outputs)
	}
}

func TestCommandAddressesIncludesRmeSweepForRmeDevice(t *testing.T) {
	cfg := &config.Configuration{
		DeviceType: config.DeviceTypeRmeTotalMix,
		Nodes: []config.NodeConfig{
			{Name: "in", Type: "hardware_source", ChannelIndices: []int{0}},
		},
		Commands: []config.ControlCommand{{Address: "/custom/address"}},
	}
	addrs := commandAddresses(cfg)

	seen := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		seen[a] = true
	}
	for _, want := range []string{"/custom/address", "/0/input/volume", "/main/volume"} {
		if !seen[want] {
			t.Fatalf("expected %q in commandAddresses output, got %v", want, addrs)
		}
	}
}

func TestCommandAddressesOmitsRmeSweepForGenericDevice(t *testing.T) {
	cfg := &config.Configuration{
		DeviceType: config.DeviceTypeGenericOSC,
		Nodes: []config.NodeConfig{
			{Name: "in", Type: "hardware_source", ChannelIndices: []int{0}},
		},
	}
	if addrs := commandAddresses(cfg); len(addrs) != 0 {
		t.Fatalf("expected no synthesized addresses for a generic device, got %v", addrs)
	}
}

func TestBuildGraphFileOnlyGraphUsesNullSession(t *testing.T) {
	cfg := &config.Configuration{
		InternalFormat: config.FormatF32,
		InternalLayout: "mono",
		SampleRate:     48000,
		BufferSize:     256,
		Nodes: []config.NodeConfig{
			{Name: "src", Type: "file_source", FilePath: "in.wav"},
			{Name: "snk", Type: "file_sink", FilePath: "out.wav"},
		},
		Connections: []config.ConnectionConfig{
			{SourceName: "src", SourcePad: 0, SinkName: "snk", SinkPad: 0},
		},
	}
	_, _, session, media, err := buildGraph(cfg, "")
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	if len(media) != 2 {
		t.Fatalf("expected 2 media components, got %d", len(media))
	}
	if _, ok := session.(interface{ BlockSize() int }); !ok {
		t.Fatal("expected session to expose BlockSize")
	}
}
