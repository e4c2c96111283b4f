package config

import "testing"

const sampleJSON = `{
  "asioDeviceName": "Fireface UFX+",
  "deviceType": "RME_TOTALMIX",
  "sampleRate": 48000,
  "bufferSize": 256,
  "targetIp": "127.0.0.1",
  "targetPort": 7001,
  "receivePort": 9001,
  "internalFormat": "f32",
  "internalLayout": "stereo",
  "nodes": [
    { "name": "hw_in", "type": "hardware_source", "channelIndices": [0, 1] },
    { "name": "mix", "type": "mixer" },
    { "name": "hw_out", "type": "hardware_sink", "channelIndices": [0, 1] }
  ],
  "connections": [
    { "sourceName": "hw_in", "sourcePad": 0, "sinkName": "mix", "sinkPad": 0 },
    { "sourceName": "mix", "sourcePad": 0, "sinkName": "hw_out", "sinkPad": 0 }
  ],
  "commands": [
    { "address": "/1/channel/1/volume", "args": [0.8] }
  ]
}`

func TestFromJSONParsesValidConfig(t *testing.T) {
	cfg, err := FromJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if cfg.SampleRate != 48000 || cfg.BufferSize != 256 {
		t.Fatalf("unexpected rate/block size: %+v", cfg)
	}
	if len(cfg.Nodes) != 3 || len(cfg.Connections) != 2 || len(cfg.Commands) != 1 {
		t.Fatalf("unexpected shape: %+v", cfg)
	}
}

func TestValidateRejectsUnknownDeviceType(t *testing.T) {
	_, err := FromJSON([]byte(`{"deviceType": "BOGUS"}`))
	if err == nil {
		t.Fatalf("expected error for unknown deviceType")
	}
}

func TestValidateRejectsDuplicateNodeName(t *testing.T) {
	_, err := FromJSON([]byte(`{
		"nodes": [
			{"name": "a", "type": "mixer"},
			{"name": "a", "type": "mixer"}
		]
	}`))
	if err == nil {
		t.Fatalf("expected error for duplicate node name")
	}
}

func TestValidateRejectsConnectionToUnknownNode(t *testing.T) {
	_, err := FromJSON([]byte(`{
		"nodes": [{"name": "a", "type": "mixer"}],
		"connections": [{"sourceName": "a", "sinkName": "missing"}]
	}`))
	if err == nil {
		t.Fatalf("expected error for connection to unknown sink node")
	}
}

func TestValidateRejectsBadCommandAddress(t *testing.T) {
	_, err := FromJSON([]byte(`{"commands": [{"address": "no-leading-slash"}]}`))
	if err == nil {
		t.Fatalf("expected error for command address missing leading '/'")
	}
}
