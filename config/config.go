// Package config decodes and validates the JSON configuration file
// describing a graph, its hardware/file endpoints, and the device
// control plane (spec.md §6).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Configuration is the top-level document spec.md §6 defines.
type Configuration struct {
	ASIODeviceName string             `json:"asioDeviceName"`
	DeviceType     string             `json:"deviceType"`
	SampleRate     int                `json:"sampleRate"`
	BufferSize     int                `json:"bufferSize"`
	TargetIP       string             `json:"targetIp"`
	TargetPort     int                `json:"targetPort"`
	ReceivePort    int                `json:"receivePort"`
	InternalFormat string             `json:"internalFormat"`
	InternalLayout string             `json:"internalLayout"`
	Nodes          []NodeConfig       `json:"nodes"`
	Connections    []ConnectionConfig `json:"connections"`
	Commands       []ControlCommand   `json:"commands"`
}

// NodeConfig describes one graph node to build (spec.md §6 "nodes").
type NodeConfig struct {
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Params         map[string]string `json:"params"`
	ChannelIndices []int             `json:"channelIndices"`
	FilterGraph    string            `json:"filterGraph,omitempty"`
	FilePath       string            `json:"filePath,omitempty"`
}

// ConnectionConfig describes one pad-to-pad connection to make (spec.md
// §6 "connections").
type ConnectionConfig struct {
	SourceName       string `json:"sourceName"`
	SourcePad        int    `json:"sourcePad"`
	SinkName         string `json:"sinkName"`
	SinkPad          int    `json:"sinkPad"`
	FormatConversion bool   `json:"formatConversion"`
}

// ControlCommand is a single OSC message to send once the graph is
// running, e.g. to prime device state (spec.md §6 "commands").
type ControlCommand struct {
	Address string        `json:"address"`
	Args    []interface{} `json:"args"`
}

// Valid device types for DeviceType.
const (
	DeviceTypeASIO        = "ASIO"
	DeviceTypeGenericOSC  = "GENERIC_OSC"
	DeviceTypeRmeTotalMix = "RME_TOTALMIX"
)

// Valid internal sample formats for InternalFormat.
const (
	FormatF32 = "f32"
	FormatF64 = "f64"
	FormatS16 = "s16"
	FormatS32 = "s32"
)

// Load reads and validates a Configuration from a JSON file at path,
// grounded on api.ShaderFromID's read-then-unmarshal-then-validate
// shape.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// FromJSON decodes and validates a Configuration from raw JSON bytes.
func FromJSON(data []byte) (*Configuration, error) {
	var cfg Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields Load/FromJSON cannot verify via JSON
// tags alone: required fields, enum membership, and basic numeric
// sanity. It is run explicitly after unmarshal rather than through a
// custom UnmarshalJSON, matching api.ShaderArgsFromJSON's
// decode-then-check style.
func (c *Configuration) Validate() error {
	switch c.DeviceType {
	case DeviceTypeASIO, DeviceTypeGenericOSC, DeviceTypeRmeTotalMix, "":
	default:
		return fmt.Errorf("config: unknown deviceType %q", c.DeviceType)
	}
	switch c.InternalFormat {
	case FormatF32, FormatF64, FormatS16, FormatS32, "":
	default:
		return fmt.Errorf("config: unknown internalFormat %q", c.InternalFormat)
	}
	if c.SampleRate < 0 {
		return fmt.Errorf("config: sampleRate must be non-negative, got %d", c.SampleRate)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("config: bufferSize must be non-negative, got %d", c.BufferSize)
	}

	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.Name == "" {
			return fmt.Errorf("config: node missing name")
		}
		if seen[n.Name] {
			return fmt.Errorf("config: duplicate node name %q", n.Name)
		}
		seen[n.Name] = true
		if n.Type == "" {
			return fmt.Errorf("config: node %q missing type", n.Name)
		}
	}
	for _, conn := range c.Connections {
		if !seen[conn.SourceName] {
			return fmt.Errorf("config: connection references unknown source node %q", conn.SourceName)
		}
		if !seen[conn.SinkName] {
			return fmt.Errorf("config: connection references unknown sink node %q", conn.SinkName)
		}
	}
	for _, cmd := range c.Commands {
		if cmd.Address == "" || cmd.Address[0] != '/' {
			return fmt.Errorf("config: command address must start with '/', got %q", cmd.Address)
		}
	}
	return nil
}
