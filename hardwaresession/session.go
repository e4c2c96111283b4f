// Package hardwaresession implements the hardware session bridge: the
// adapter between a loaded driver's block callback and the graph's
// process_block entry point, including the double buffering and
// sample-format conversion spec.md §4.2 describes.
package hardwaresession

import (
	"errors"

	"github.com/kestrelaudio/audiograph/audioformat"
)

var (
	ErrNotLoaded       = errors.New("hardwaresession: session not loaded")
	ErrAlreadyRunning  = errors.New("hardwaresession: session already running")
	ErrNotRunning      = errors.New("hardwaresession: session not running")
	ErrUnsupportedRate = errors.New("hardwaresession: sample rate not supported by device")
)

// BlockCallback is invoked once per hardware block with the current
// double-buffer side and the native-format byte slice for every active
// channel (spec.md §3 glossary: "opaque per-channel buffer pointers of
// the session's native sample format").
type BlockCallback func(bufferIndex int, inputs map[int][]byte, outputs map[int][]byte)

// HardwareSession is the external capability the bridge adapts (spec.md
// §3 glossary). The core makes no assumption about which concrete
// driver backs it.
type HardwareSession interface {
	Load(name string) error
	Initialize(preferredRate, preferredBlockSize int) error
	ChannelCounts() (in, out int)
	SupportedRates() []int
	PrepareBuffers(activeIn, activeOut []int) error
	Start() error
	Stop() error
	RegisterCallback(cb BlockCallback)
	NativeFormat() audioformat.SampleFormat
	BlockSize() int
	SampleRate() int
}
