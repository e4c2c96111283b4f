package hardwaresession

import (
	"fmt"
	"sync"

	"github.com/kestrelaudio/audiograph/audioformat"
	"github.com/kestrelaudio/audiograph/graph"
)

// Bridge adapts a HardwareSession's block callback to the graph's
// process_block entry point (spec.md §4.2). It captures the active
// input/output channel index sets from the hardware-source and
// hardware-sink nodes, converts between the session's native
// per-channel regions for the current callback and the internal
// format, and hands out one graph.HardwarePuller/graph.HardwarePusher
// per channel group. It keeps no second buffer set of its own: each
// Pull allocates a fresh internal buffer and each Push writes straight
// into the session's output regions.
type Bridge struct {
	session HardwareSession

	blockSize  int
	sampleRate int

	mu         sync.Mutex
	currentIn  map[int][]byte
	currentOut map[int][]byte
}

// NewBridge wraps a loaded, initialized HardwareSession.
func NewBridge(session HardwareSession) *Bridge {
	return &Bridge{
		session:    session,
		blockSize:  session.BlockSize(),
		sampleRate: session.SampleRate(),
	}
}

// Attach registers the union of active channel indices with the
// session (spec.md §4.2: "calls prepare_buffers on the session with
// these sets").
func (b *Bridge) Attach(activeIn, activeOut []int) error {
	return b.session.PrepareBuffers(activeIn, activeOut)
}

// Run registers the callback that drives one process_block tick per
// hardware block, on the hardware driver's own thread. process is
// typically (*graph.Engine).ProcessBlock.
func (b *Bridge) Run(process func(bufferIndex int)) {
	b.session.RegisterCallback(func(bufferIndex int, inputs map[int][]byte, outputs map[int][]byte) {
		b.mu.Lock()
		b.currentIn = inputs
		b.currentOut = outputs
		b.mu.Unlock()
		process(bufferIndex)
	})
}

// ChannelGroupPuller returns a graph.HardwarePuller over the given
// native channel indices, converted to the internal format/layout on
// every Pull (spec.md §4.2 conversion rules).
func (b *Bridge) ChannelGroupPuller(indices []int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) graph.HardwarePuller {
	return &channelGroupPuller{bridge: b, indices: indices, format: format, layout: layout}
}

// ChannelGroupPusher returns a graph.HardwarePusher over the given
// native channel indices.
func (b *Bridge) ChannelGroupPusher(indices []int) graph.HardwarePusher {
	return &channelGroupPusher{bridge: b, indices: indices}
}

type channelGroupPuller struct {
	bridge  *Bridge
	indices []int
	format  audioformat.SampleFormat
	layout  audioformat.ChannelLayout
}

func (p *channelGroupPuller) Pull(bufferIndex int) (*audioformat.Buffer, error) {
	p.bridge.mu.Lock()
	in := p.bridge.currentIn
	p.bridge.mu.Unlock()

	native := p.bridge.session.NativeFormat()
	regions := make([][]byte, len(p.indices))
	for gi, idx := range p.indices {
		raw, ok := in[idx]
		if !ok {
			return nil, fmt.Errorf("hardwaresession: no input buffer for channel %d", idx)
		}
		regions[gi] = raw
	}
	src := &audioformat.Buffer{
		Frames: p.bridge.blockSize, Format: native, Arrangement: audioformat.Planar,
		Layout: audioformat.ChannelLayout{Channels: len(p.indices)}, SampleRate: p.bridge.sampleRate, Regions: regions,
	}
	dst := audioformat.NewBuffer(p.bridge.blockSize, p.format, audioformat.Interleaved, p.layout, p.bridge.sampleRate)
	if err := audioformat.Convert(dst, src); err != nil {
		return nil, fmt.Errorf("hardwaresession: convert input channel group: %w", err)
	}
	return dst, nil
}

type channelGroupPusher struct {
	bridge  *Bridge
	indices []int
}

func (p *channelGroupPusher) Push(bufferIndex int, buf *audioformat.Buffer) error {
	p.bridge.mu.Lock()
	out := p.bridge.currentOut
	p.bridge.mu.Unlock()

	native := p.bridge.session.NativeFormat()
	regions := make([][]byte, len(p.indices))
	for gi, idx := range p.indices {
		raw, ok := out[idx]
		if !ok {
			return fmt.Errorf("hardwaresession: no output buffer for channel %d", idx)
		}
		regions[gi] = raw
	}
	dst := &audioformat.Buffer{
		Frames: p.bridge.blockSize, Format: native, Arrangement: audioformat.Planar,
		Layout: audioformat.ChannelLayout{Channels: len(p.indices)}, SampleRate: p.bridge.sampleRate, Regions: regions,
	}
	// More output channels than buf has: duplicate buf's first channel
	// into the rest, the named extra-channel policy spec.md §4.3 defines
	// rather than an ad hoc wrap.
	if err := audioformat.AdaptChannels(dst, buf, audioformat.DuplicateFirst); err != nil {
		return fmt.Errorf("hardwaresession: adapt output channel group: %w", err)
	}
	return nil
}
