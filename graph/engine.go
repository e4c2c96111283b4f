package graph

import (
	"fmt"
	"log"
	"time"

	"github.com/kestrelaudio/audiograph/audioformat"
)

// underrunLogInterval bounds how often a single node logs a buffer
// underrun (spec.md §7: "logged at rate-limited info level").
const underrunLogInterval = time.Second

// hadSignal reports whether any of a node's inputs this tick carried
// audible content, as opposed to being unconnected or already silent.
// Used to skip the underrun log when the output it replaces would have
// been silence anyway (audioformat.Buffer.IsSilent).
func hadSignal(inputs []*audioformat.Buffer) bool {
	for _, buf := range inputs {
		if buf != nil && !buf.IsSilent(0) {
			return true
		}
	}
	return false
}

// Engine owns a Graph plus the run-time state spec.md §4.1 describes:
// the configured shape, the cached process order, and the lifecycle
// gate (start/stop must run every node in the right direction).
type Engine struct {
	Graph *Graph

	sampleRate int
	blockSize  int
	format     audioformat.SampleFormat
	layout     audioformat.ChannelLayout

	configured bool
	running    bool

	order []string
}

// NewEngine returns an Engine over an empty Graph.
func NewEngine() *Engine {
	return &Engine{Graph: NewGraph()}
}

// CreateNode adds a node of the given kind with the given pad counts,
// wiring it to a capability value whose concrete type must match kind:
//
//	KindHardwareSource -> []HardwarePuller (len == numOutputs)
//	KindHardwareSink   -> []HardwarePusher (len == numInputs)
//	KindFileSource     -> []FileSource (len == numOutputs)
//	KindFileSink       -> []FileSink (len == numInputs)
//	KindFilterChain    -> FilterChain
//	KindMixer          -> nil (no external capability needed)
func (e *Engine) CreateNode(name string, kind Kind, numInputs, numOutputs int, capability interface{}) (*Node, error) {
	if e.running {
		return nil, ErrAlreadyRunning
	}
	base := baseProcessor{numInputs: numInputs, numOutputs: numOutputs}

	var proc processor
	switch kind {
	case KindHardwareSource:
		pullers, ok := capability.([]HardwarePuller)
		if !ok {
			return nil, fmt.Errorf("%w: hardware_source %q needs []HardwarePuller", ErrUnknownType, name)
		}
		proc = &hardwareSourceProcessor{baseProcessor: base, pullers: pullers}
	case KindHardwareSink:
		pushers, ok := capability.([]HardwarePusher)
		if !ok {
			return nil, fmt.Errorf("%w: hardware_sink %q needs []HardwarePusher", ErrUnknownType, name)
		}
		proc = &hardwareSinkProcessor{baseProcessor: base, pushers: pushers}
	case KindFileSource:
		sources, ok := capability.([]FileSource)
		if !ok {
			return nil, fmt.Errorf("%w: file_source %q needs []FileSource", ErrUnknownType, name)
		}
		proc = &fileSourceProcessor{baseProcessor: base, sources: sources}
	case KindFileSink:
		sinks, ok := capability.([]FileSink)
		if !ok {
			return nil, fmt.Errorf("%w: file_sink %q needs []FileSink", ErrUnknownType, name)
		}
		proc = &fileSinkProcessor{baseProcessor: base, sinks: sinks}
	case KindFilterChain:
		chain, ok := capability.(FilterChain)
		if !ok {
			return nil, fmt.Errorf("%w: filter_chain %q needs a FilterChain", ErrUnknownType, name)
		}
		proc = &filterChainProcessor{baseProcessor: base, chain: chain}
	case KindMixer:
		proc = &mixerProcessor{baseProcessor: base}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}

	n := &Node{
		Name:        name,
		Kind:        kind,
		state:       StateCreated,
		proc:        proc,
		inputSlots:  make([]*audioformat.Buffer, numInputs),
		outputSlots: make([]*audioformat.Buffer, numOutputs),
		refCounts:   make([]int32, numOutputs),
		params:      make(chan ParamUpdate, 32),
	}
	if err := e.Graph.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Connect wires an edge between two existing nodes (spec.md §4.1).
func (e *Engine) Connect(fromNode string, fromPad int, toNode string, toPad int) error {
	if e.running {
		return ErrAlreadyRunning
	}
	return e.Graph.Connect(fromNode, fromPad, toNode, toPad)
}

// QueueParam is the control thread's entry point for a runtime
// parameter change on a named node (spec.md §5): it enqueues onto that
// node's SPSC queue without touching the node's processor directly, so
// the only thread that ever calls into a processor's state is the
// audio thread draining the queue inside ProcessBlock. Returns false
// if the node's queue is full (the update is dropped, matching the
// audio thread's non-blocking contract) or an error if node isn't found.
func (e *Engine) QueueParam(nodeName, name, value string) (bool, error) {
	n, err := e.Graph.Node(nodeName)
	if err != nil {
		return false, err
	}
	return n.QueueParam(name, value), nil
}

// ConfigureAll propagates (sample_rate, block_size, format, layout) to
// every node, failing with the first node failure (spec.md §4.1).
func (e *Engine) ConfigureAll(sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	if e.running {
		return ErrBusy
	}
	for _, name := range e.Graph.order {
		n := e.Graph.nodes[name]
		if n.state == StateStarted {
			return fmt.Errorf("%w: node %q", ErrBusy, name)
		}
	}
	order, err := e.Graph.ProcessOrder()
	if err != nil {
		return err
	}
	for _, name := range order {
		n := e.Graph.nodes[name]
		if err := n.proc.configure(nil, sampleRate, blockSize, format, layout); err != nil {
			return fmt.Errorf("graph: configure node %q: %w", name, err)
		}
		n.sampleRate, n.blockSize, n.format, n.layout = sampleRate, blockSize, format, layout
		n.state = StateConfigured
	}
	e.sampleRate, e.blockSize, e.format, e.layout = sampleRate, blockSize, format, layout
	e.configured = true
	e.order = order
	return nil
}

// Start transitions every node, sources -> intermediates -> sinks
// (spec.md §4.1).
func (e *Engine) Start() error {
	if e.running {
		return ErrAlreadyRunning
	}
	if !e.configured {
		return ErrNotConfigured
	}
	for _, name := range e.order {
		n := e.Graph.nodes[name]
		if n.state != StateConfigured && n.state != StateStopped {
			return fmt.Errorf("%w: node %q", ErrNotConfigured, name)
		}
	}
	for _, name := range e.order {
		n := e.Graph.nodes[name]
		if err := n.proc.start(); err != nil {
			// unwind anything already started
			for _, started := range e.order {
				if started == name {
					break
				}
				_ = e.Graph.nodes[started].proc.stop()
				e.Graph.nodes[started].state = StateStopped
			}
			return fmt.Errorf("graph: start node %q: %w", name, err)
		}
		n.state = StateStarted
	}
	e.running = true
	return nil
}

// Stop transitions every node in reverse start order (spec.md §4.1).
func (e *Engine) Stop() error {
	if !e.running {
		return nil
	}
	for i := len(e.order) - 1; i >= 0; i-- {
		n := e.Graph.nodes[e.order[i]]
		if err := n.proc.stop(); err != nil {
			log.Printf("graph: stop node %q: %v", n.Name, err)
		}
		n.state = StateStopped
	}
	e.running = false
	return nil
}

// ProcessBlock runs one tick of the pull/push cycle (spec.md §4.1,
// steps 1-5). Per-node failures are logged and that node's outputs are
// left/forced to silence; the tick never aborts.
func (e *Engine) ProcessBlock(bufferIndex int) {
	ctx := TickContext{BufferIndex: bufferIndex}
	for _, name := range e.order {
		n := e.Graph.nodes[name]

		for _, u := range n.drainParams() {
			if err := n.proc.applyParam(u.Name, u.Value); err != nil {
				log.Printf("graph: apply param %q on node %q: %v", u.Name, n.Name, err)
			}
		}

		for pad := range n.inputSlots {
			if conn, ok := e.Graph.Incoming(name, pad); ok {
				producer := e.Graph.nodes[conn.FromNode]
				buf, err := producer.OutputBuffer(conn.FromPad)
				if err != nil {
					buf = nil
				}
				n.inputSlots[pad] = buf
			} else {
				n.inputSlots[pad] = nil
			}
		}

		if err := n.proc.process(ctx, n.inputSlots, n.outputSlots); err != nil {
			log.Printf("graph: process node %q: %v", name, err)
		}
		signal := hadSignal(n.inputSlots)
		for pad := range n.outputSlots {
			if n.outputSlots[pad] == nil {
				n.outputSlots[pad] = audioformat.SilenceBuffer(e.blockSize, e.format, audioformat.Interleaved, e.layout, e.sampleRate)
				// Only worth a log if real content was lost; an
				// already-silent input producing silence isn't an
				// underrun worth flagging (spec.md §7).
				if signal && time.Since(n.lastUnderrunLog) >= underrunLogInterval {
					log.Printf("graph: node %q pad %d underrun, filled with silence", name, pad)
					n.lastUnderrunLog = time.Now()
				}
			}
		}
	}
}
