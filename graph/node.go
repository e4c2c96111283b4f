// Package graph implements the real-time audio graph runtime: the node
// model, pad-based buffer handoff, topological scheduling of intermediate
// nodes, and the per-block pull/push cycle (spec.md §3, §4.1).
package graph

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kestrelaudio/audiograph/audioformat"
)

// Kind is one of the five node type tags spec.md §3 defines, plus the
// mixer kind this module adds to resolve the fan-in Open Question
// (SPEC_FULL.md §14.1).
type Kind string

const (
	KindHardwareSource Kind = "hardware_source"
	KindHardwareSink   Kind = "hardware_sink"
	KindFileSource     Kind = "file_source"
	KindFileSink       Kind = "file_sink"
	KindFilterChain    Kind = "filter_chain"
	KindMixer          Kind = "mixer"
)

// State is a node's lifecycle state (spec.md §3, §4.1).
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateStarted
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// TickContext carries the per-call state a processor needs that isn't
// part of its own buffers: which hardware double-buffer side is current.
type TickContext struct {
	BufferIndex int
}

// ParamUpdate is a single dynamic parameter change flowing from the
// control thread to the audio thread (spec.md §5). Delivered through a
// per-node buffered channel drained at the top of each process() call —
// the idiomatic-Go rendering of the source's lock-free SPSC queue.
type ParamUpdate struct {
	Name  string
	Value string
}

// processor is implemented by each concrete node kind. Graph and Engine
// drive nodes exclusively through this interface — the sum-type-over-kind
// translation of the source's AudioNode class hierarchy (spec.md §9: "no
// virtual dispatch required beyond what the sum-type match provides").
type processor interface {
	// configure validates params and pad counts against the node's
	// declared type; called once per configure_all, and again on any
	// hot-reconfigure while the node is not started.
	configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error
	start() error
	stop() error
	// process consumes inputs (nil entries mean "no upstream, treat as
	// silence") and must populate every entry of outputs; a processor
	// that cannot produce a real value for a pad must still write a
	// silence buffer there (spec.md §4.1 failure semantics). ctx carries
	// the current hardware double-buffer index for hardware-facing nodes.
	process(ctx TickContext, inputs []*audioformat.Buffer, outputs []*audioformat.Buffer) error
	inputPadCount() int
	outputPadCount() int
	// applyParam delivers one drained ParamUpdate to the processor, called
	// only from the audio thread at the top of process() (spec.md §5). A
	// processor that has nothing to do with runtime params embeds
	// baseProcessor's no-op.
	applyParam(name, value string) error
}

// Node is a named participant in the graph (spec.md §3).
type Node struct {
	Name string
	Kind Kind

	state        State
	proc         processor
	createdOrder int

	sampleRate int
	blockSize  int
	format     audioformat.SampleFormat
	layout     audioformat.ChannelLayout

	inputSlots  []*audioformat.Buffer
	outputSlots []*audioformat.Buffer
	refCounts   []int32

	params chan ParamUpdate

	// lastUnderrunLog rate-limits the buffer-underrun log line (spec.md
	// §7: "logged at rate-limited info level"). Touched only from the
	// audio thread inside ProcessBlock, so it needs no synchronization.
	lastUnderrunLog time.Time
}

// State returns the node's current lifecycle state.
func (n *Node) State() State { return n.state }

// InputPadCount returns the node's declared input pad count.
func (n *Node) InputPadCount() int { return len(n.inputSlots) }

// OutputPadCount returns the node's declared output pad count.
func (n *Node) OutputPadCount() int { return len(n.outputSlots) }

// OutputBuffer returns the buffer last published on the given output pad,
// or nil if nothing has been published yet this run. ProcessBlock uses
// it to copy a producer's output into each consumer's input slot; a
// hardware-sink node has no output pads, so read its consumed block
// with InputBuffer instead.
func (n *Node) OutputBuffer(pad int) (*audioformat.Buffer, error) {
	if pad < 0 || pad >= len(n.outputSlots) {
		return nil, fmt.Errorf("%w: node %q output pad %d", ErrPadIndexOutOfRange, n.Name, pad)
	}
	return n.outputSlots[pad], nil
}

// InputBuffer returns the buffer currently occupying the given input
// pad's slot (the latest value copied in from its producer this tick),
// or nil if the pad is unconnected.
func (n *Node) InputBuffer(pad int) (*audioformat.Buffer, error) {
	if pad < 0 || pad >= len(n.inputSlots) {
		return nil, fmt.Errorf("%w: node %q input pad %d", ErrPadIndexOutOfRange, n.Name, pad)
	}
	return n.inputSlots[pad], nil
}

// PublishOutput sets an output pad's published buffer directly, outside
// of process(). Nothing in this module calls it: hardware_source nodes
// publish their block from their HardwarePuller inside ProcessBlock.
func (n *Node) PublishOutput(pad int, buf *audioformat.Buffer) error {
	if pad < 0 || pad >= len(n.outputSlots) {
		return fmt.Errorf("%w: node %q output pad %d", ErrPadIndexOutOfRange, n.Name, pad)
	}
	n.outputSlots[pad] = buf
	return nil
}

// QueueParam enqueues a parameter update for the node's next process()
// call. Non-blocking: if the queue is full the update is dropped and the
// caller is told so, matching the real-time thread's "never block"
// contract (spec.md §5).
func (n *Node) QueueParam(name, value string) bool {
	select {
	case n.params <- ParamUpdate{Name: name, Value: value}:
		return true
	default:
		return false
	}
}

func (n *Node) drainParams() []ParamUpdate {
	var updates []ParamUpdate
	for {
		select {
		case u := <-n.params:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func (n *Node) incRef(pad int) {
	if pad >= 0 && pad < len(n.refCounts) {
		atomic.AddInt32(&n.refCounts[pad], 1)
	}
}

func (n *Node) decRef(pad int) {
	if pad >= 0 && pad < len(n.refCounts) {
		atomic.AddInt32(&n.refCounts[pad], -1)
	}
}
