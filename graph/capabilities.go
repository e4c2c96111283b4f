package graph

import "github.com/kestrelaudio/audiograph/audioformat"

// FilterChain is the external DSP capability a filter_chain node
// delegates to (spec.md §1 Non-goals: "no built-in DSP algorithms;
// filters are delegated to an external filter chain capability").
type FilterChain interface {
	Process(buf *audioformat.Buffer) (*audioformat.Buffer, error)
	SetParam(name, value string) error
}

// HardwarePuller is what a hardware_source node's single output pad
// pulls from: the hardware session's input regions for one channel
// group in the current callback, format-converted to the node's
// internal format (spec.md §4.2).
type HardwarePuller interface {
	Pull(bufferIndex int) (*audioformat.Buffer, error)
}

// HardwarePusher is what a hardware_sink node's single input pad
// pushes to.
type HardwarePusher interface {
	Push(bufferIndex int, buf *audioformat.Buffer) error
}

// FileSource is the asynchronous reader side of a file_source node
// (spec.md §5: "internal reader thread supplies buffers asynchronously;
// [process] simply observes the latest"). TryRead must never block and
// returns nil when no block is ready yet.
type FileSource interface {
	TryRead() *audioformat.Buffer
}

// FileSink is the write-queue side of a file_sink node. Enqueue must
// never block; a full queue drops the block and returns false rather
// than applying back-pressure to the audio thread.
type FileSink interface {
	Enqueue(buf *audioformat.Buffer) bool
}
