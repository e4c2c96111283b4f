package graph

import (
	"fmt"

	"github.com/kestrelaudio/audiograph/audioformat"
)

// baseProcessor holds the configure-time shape every concrete processor
// needs (sample rate, block size, internal format/layout) plus the
// pad counts fixed at construction. Embedding it keeps each concrete
// processor's configure() a one-liner.
type baseProcessor struct {
	numInputs, numOutputs int
	sampleRate, blockSize int
	format                audioformat.SampleFormat
	layout                audioformat.ChannelLayout
}

func (b *baseProcessor) inputPadCount() int  { return b.numInputs }
func (b *baseProcessor) outputPadCount() int { return b.numOutputs }

// applyParam is the no-op default for processors with no runtime
// parameters; filterChainProcessor overrides it.
func (b *baseProcessor) applyParam(name, value string) error { return nil }

func (b *baseProcessor) silence() *audioformat.Buffer {
	return audioformat.SilenceBuffer(b.blockSize, b.format, audioformat.Interleaved, b.layout, b.sampleRate)
}

// hardwareSourceProcessor pulls from one HardwarePuller per output pad
// (spec.md §4.1 step 1).
type hardwareSourceProcessor struct {
	baseProcessor
	pullers []HardwarePuller
	onError func(pad int, err error)
}

func (p *hardwareSourceProcessor) configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	if len(p.pullers) != p.numOutputs {
		return fmt.Errorf("graph: hardware source configured with %d pullers for %d output pads", len(p.pullers), p.numOutputs)
	}
	p.sampleRate, p.blockSize, p.format, p.layout = sampleRate, blockSize, format, layout
	return nil
}
func (p *hardwareSourceProcessor) start() error { return nil }
func (p *hardwareSourceProcessor) stop() error  { return nil }
func (p *hardwareSourceProcessor) process(ctx TickContext, _ []*audioformat.Buffer, outputs []*audioformat.Buffer) error {
	for i, puller := range p.pullers {
		buf, err := puller.Pull(ctx.BufferIndex)
		if err != nil || buf == nil {
			if err != nil && p.onError != nil {
				p.onError(i, err)
			}
			outputs[i] = p.silence()
			continue
		}
		outputs[i] = buf
	}
	return nil
}

// hardwareSinkProcessor pushes one input pad per HardwarePusher
// (spec.md §4.1 step 3).
type hardwareSinkProcessor struct {
	baseProcessor
	pushers []HardwarePusher
	onError func(pad int, err error)
}

func (p *hardwareSinkProcessor) configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	if len(p.pushers) != p.numInputs {
		return fmt.Errorf("graph: hardware sink configured with %d pushers for %d input pads", len(p.pushers), p.numInputs)
	}
	p.sampleRate, p.blockSize, p.format, p.layout = sampleRate, blockSize, format, layout
	return nil
}
func (p *hardwareSinkProcessor) start() error { return nil }
func (p *hardwareSinkProcessor) stop() error  { return nil }
func (p *hardwareSinkProcessor) process(ctx TickContext, inputs []*audioformat.Buffer, _ []*audioformat.Buffer) error {
	for i, pusher := range p.pushers {
		buf := inputs[i]
		if buf == nil {
			buf = p.silence()
		}
		if err := pusher.Push(ctx.BufferIndex, buf); err != nil && p.onError != nil {
			p.onError(i, err)
		}
	}
	return nil
}

// fileSourceProcessor observes the latest block from its reader thread
// per output pad (spec.md §4.1 step 4, §5).
type fileSourceProcessor struct {
	baseProcessor
	sources []FileSource
}

func (p *fileSourceProcessor) configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	if len(p.sources) != p.numOutputs {
		return fmt.Errorf("graph: file source configured with %d sources for %d output pads", len(p.sources), p.numOutputs)
	}
	p.sampleRate, p.blockSize, p.format, p.layout = sampleRate, blockSize, format, layout
	return nil
}
func (p *fileSourceProcessor) start() error { return nil }
func (p *fileSourceProcessor) stop() error  { return nil }
func (p *fileSourceProcessor) process(_ TickContext, _ []*audioformat.Buffer, outputs []*audioformat.Buffer) error {
	for i, src := range p.sources {
		if buf := src.TryRead(); buf != nil {
			outputs[i] = buf
		} else {
			outputs[i] = p.silence()
		}
	}
	return nil
}

// fileSinkProcessor enqueues each input pad's block onto its writer
// thread's queue (spec.md §4.1 step 5, §5).
type fileSinkProcessor struct {
	baseProcessor
	sinks []FileSink
}

func (p *fileSinkProcessor) configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	if len(p.sinks) != p.numInputs {
		return fmt.Errorf("graph: file sink configured with %d sinks for %d input pads", len(p.sinks), p.numInputs)
	}
	p.sampleRate, p.blockSize, p.format, p.layout = sampleRate, blockSize, format, layout
	return nil
}
func (p *fileSinkProcessor) start() error { return nil }
func (p *fileSinkProcessor) stop() error  { return nil }
func (p *fileSinkProcessor) process(_ TickContext, inputs []*audioformat.Buffer, _ []*audioformat.Buffer) error {
	for i, sink := range p.sinks {
		buf := inputs[i]
		if buf == nil {
			buf = p.silence()
		}
		sink.Enqueue(buf)
	}
	return nil
}

// filterChainProcessor delegates a single input/output pad pair to an
// external FilterChain capability (spec.md §1: "no built-in DSP
// algorithms; filters are delegated to an external filter chain
// capability").
type filterChainProcessor struct {
	baseProcessor
	chain FilterChain
}

func (p *filterChainProcessor) configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	p.sampleRate, p.blockSize, p.format, p.layout = sampleRate, blockSize, format, layout
	for name, value := range params {
		if err := p.chain.SetParam(name, value); err != nil {
			return fmt.Errorf("graph: filter chain rejected param %q: %w", name, err)
		}
	}
	return nil
}
func (p *filterChainProcessor) start() error { return nil }
func (p *filterChainProcessor) stop() error  { return nil }

// applyParam is the delivery point for the per-node ParamUpdate queue
// (spec.md §5): called from process()'s caller on the audio thread, so
// chain.SetParam never races chain.Process.
func (p *filterChainProcessor) applyParam(name, value string) error {
	return p.chain.SetParam(name, value)
}

func (p *filterChainProcessor) process(_ TickContext, inputs []*audioformat.Buffer, outputs []*audioformat.Buffer) error {
	in := inputs[0]
	if in == nil {
		in = p.silence()
	}
	out, err := p.chain.Process(in)
	if err != nil || out == nil {
		outputs[0] = p.silence()
		return err
	}
	outputs[0] = out
	return nil
}

// mixerProcessor sums every input pad into its single output pad,
// resolving the fan-in Open Question (SPEC_FULL.md §14.1): a hardware
// output pad never sums multiple producers by itself — a dedicated
// mixer node does.
type mixerProcessor struct {
	baseProcessor
}

func (p *mixerProcessor) configure(params map[string]string, sampleRate, blockSize int, format audioformat.SampleFormat, layout audioformat.ChannelLayout) error {
	p.sampleRate, p.blockSize, p.format, p.layout = sampleRate, blockSize, format, layout
	return nil
}
func (p *mixerProcessor) start() error { return nil }
func (p *mixerProcessor) stop() error  { return nil }
func (p *mixerProcessor) process(_ TickContext, inputs []*audioformat.Buffer, outputs []*audioformat.Buffer) error {
	mix := p.silence()
	ch := p.layout.Channels
	for _, in := range inputs {
		if in == nil {
			continue
		}
		n := ch
		if in.Layout.Channels < n {
			n = in.Layout.Channels
		}
		for c := 0; c < n; c++ {
			for frame := 0; frame < p.blockSize; frame++ {
				sum := mix.ReadSample(c, frame) + in.ReadSample(c, frame)
				mix.WriteSample(c, frame, sum)
			}
		}
	}
	outputs[0] = mix
	return nil
}
