// Package dspfilters supplies the stub graph.FilterChain
// implementations cmd/audiographd falls back to when a config's
// filter_chain node names no external plugin in filterGraph (spec.md
// §1 Non-goals: "no built-in DSP algorithms beyond the FilterChain
// capability interface"). These are deliberately minimal — a real
// deployment supplies its own FilterChain, loaded the way
// filterGraph's string names a plugin.
package dspfilters

import (
	"fmt"
	"strconv"

	"github.com/kestrelaudio/audiograph/audioformat"
)

// Passthrough returns its input unchanged; the default FilterChain
// for a filter_chain node with no filterGraph configured, standing in
// the way nupi-ai-plugin-vad-local-silero's StubEngine stands in for
// the real Silero model until one is wired up.
type Passthrough struct{}

func (Passthrough) Process(buf *audioformat.Buffer) (*audioformat.Buffer, error) { return buf, nil }
func (Passthrough) SetParam(string, string) error                               { return nil }

// Gain scales every sample by a single scalar, adjustable at runtime
// via SetParam("gain", "<float>") — the minimal filter_chain capable
// of exercising the parameter-update queue path (spec.md §5 "a filter
// chain setting a gain").
type Gain struct {
	factor float64
}

// NewGain returns a Gain filter chain with the given initial scalar.
func NewGain(factor float64) *Gain {
	return &Gain{factor: factor}
}

func (g *Gain) Process(buf *audioformat.Buffer) (*audioformat.Buffer, error) {
	if g.factor == 1 {
		return buf, nil
	}
	out := audioformat.NewBuffer(buf.Frames, buf.Format, buf.Arrangement, buf.Layout, buf.SampleRate)
	for ch := 0; ch < buf.Layout.Channels; ch++ {
		for frame := 0; frame < buf.Frames; frame++ {
			out.WriteSample(ch, frame, buf.ReadSample(ch, frame)*g.factor)
		}
	}
	return out, nil
}

func (g *Gain) SetParam(name, value string) error {
	if name != "gain" {
		return fmt.Errorf("dspfilters: gain filter chain has no parameter %q", name)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("dspfilters: parse gain %q: %w", value, err)
	}
	g.factor = f
	return nil
}
