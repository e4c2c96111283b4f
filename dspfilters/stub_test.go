package dspfilters

import (
	"testing"

	"github.com/kestrelaudio/audiograph/audioformat"
)

func TestGainScalesSamples(t *testing.T) {
	buf := audioformat.NewBuffer(4, audioformat.F32, audioformat.Planar, audioformat.MonoLayout(), 48000)
	buf.WriteSample(0, 0, 0.5)

	g := NewGain(2.0)
	out, err := g.Process(buf)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := out.ReadSample(0, 0); got < 0.999 || got > 1.001 {
		t.Fatalf("expected doubled sample ~1.0, got %v", got)
	}
}

func TestGainSetParamUpdatesFactor(t *testing.T) {
	g := NewGain(1.0)
	if err := g.SetParam("gain", "0.5"); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	buf := audioformat.NewBuffer(1, audioformat.F32, audioformat.Planar, audioformat.MonoLayout(), 48000)
	buf.WriteSample(0, 0, 1.0)
	out, _ := g.Process(buf)
	if got := out.ReadSample(0, 0); got < 0.49 || got > 0.51 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestGainSetParamRejectsUnknownName(t *testing.T) {
	g := NewGain(1.0)
	if err := g.SetParam("frequency", "440"); err == nil {
		t.Fatalf("expected error for unknown parameter name")
	}
}

func TestPassthroughReturnsInputUnchanged(t *testing.T) {
	buf := audioformat.NewBuffer(1, audioformat.F32, audioformat.Planar, audioformat.MonoLayout(), 48000)
	out, err := Passthrough{}.Process(buf)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != buf {
		t.Fatalf("expected Passthrough to return the same buffer pointer")
	}
}
