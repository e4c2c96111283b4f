package mediaio

import (
	"testing"

	"github.com/kestrelaudio/audiograph/audioformat"
)

func TestSourceTryReadReturnsNilWhenEmpty(t *testing.T) {
	src := NewFFmpegFileSource("/dev/null", false, 48000, 64, audioformat.StereoLayout(), "")
	if buf := src.TryRead(); buf != nil {
		t.Fatalf("expected nil from an empty, unstarted source, got %v", buf)
	}
}

func TestSourceTryReadDrainsQueuedBlock(t *testing.T) {
	src := NewFFmpegFileSource("/dev/null", false, 48000, 64, audioformat.StereoLayout(), "")
	want := audioformat.NewBuffer(64, audioformat.F32, audioformat.Interleaved, audioformat.StereoLayout(), 48000)
	src.queue <- want

	got := src.TryRead()
	if got != want {
		t.Fatalf("expected the queued buffer back, got a different pointer")
	}
	if got := src.TryRead(); got != nil {
		t.Fatalf("expected nil after draining the only queued block, got %v", got)
	}
}
