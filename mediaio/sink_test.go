package mediaio

import (
	"testing"

	"github.com/kestrelaudio/audiograph/audioformat"
)

func TestSinkEnqueueDropsWhenFull(t *testing.T) {
	sink := NewFFmpegFileSink("/dev/null", 48000, 64, audioformat.StereoLayout(), nil, "")
	buf := audioformat.NewBuffer(64, audioformat.F32, audioformat.Interleaved, audioformat.StereoLayout(), 48000)

	accepted := 0
	for i := 0; i < 64; i++ {
		if sink.Enqueue(buf) {
			accepted++
		}
	}
	if accepted != cap(sink.queue) {
		t.Fatalf("expected exactly %d accepted before the queue fills, got %d", cap(sink.queue), accepted)
	}
	if sink.Enqueue(buf) {
		t.Fatalf("expected Enqueue to report false once the queue is full")
	}
}
