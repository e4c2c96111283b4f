package hardwaresession

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/kestrelaudio/audiograph/audioformat"
)

type fakeSession struct {
	sampleRate, blockSize int
	cb                    BlockCallback
}

func (f *fakeSession) Load(name string) error                        { return nil }
func (f *fakeSession) Initialize(rate, blockSize int) error          { return nil }
func (f *fakeSession) ChannelCounts() (in, out int)                   { return 2, 2 }
func (f *fakeSession) SupportedRates() []int                          { return []int{f.sampleRate} }
func (f *fakeSession) PrepareBuffers(activeIn, activeOut []int) error { return nil }
func (f *fakeSession) Start() error                                  { return nil }
func (f *fakeSession) Stop() error                                   { return nil }
func (f *fakeSession) RegisterCallback(cb BlockCallback)             { f.cb = cb }
func (f *fakeSession) NativeFormat() audioformat.SampleFormat        { return audioformat.F32 }
func (f *fakeSession) BlockSize() int                                { return f.blockSize }
func (f *fakeSession) SampleRate() int                                { return f.sampleRate }

func floatBytes(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestChannelGroupPullerConvertsNativeToInternal(t *testing.T) {
	fs := &fakeSession{sampleRate: 48000, blockSize: 4}
	b := NewBridge(fs)

	in := map[int][]byte{
		0: append(append(append(floatBytes(0.1), floatBytes(0.2)...), floatBytes(0.3)...), floatBytes(0.4)...),
		1: append(append(append(floatBytes(-0.1), floatBytes(-0.2)...), floatBytes(-0.3)...), floatBytes(-0.4)...),
	}
	var gotSide int
	b.Run(func(bufferIndex int) { gotSide = bufferIndex })
	fs.cb(1, in, nil)
	if gotSide != 1 {
		t.Fatalf("expected side 1, got %d", gotSide)
	}

	puller := b.ChannelGroupPuller([]int{0, 1}, audioformat.F32, audioformat.StereoLayout())
	buf, err := puller.Pull(1)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if v := buf.ReadSample(0, 0); math.Abs(float64(v)-0.1) > 1e-4 {
		t.Fatalf("ch0 frame0 = %v, want ~0.1", v)
	}
	if v := buf.ReadSample(1, 2); math.Abs(float64(v)-(-0.3)) > 1e-4 {
		t.Fatalf("ch1 frame2 = %v, want ~-0.3", v)
	}
}

func TestChannelGroupPusherConvertsInternalToNative(t *testing.T) {
	fs := &fakeSession{sampleRate: 48000, blockSize: 2}
	b := NewBridge(fs)
	out := map[int][]byte{
		3: make([]byte, 8),
	}
	b.Run(func(bufferIndex int) {})
	fs.cb(0, nil, out)

	pusher := b.ChannelGroupPusher([]int{3})
	src := audioformat.NewBuffer(2, audioformat.F32, audioformat.Interleaved, audioformat.MonoLayout(), 48000)
	src.WriteSample(0, 0, 0.5)
	src.WriteSample(0, 1, -0.25)

	if err := pusher.Push(0, src); err != nil {
		t.Fatalf("push: %v", err)
	}
	bits0 := binary.LittleEndian.Uint32(out[3][0:4])
	if v := math.Float32frombits(bits0); math.Abs(float64(v)-0.5) > 1e-4 {
		t.Fatalf("frame0 = %v, want ~0.5", v)
	}
	bits1 := binary.LittleEndian.Uint32(out[3][4:8])
	if v := math.Float32frombits(bits1); math.Abs(float64(v)-(-0.25)) > 1e-4 {
		t.Fatalf("frame1 = %v, want ~-0.25", v)
	}
}
