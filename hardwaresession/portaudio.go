package hardwaresession

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/gordonklaus/portaudio"
	"github.com/kestrelaudio/audiograph/audioformat"
)

// PortAudioSession is the default HardwareSession, grounded on a
// portaudio-backed microphone capture pattern: open/start/stop a
// stream, drive a callback, non-blocking toward the caller. Extended
// here to full duplex, multi-channel, and block-counted (the original
// pattern only ever captured a single mono channel into a channel).
type PortAudioSession struct {
	deviceName string
	device     *portaudio.DeviceInfo

	preferredRate, preferredBlockSize int
	sampleRate, blockSize             int
	inChannels, outChannels           int

	activeIn, activeOut []int
	inBytes, outBytes   map[int][]byte

	stream  *portaudio.Stream
	cb      BlockCallback
	side    int
	running bool
}

// NewPortAudioSession returns an unloaded session. Load must be called
// before Initialize.
func NewPortAudioSession() *PortAudioSession {
	return &PortAudioSession{}
}

func (s *PortAudioSession) Load(name string) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("hardwaresession: portaudio init: %w", err)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("hardwaresession: list devices: %w", err)
	}
	if name == "" {
		host, err := portaudio.DefaultHostApi()
		if err != nil {
			return fmt.Errorf("hardwaresession: default host api: %w", err)
		}
		s.device = host.DefaultInputDevice
		if s.device == nil {
			s.device = host.DefaultOutputDevice
		}
		s.deviceName = name
		return nil
	}
	for _, d := range devices {
		if d.Name == name {
			s.device = d
			s.deviceName = name
			return nil
		}
	}
	return fmt.Errorf("%w: device %q not found", ErrNotLoaded, name)
}

func (s *PortAudioSession) Initialize(preferredRate, preferredBlockSize int) error {
	if s.device == nil {
		return ErrNotLoaded
	}
	s.preferredRate = preferredRate
	s.preferredBlockSize = preferredBlockSize
	s.sampleRate = preferredRate
	s.blockSize = preferredBlockSize
	s.inChannels = s.device.MaxInputChannels
	s.outChannels = s.device.MaxOutputChannels
	return nil
}

func (s *PortAudioSession) ChannelCounts() (in, out int) { return s.inChannels, s.outChannels }

// SupportedRates is a judgment call: the portaudio Go binding does not
// enumerate a device's full supported-rate table, only whether a given
// rate opens successfully. This session reports the common rate ladder
// and leaves validation to Start failing if the device rejects the
// rate; Initialize does not check it.
func (s *PortAudioSession) SupportedRates() []int {
	return []int{44100, 48000, 88200, 96000, 192000}
}

func (s *PortAudioSession) PrepareBuffers(activeIn, activeOut []int) error {
	s.activeIn = activeIn
	s.activeOut = activeOut
	s.inBytes = make(map[int][]byte, len(activeIn))
	for _, idx := range activeIn {
		s.inBytes[idx] = make([]byte, s.blockSize*4)
	}
	s.outBytes = make(map[int][]byte, len(activeOut))
	for _, idx := range activeOut {
		s.outBytes[idx] = make([]byte, s.blockSize*4)
	}
	return nil
}

func (s *PortAudioSession) RegisterCallback(cb BlockCallback) { s.cb = cb }

func (s *PortAudioSession) NativeFormat() audioformat.SampleFormat { return audioformat.F32 }
func (s *PortAudioSession) BlockSize() int                         { return s.blockSize }
func (s *PortAudioSession) SampleRate() int                        { return s.sampleRate }

func (s *PortAudioSession) Start() error {
	if s.running {
		return ErrAlreadyRunning
	}
	params := portaudio.HighLatencyParameters(s.device, s.device)
	params.Input.Channels = len(s.activeIn)
	params.Output.Channels = len(s.activeOut)
	params.SampleRate = float64(s.sampleRate)
	params.FramesPerBuffer = s.blockSize

	stream, err := portaudio.OpenStream(params, s.duplexCallback)
	if err != nil {
		return fmt.Errorf("hardwaresession: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("hardwaresession: start stream: %w", err)
	}
	s.stream = stream
	s.running = true
	return nil
}

// duplexCallback deinterleaves portaudio's native float32 buffers into
// one byte slice per active channel index, invokes the registered
// BlockCallback, then re-interleaves the per-channel output bytes back
// into portaudio's buffer (spec.md §4.2 double-buffer contract — the
// "side not currently published" here is simply the alternating
// counter, since portaudio already serializes callbacks on one thread).
func (s *PortAudioSession) duplexCallback(in, out []float32) {
	for i, idx := range s.activeIn {
		dst := s.inBytes[idx]
		for frame := 0; frame < s.blockSize; frame++ {
			v := in[frame*len(s.activeIn)+i]
			binary.LittleEndian.PutUint32(dst[frame*4:frame*4+4], math.Float32bits(v))
		}
	}

	if s.cb != nil {
		s.cb(s.side, s.inBytes, s.outBytes)
	}
	s.side ^= 1

	for i, idx := range s.activeOut {
		src := s.outBytes[idx]
		for frame := 0; frame < s.blockSize; frame++ {
			bits := binary.LittleEndian.Uint32(src[frame*4 : frame*4+4])
			out[frame*len(s.activeOut)+i] = math.Float32frombits(bits)
		}
	}
}

func (s *PortAudioSession) Stop() error {
	if !s.running {
		return nil
	}
	if err := s.stream.Close(); err != nil {
		log.Printf("hardwaresession: close stream: %v", err)
	}
	s.running = false
	return portaudio.Terminate()
}
