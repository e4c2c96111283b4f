package hardwaresession

import "github.com/kestrelaudio/audiograph/audioformat"

// NullSession is a HardwareSession with zero channels in either
// direction, for file-only graphs that have no hardware_source or
// hardware_sink nodes: a device that satisfies the interface and
// produces/consumes nothing.
type NullSession struct {
	sampleRate int
	blockSize  int
	cb         BlockCallback
}

func NewNullSession(sampleRate, blockSize int) *NullSession {
	return &NullSession{sampleRate: sampleRate, blockSize: blockSize}
}

func (s *NullSession) Load(name string) error                        { return nil }
func (s *NullSession) Initialize(rate, blockSize int) error           { s.sampleRate, s.blockSize = rate, blockSize; return nil }
func (s *NullSession) ChannelCounts() (in, out int)                   { return 0, 0 }
func (s *NullSession) SupportedRates() []int                          { return []int{s.sampleRate} }
func (s *NullSession) PrepareBuffers(activeIn, activeOut []int) error { return nil }
func (s *NullSession) Start() error                                   { return nil }
func (s *NullSession) Stop() error                                    { return nil }
func (s *NullSession) RegisterCallback(cb BlockCallback)              { s.cb = cb }
func (s *NullSession) NativeFormat() audioformat.SampleFormat         { return audioformat.F32 }
func (s *NullSession) BlockSize() int                                 { return s.blockSize }
func (s *NullSession) SampleRate() int                                { return s.sampleRate }
