// Package mediaio implements the file_source/file_sink collaborators
// spec.md §1 calls out as external capabilities: an ffmpeg subprocess
// pipeline feeding a bounded reader queue on the decode side, and
// draining a bounded writer queue to an ffmpeg encode subprocess on the
// sink side (spec.md §5).
package mediaio

import (
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/kestrelaudio/audiograph/audioformat"
)

// FFmpegFileSource decodes a file or live capture device to the
// internal float format via an ffmpeg subprocess, grounded on the
// teacher's ffmpegBaseDevice/FFmpegFileInput pipeline construction
// (ffmpeg.Input(...).Output("pipe:", ...)) but reworked around fixed
// block_size reads feeding a graph.FileSource instead of an
// arbitrarily-sized []float32 channel.
type FFmpegFileSource struct {
	input      string
	liveInput  bool
	ffmpegPath string
	sampleRate int
	blockSize  int
	layout     audioformat.ChannelLayout

	cmd        *exec.Cmd
	pipeReader io.ReadCloser
	queue      chan *audioformat.Buffer
	stopCh     chan struct{}

	mu      sync.Mutex
	running bool
}

// NewFFmpegFileSource returns a source that decodes input (a file path,
// or a device identifier when live is true) to block_size-frame,
// interleaved F32 blocks at sampleRate/layout.
func NewFFmpegFileSource(input string, live bool, sampleRate, blockSize int, layout audioformat.ChannelLayout, ffmpegPath string) *FFmpegFileSource {
	return &FFmpegFileSource{
		input: input, liveInput: live, ffmpegPath: ffmpegPath,
		sampleRate: sampleRate, blockSize: blockSize, layout: layout,
		queue:  make(chan *audioformat.Buffer, 8),
		stopCh: make(chan struct{}),
	}
}

// Start launches the ffmpeg subprocess and the reader goroutine. The
// reader goroutine may block on a full queue (it is not the audio
// thread); TryRead, called from the audio thread, never blocks.
func (s *FFmpegFileSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("mediaio: source already started")
	}

	pipeReader, pipeWriter := io.Pipe()
	s.pipeReader = pipeReader

	inputArgs := ffmpeg.KwArgs{}
	if s.liveInput {
		inputArgs["fflags"] = "nobuffer"
	}
	outputArgs := ffmpeg.KwArgs{
		"f":   "f32le",
		"c:a": "pcm_f32le",
		"ar":  fmt.Sprintf("%d", s.sampleRate),
		"ac":  fmt.Sprintf("%d", s.layout.Channels),
	}

	node := ffmpeg.Input(s.input, inputArgs)
	built := node.Output("pipe:", outputArgs).WithOutput(pipeWriter).ErrorToStdOut()
	if s.ffmpegPath != "" {
		built.SetFfmpegPath(s.ffmpegPath)
	}
	s.cmd = built.Compile()

	go func() {
		if err := s.cmd.Run(); err != nil && !strings.Contains(err.Error(), "signal: killed") {
			log.Printf("mediaio: ffmpeg source process: %v", err)
		}
		pipeWriter.Close()
	}()

	go s.readLoop()
	s.running = true
	return nil
}

func (s *FFmpegFileSource) readLoop() {
	frameBytes := s.blockSize * s.layout.Channels * audioformat.F32.BytesPerSample()
	raw := make([]byte, frameBytes)
	for {
		n, err := io.ReadFull(s.pipeReader, raw)
		if n > 0 {
			buf := audioformat.NewBuffer(s.blockSize, audioformat.F32, audioformat.Interleaved, s.layout, s.sampleRate)
			copy(buf.Regions[0], raw[:n])
			select {
			case s.queue <- buf:
			case <-s.stopCh:
				return
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				log.Printf("mediaio: read from ffmpeg source pipe: %v", err)
			}
			return
		}
		select {
		case <-s.stopCh:
			return
		default:
		}
	}
}

// TryRead implements graph.FileSource: non-blocking, returns nil when
// no block is ready yet (spec.md §4.1 step 4).
func (s *FFmpegFileSource) TryRead() *audioformat.Buffer {
	select {
	case buf := <-s.queue:
		return buf
	default:
		return nil
	}
}

// Stop terminates the ffmpeg subprocess, preferring SIGINT so ffmpeg
// flushes cleanly, matching ffmpegBaseDevice.Stop's shutdown sequence.
func (s *FFmpegFileSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	if s.cmd != nil && s.cmd.Process != nil {
		if err := s.cmd.Process.Signal(syscall.SIGINT); err != nil {
			log.Printf("mediaio: SIGINT to ffmpeg source failed, killing: %v", err)
			s.cmd.Process.Kill()
		}
	}
	return nil
}
