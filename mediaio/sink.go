package mediaio

import (
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/kestrelaudio/audiograph/audioformat"
)

// FFmpegFileSink encodes internal-format blocks to an output file via
// an ffmpeg subprocess fed over a pipe, the write-side mirror of
// FFmpegFileSource. A prior cgo-libav encoder path (bundled arcana
// headers) was dropped in favor of ffmpeg-go's subprocess pipeline on
// both ends, so the encode side carries no cgo/bundled-library
// coupling (DESIGN.md).
type FFmpegFileSink struct {
	output     string
	ffmpegPath string
	sampleRate int
	blockSize  int
	layout     audioformat.ChannelLayout
	codecArgs  ffmpeg.KwArgs

	cmd        *exec.Cmd
	pipeWriter io.WriteCloser
	queue      chan *audioformat.Buffer
	stopCh     chan struct{}
	done       chan struct{}

	mu      sync.Mutex
	running bool
}

// NewFFmpegFileSink returns a sink that encodes block_size-frame,
// interleaved F32 blocks to output. codecArgs are passed through to
// ffmpeg's output args (e.g. {"c:a": "libmp3lame", "b:a": "192k"});
// a nil map writes 16-bit signed little-endian PCM (pcm_s16le).
func NewFFmpegFileSink(output string, sampleRate, blockSize int, layout audioformat.ChannelLayout, codecArgs ffmpeg.KwArgs, ffmpegPath string) *FFmpegFileSink {
	if codecArgs == nil {
		codecArgs = ffmpeg.KwArgs{"c:a": "pcm_s16le"}
	}
	return &FFmpegFileSink{
		output: output, ffmpegPath: ffmpegPath,
		sampleRate: sampleRate, blockSize: blockSize, layout: layout,
		codecArgs: codecArgs,
		queue:     make(chan *audioformat.Buffer, 8),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the ffmpeg encode subprocess and the writer goroutine.
func (s *FFmpegFileSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("mediaio: sink already started")
	}

	pipeReader, pipeWriter := io.Pipe()
	s.pipeWriter = pipeWriter

	inputArgs := ffmpeg.KwArgs{
		"f":   "f32le",
		"ar":  fmt.Sprintf("%d", s.sampleRate),
		"ac":  fmt.Sprintf("%d", s.layout.Channels),
	}
	node := ffmpeg.Input("pipe:", inputArgs).WithInput(pipeReader)
	built := node.Output(s.output, s.codecArgs).ErrorToStdOut().OverWriteOutput()
	if s.ffmpegPath != "" {
		built.SetFfmpegPath(s.ffmpegPath)
	}
	s.cmd = built.Compile()

	go func() {
		defer close(s.done)
		if err := s.cmd.Run(); err != nil && !strings.Contains(err.Error(), "signal: killed") {
			log.Printf("mediaio: ffmpeg sink process: %v", err)
		}
	}()

	go s.writeLoop()
	s.running = true
	return nil
}

func (s *FFmpegFileSink) writeLoop() {
	defer s.pipeWriter.Close()
	for {
		select {
		case buf, ok := <-s.queue:
			if !ok {
				return
			}
			if _, err := s.pipeWriter.Write(buf.Regions[0]); err != nil {
				log.Printf("mediaio: write to ffmpeg sink pipe: %v", err)
				return
			}
		case <-s.stopCh:
			return
		}
	}
}

// Enqueue implements graph.FileSink: non-blocking, drops the block and
// returns false if the writer thread is falling behind (spec.md §4.1
// step 5 / §5: "a full queue drops the block... rather than applying
// back-pressure to the audio thread").
func (s *FFmpegFileSink) Enqueue(buf *audioformat.Buffer) bool {
	select {
	case s.queue <- buf:
		return true
	default:
		return false
	}
}

// Stop drains the writer, closes the pipe so ffmpeg sees EOF and
// flushes its trailer, then waits for the subprocess to exit.
func (s *FFmpegFileSink) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.queue)
	<-s.done
	return nil
}
