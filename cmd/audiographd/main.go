// Package main is audiographd, the CLI front-end that loads a graph
// configuration, builds and runs the audio graph against a hardware
// session or a file-only clock, and serves the OSC control plane
// (spec.md §6/§11).
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kestrelaudio/audiograph/audioformat"
	"github.com/kestrelaudio/audiograph/config"
	"github.com/kestrelaudio/audiograph/devicestate"
	"github.com/kestrelaudio/audiograph/dspfilters"
	"github.com/kestrelaudio/audiograph/graph"
	"github.com/kestrelaudio/audiograph/hardwaresession"
	"github.com/kestrelaudio/audiograph/mediaio"
	"github.com/kestrelaudio/audiograph/osc"
	"github.com/kestrelaudio/audiograph/oscserver"
)

// cliOptions mirrors the flat flag.* block pattern used elsewhere in
// this codebase: a struct of flag-bound pointers populated before
// flag.Parse, checked after.
type cliOptions struct {
	ConfigPath  *string
	Device      *string
	IP          *string
	Port        *int
	ReceivePort *int
	SampleRate  *int
	BufferSize  *int
	AutoConfig  *bool
	FFMPEGPath  *string
	Help        *bool
}

// hardwareError and runtimeError distinguish exit code 2 from exit
// code 3 (spec.md §6: "Exit codes: 0 success, 1 configuration error,
// 2 hardware error, 3 runtime error").
type hardwareError struct{ err error }

func (e *hardwareError) Error() string { return e.err.Error() }
func (e *hardwareError) Unwrap() error { return e.err }

type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

func main() {
	opts := &cliOptions{}
	opts.ConfigPath = flag.String("config", "", "path to a JSON graph configuration file")
	opts.Device = flag.String("device", "", "hardware device name (overrides config asioDeviceName)")
	opts.IP = flag.String("ip", "", "device control-plane target IP (overrides config targetIp)")
	opts.Port = flag.Int("port", 0, "device control-plane target port (overrides config targetPort)")
	opts.ReceivePort = flag.Int("receive-port", 0, "OSC receive port (overrides config receivePort)")
	opts.SampleRate = flag.Int("sample-rate", 0, "sample rate in Hz (overrides config sampleRate)")
	opts.BufferSize = flag.Int("buffer-size", 0, "block size in frames (overrides config bufferSize)")
	opts.AutoConfig = flag.Bool("auto-config", false, "build a minimal hardware-driven default config when --config is not given")
	opts.FFMPEGPath = flag.String("ffmpeg", "", "path to ffmpeg executable")
	opts.Help = flag.Bool("help", false, "show help message")
	flag.Parse()

	if *opts.Help {
		fmt.Println("audiographd - real-time audio routing graph daemon")
		flag.PrintDefaults()
		return
	}

	cfg, err := loadConfiguration(opts)
	if err != nil {
		log.Printf("configuration error: %v", err)
		os.Exit(1)
	}

	d, err := newDaemon(cfg, *opts.FFMPEGPath)
	if err != nil {
		log.Printf("audiographd: %v", err)
		os.Exit(exitCodeFor(err))
	}

	if err := d.Start(); err != nil {
		log.Printf("audiographd: %v", err)
		os.Exit(exitCodeFor(err))
	}

	waitForShutdownSignal()
	d.Stop()
}

func exitCodeFor(err error) int {
	var he *hardwareError
	if errors.As(err, &he) {
		return 2
	}
	return 3
}

func waitForShutdownSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

// loadConfiguration builds a Configuration from --config, or from
// --auto-config's hardware-driven defaults, then applies any
// explicitly-set override flags and validates the result.
func loadConfiguration(opts *cliOptions) (*config.Configuration, error) {
	var cfg *config.Configuration

	switch {
	case *opts.ConfigPath != "":
		loaded, err := config.Load(*opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case *opts.AutoConfig:
		cfg = &config.Configuration{
			DeviceType:     config.DeviceTypeASIO,
			SampleRate:     48000,
			BufferSize:     512,
			InternalFormat: config.FormatF32,
			InternalLayout: "stereo",
			ReceivePort:    9000,
		}
	default:
		return nil, fmt.Errorf("one of --config or --auto-config is required")
	}

	applyOverrides(cfg, opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Configuration, opts *cliOptions) {
	if *opts.Device != "" {
		cfg.ASIODeviceName = *opts.Device
	}
	if *opts.IP != "" {
		cfg.TargetIP = *opts.IP
	}
	if *opts.Port != 0 {
		cfg.TargetPort = *opts.Port
	}
	if *opts.ReceivePort != 0 {
		cfg.ReceivePort = *opts.ReceivePort
	}
	if *opts.SampleRate != 0 {
		cfg.SampleRate = *opts.SampleRate
	}
	if *opts.BufferSize != 0 {
		cfg.BufferSize = *opts.BufferSize
	}
}

func codecFor(deviceType string) devicestate.ParameterCodec {
	if deviceType == config.DeviceTypeRmeTotalMix {
		return devicestate.RmeTotalMix{}
	}
	return devicestate.GenericOSC{}
}

func maxPacketSize() int {
	if v := os.Getenv("OSC_MAX_MESSAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return oscserver.DefaultMaxPacketSize
}

// lifecycle is the common Start/Stop shape of the media-io
// collaborators that need an explicit subprocess lifetime, separate
// from the graph.FileSource/FileSink capability they also satisfy.
type lifecycle interface {
	Start() error
	Stop() error
}

// splitGraphParamAddress extracts (node, param) from a "/graph/<node>/<param>"
// address, the OSC-visible entry point for spec.md §5's control-thread
// parameter updates (e.g. "/graph/filter1/gain" → node "filter1",
// param "gain").
func splitGraphParamAddress(address string) (node, param string, ok bool) {
	parts := strings.Split(address, "/")
	if len(parts) != 4 || parts[0] != "" || parts[1] != "graph" || parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

func buildFilterChain(n config.NodeConfig) (graph.FilterChain, error) {
	switch n.FilterGraph {
	case "", "passthrough":
		return dspfilters.Passthrough{}, nil
	case "gain":
		factor := 1.0
		if v, ok := n.Params["gain"]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("node %q: parse gain param: %w", n.Name, err)
			}
			factor = f
		}
		return dspfilters.NewGain(factor), nil
	default:
		return nil, fmt.Errorf("node %q: no filter chain plugin named %q is wired in", n.Name, n.FilterGraph)
	}
}

// buildGraph constructs every node and connection a Configuration
// names, wiring hardware_source/hardware_sink nodes to the bridge,
// file_source/file_sink nodes to ffmpeg-backed media-io, filter_chain
// nodes to dspfilters, and mixer nodes with fan-in sized to the
// connections that target them (the mixer Open Question resolution,
// SPEC_FULL.md §14).
func buildGraph(cfg *config.Configuration, ffmpegPath string) (*graph.Engine, *hardwaresession.Bridge, hardwaresession.HardwareSession, []lifecycle, error) {
	format, err := audioformat.ParseFormat(cfg.InternalFormat)
	if err != nil {
		return nil, nil, nil, nil, &runtimeError{err}
	}
	layout, err := audioformat.ParseLayout(cfg.InternalLayout)
	if err != nil {
		return nil, nil, nil, nil, &runtimeError{err}
	}

	hasHardware := false
	for _, n := range cfg.Nodes {
		if k := graph.Kind(n.Type); k == graph.KindHardwareSource || k == graph.KindHardwareSink {
			hasHardware = true
		}
	}

	var session hardwaresession.HardwareSession
	if hasHardware {
		pa := hardwaresession.NewPortAudioSession()
		if err := pa.Load(cfg.ASIODeviceName); err != nil {
			return nil, nil, nil, nil, &hardwareError{fmt.Errorf("load hardware device %q: %w", cfg.ASIODeviceName, err)}
		}
		if err := pa.Initialize(cfg.SampleRate, cfg.BufferSize); err != nil {
			return nil, nil, nil, nil, &hardwareError{fmt.Errorf("initialize hardware session: %w", err)}
		}
		session = pa
	} else {
		session = hardwaresession.NewNullSession(cfg.SampleRate, cfg.BufferSize)
	}

	bridge := hardwaresession.NewBridge(session)
	engine := graph.NewEngine()

	fanIn := make(map[string]int, len(cfg.Nodes))
	for _, c := range cfg.Connections {
		fanIn[c.SinkName]++
	}

	var media []lifecycle
	var activeIn, activeOut []int

	for _, n := range cfg.Nodes {
		kind := graph.Kind(n.Type)
		switch kind {
		case graph.KindHardwareSource:
			puller := bridge.ChannelGroupPuller(n.ChannelIndices, format, layout)
			if _, err := engine.CreateNode(n.Name, kind, 0, 1, []graph.HardwarePuller{puller}); err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
			activeIn = append(activeIn, n.ChannelIndices...)
		case graph.KindHardwareSink:
			pusher := bridge.ChannelGroupPusher(n.ChannelIndices)
			if _, err := engine.CreateNode(n.Name, kind, 1, 0, []graph.HardwarePusher{pusher}); err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
			activeOut = append(activeOut, n.ChannelIndices...)
		case graph.KindFileSource:
			src := mediaio.NewFFmpegFileSource(n.FilePath, false, cfg.SampleRate, cfg.BufferSize, layout, ffmpegPath)
			if _, err := engine.CreateNode(n.Name, kind, 0, 1, []graph.FileSource{src}); err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
			media = append(media, src)
		case graph.KindFileSink:
			sink := mediaio.NewFFmpegFileSink(n.FilePath, cfg.SampleRate, cfg.BufferSize, layout, nil, ffmpegPath)
			if _, err := engine.CreateNode(n.Name, kind, 1, 0, []graph.FileSink{sink}); err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
			media = append(media, sink)
		case graph.KindFilterChain:
			chain, err := buildFilterChain(n)
			if err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
			if _, err := engine.CreateNode(n.Name, kind, 1, 1, chain); err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
		case graph.KindMixer:
			in := fanIn[n.Name]
			if in == 0 {
				in = 1
			}
			if _, err := engine.CreateNode(n.Name, kind, in, 1, nil); err != nil {
				return nil, nil, nil, nil, &runtimeError{err}
			}
		default:
			return nil, nil, nil, nil, &runtimeError{fmt.Errorf("node %q: unknown type %q", n.Name, n.Type)}
		}
	}

	for _, c := range cfg.Connections {
		if err := engine.Connect(c.SourceName, c.SourcePad, c.SinkName, c.SinkPad); err != nil {
			return nil, nil, nil, nil, &runtimeError{err}
		}
	}

	if err := engine.ConfigureAll(cfg.SampleRate, cfg.BufferSize, format, layout); err != nil {
		return nil, nil, nil, nil, &runtimeError{err}
	}

	if err := bridge.Attach(activeIn, activeOut); err != nil {
		return nil, nil, nil, nil, &hardwareError{err}
	}

	return engine, bridge, session, media, nil
}

// daemon owns every long-lived collaborator audiographd wires
// together: the graph, the hardware bridge, the media-io
// subprocesses, the OSC control-plane server, and the device state
// manager that reconciles configuration commands against it.
type daemon struct {
	cfg     *config.Configuration
	engine  *graph.Engine
	bridge  *hardwaresession.Bridge
	session hardwaresession.HardwareSession
	media   []lifecycle
	server  *oscserver.Server
	manager *devicestate.Manager
	link    *oscserver.DeviceLink

	clockStop chan struct{}
}

func newDaemon(cfg *config.Configuration, ffmpegPath string) (*daemon, error) {
	engine, bridge, session, media, err := buildGraph(cfg, ffmpegPath)
	if err != nil {
		return nil, err
	}

	dispatcher := oscserver.NewDispatcher()
	server := oscserver.NewServer(dispatcher, 0, maxPacketSize())

	link := oscserver.NewDeviceLink(server, fmt.Sprintf("%s:%d", cfg.TargetIP, cfg.TargetPort), 2*time.Second)
	manager := devicestate.NewManager(cfg.ASIODeviceName, cfg.DeviceType, link, codecFor(cfg.DeviceType), 2*time.Second)

	// Every message that no registered method matches lands here — with
	// only "/graph/*/*" registered, that covers the device's echoed
	// parameter values — so the manager sees each float-tagged echo and
	// clears its Pending/Drifted bookkeeping (spec.md §4.6). Messages
	// consumed as Query replies do not reach this handler.
	dispatcher.AddDefaultMethod(func(m osc.Message) {
		if len(m.Args) == 0 || m.Args[0].Type != osc.TypeFloat32 {
			return
		}
		manager.OnParameterEvent(m.Address, m.Args[0].Float32)
	})
	dispatcher.SetErrorHandler(func(where string, err error) {
		log.Printf("oscserver: %s: %v", where, err)
	})

	if _, err := dispatcher.AddMethod("/graph/*/*", "f", func(m osc.Message) {
		node, param, ok := splitGraphParamAddress(m.Address)
		if !ok {
			return
		}
		value := strconv.FormatFloat(float64(m.Args[0].Float32), 'g', -1, 32)
		if ok, err := engine.QueueParam(node, param, value); err != nil {
			log.Printf("oscserver: param update for unknown node %q: %v", node, err)
		} else if !ok {
			log.Printf("oscserver: node %q parameter queue full, dropped %s=%s", node, param, value)
		}
	}); err != nil {
		return nil, fmt.Errorf("register graph parameter control method: %w", err)
	}

	return &daemon{
		cfg:     cfg,
		engine:  engine,
		bridge:  bridge,
		session: session,
		media:   media,
		server:  server,
		manager: manager,
		link:    link,
	}, nil
}

func (d *daemon) Start() error {
	for _, m := range d.media {
		if err := m.Start(); err != nil {
			return &runtimeError{fmt.Errorf("start media component: %w", err)}
		}
	}

	if err := d.server.ListenUDP(fmt.Sprintf(":%d", d.cfg.ReceivePort)); err != nil {
		return &runtimeError{fmt.Errorf("bind OSC UDP socket on port %d: %w", d.cfg.ReceivePort, err)}
	}
	if err := d.server.ListenTCP(fmt.Sprintf(":%d", d.cfg.ReceivePort)); err != nil {
		log.Printf("oscserver: TCP listen on port %d failed, continuing UDP-only: %v", d.cfg.ReceivePort, err)
	}

	if err := d.engine.Start(); err != nil {
		return &runtimeError{fmt.Errorf("start graph: %w", err)}
	}

	if _, ok := d.session.(*hardwaresession.NullSession); ok {
		d.startFileOnlyClock()
	} else {
		d.bridge.Run(d.engine.ProcessBlock)
	}
	if err := d.session.Start(); err != nil {
		return &hardwareError{fmt.Errorf("start hardware session: %w", err)}
	}

	if len(d.cfg.Commands) > 0 || d.cfg.DeviceType == config.DeviceTypeRmeTotalMix {
		d.queryInitialState()
		d.applyInitialCommands()
	}

	return nil
}

// queryInitialState primes the manager's DeviceState with the
// device's current value for every address the configuration's
// commands reference, plus (for an RME_TOTALMIX device) the
// synthesized per-channel volume/mute/solo/pan sweep, so Diff (inside
// applyInitialCommands) sends only the parameters that actually differ
// rather than treating every address as unknown (spec.md §9's
// `queryFullState` pacing).
func (d *daemon) queryInitialState() {
	addrs := commandAddresses(d.cfg)
	if len(addrs) == 0 {
		return
	}
	done := make(chan struct{})
	d.manager.QueryFullState(d.link, addrs, 2*time.Second, func(_ []devicestate.QueryResult) {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Printf("audiographd: timed out querying initial device state")
	}
}

func commandAddresses(cfg *config.Configuration) []string {
	seen := make(map[string]bool, len(cfg.Commands))
	var addrs []string
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	for _, c := range cfg.Commands {
		add(c.Address)
	}
	if cfg.DeviceType == config.DeviceTypeRmeTotalMix {
		inputs, outputs := rmeChannelCounts(cfg)
		for _, a := range devicestate.RmeFullStateAddresses(inputs, 0, outputs) {
			add(a)
		}
	}
	return addrs
}

// rmeChannelCounts derives the physical input/output channel counts an
// RME_TOTALMIX device exposes from the hardware_source/hardware_sink
// nodes the configuration declares. This module has no notion of
// TotalMix's software "playback" channel kind (there is no DAW
// playback-channel concept in this graph model), so
// RmeFullStateAddresses is always called with 0 playback channels.
func rmeChannelCounts(cfg *config.Configuration) (inputs, outputs int) {
	for _, n := range cfg.Nodes {
		switch graph.Kind(n.Type) {
		case graph.KindHardwareSource:
			for _, ch := range n.ChannelIndices {
				if ch+1 > inputs {
					inputs = ch + 1
				}
			}
		case graph.KindHardwareSink:
			for _, ch := range n.ChannelIndices {
				if ch+1 > outputs {
					outputs = ch + 1
				}
			}
		}
	}
	return inputs, outputs
}

// startFileOnlyClock drives process_block on a ticker when there is no
// hardware session to supply the callback thread spec.md §5 assumes
// (a pure file_source -> ... -> file_sink graph).
func (d *daemon) startFileOnlyClock() {
	interval := time.Duration(float64(d.cfg.BufferSize) / float64(d.cfg.SampleRate) * float64(time.Second))
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	d.clockStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ticker.C:
				d.engine.ProcessBlock(i)
			case <-d.clockStop:
				return
			}
		}
	}()
}

func (d *daemon) applyInitialCommands() {
	done := make(chan bool, 1)
	d.manager.ApplyConfiguration(d.cfg, func(ok bool) { done <- ok })
	select {
	case ok := <-done:
		if !ok {
			log.Printf("audiographd: one or more initial configuration commands failed to send")
		}
	case <-time.After(5 * time.Second):
		log.Printf("audiographd: timed out applying initial configuration commands")
	}
}

// Stop joins every thread in the order spec.md §5 prescribes: hardware
// first, then the graph, then the media-io subprocesses (so file
// sinks flush and finalize), then the OSC server.
func (d *daemon) Stop() {
	if d.clockStop != nil {
		close(d.clockStop)
	}
	if err := d.session.Stop(); err != nil {
		log.Printf("audiographd: stop hardware session: %v", err)
	}
	if err := d.engine.Stop(); err != nil {
		log.Printf("audiographd: stop graph: %v", err)
	}
	for _, m := range d.media {
		if err := m.Stop(); err != nil {
			log.Printf("audiographd: stop media component: %v", err)
		}
	}
	if err := d.server.Close(); err != nil {
		log.Printf("audiographd: close OSC server: %v", err)
	}
}
