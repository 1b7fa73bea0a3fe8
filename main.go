// ABOUTME: Entry point for the wavetable synthesizer
// ABOUTME: Plays locally with a keyboard TUI, or drives and hears a remote synth
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/bank"
	"github.com/Resonate-Protocol/resonate-synth/internal/client"
	"github.com/Resonate-Protocol/resonate-synth/internal/discovery"
	"github.com/Resonate-Protocol/resonate-synth/internal/latency"
	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/internal/server"
	"github.com/Resonate-Protocol/resonate-synth/internal/ui"
	"github.com/Resonate-Protocol/resonate-synth/internal/version"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
	"github.com/google/uuid"
)

var (
	port          = flag.Int("port", 8927, "WebSocket server port")
	name          = flag.String("name", "", "Synth friendly name (default: hostname-synth)")
	logFile       = flag.String("log-file", "resonate-synth.log", "Log file path")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	noMDNS        = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noServer      = flag.Bool("no-server", false, "Do not accept network controllers or listeners")
	noTUI         = flag.Bool("no-tui", false, "Disable the keyboard TUI, use streaming logs instead")
	pcmOnly       = flag.Bool("pcm-only", false, "Stream uncompressed pcm to listeners")
	bankPath      = flag.String("bank", "", "Instrument manifest (JSON). Empty = built-in sine/saw/square")
	sampleRate    = flag.Int("rate", 44100, "Output sample rate")
	voices        = flag.Int("voices", 10, "Polyphony")
	bufferMs      = flag.Int("buffer-ms", 50, "Output buffer (or listener prebuffer) in milliseconds")
	headless      = flag.Bool("headless", false, "Render on a timer without an audio device")
	connect       = flag.String("connect", "", "Play a remote synth at host:port, or 'auto' to discover one")
	listen        = flag.Bool("listen", false, "With -connect, also play the remote synth's audio")
	writeManifest = flag.String("write-manifest", "", "Write the default grand/oboe/cello manifest to this path and exit")
)

func main() {
	flag.Parse()

	if *writeManifest != "" {
		if err := writeDefaultManifest(*writeManifest); err != nil {
			log.Fatalf("Failed to write manifest: %v", err)
		}
		fmt.Printf("Wrote %s\n", *writeManifest)
		return
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if useTUI {
		// TUI owns the terminal
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	synthName := *name
	if synthName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		synthName = fmt.Sprintf("%s-synth", hostname)
	}

	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)

	if *connect != "" {
		runRemote(synthName, useTUI)
		return
	}
	runLocal(synthName, useTUI)
}

// runLocal plays the synthesizer on this machine and serves it to the network
func runLocal(synthName string, useTUI bool) {
	log.Printf("Starting %s %s: %s", version.Product, version.Version, synthName)

	instruments, err := loadBank(*bankPath, *sampleRate)
	if err != nil {
		log.Fatalf("Failed to load bank: %v", err)
	}
	patches := instruments.Names()

	cfg := synth.DefaultConfig()
	cfg.SampleRate = *sampleRate
	cfg.Voices = *voices
	s := synth.New(cfg, instruments)

	var renderer synth.Renderer = s
	var srv *server.Server
	if !*noServer {
		srv, err = server.New(server.Config{
			Port:        *port,
			Name:        synthName,
			EnableMDNS:  !*noMDNS,
			Debug:       *debug,
			DisableOpus: *pcmOnly,
		}, s, patches)
		if err != nil {
			log.Fatalf("Failed to create server: %v", err)
		}
		renderer = srv.Tap(s)

		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("Server error: %v", err)
			}
		}()
	}

	out := newOutput()
	if err := out.Open(*sampleRate, 2); err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	if err := out.Play(renderer); err != nil {
		log.Fatalf("Failed to start playback: %v", err)
	}

	listeners := func() int {
		if srv == nil {
			return 0
		}
		return srv.ListenerCount()
	}

	if useTUI {
		status := func() (protocol.SynthStatus, bool) {
			return protocol.StatusFrom(s.Status(), patches, listeners()), true
		}
		if err := ui.Run(ui.NewModel(synthName, patches, s, status)); err != nil {
			log.Printf("TUI error: %v", err)
		}
	} else {
		log.Printf("Press Ctrl-C to stop")
		waitForSignal(nil)
	}

	if srv != nil {
		srv.Stop()
	}
	if err := out.Close(); err != nil {
		log.Printf("Error closing output: %v", err)
	}
	log.Printf("Synth stopped")
}

// runRemote drives a synth on another machine
func runRemote(synthName string, useTUI bool) {
	addr, path := *connect, server.Path
	if addr == "auto" {
		log.Printf("Starting synth discovery...")
		info, err := discovery.Discover(10 * time.Second)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		addr, path = info.Addr(), info.Path
		log.Printf("Discovered %s at %s", info.Name, addr)
	}

	roles := []string{protocol.RoleController}
	if *listen {
		roles = append(roles, protocol.RoleListener)
	}
	codecs := []string{"opus", "pcm"}
	if *pcmOnly {
		codecs = []string{"pcm"}
	}

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		Path:       path,
		ClientID:   uuid.New().String(),
		Name:       synthName,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		Roles:  roles,
		Codecs: codecs,
	})
	if err := c.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Close()

	hello := c.ServerHello()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	monitor := latency.NewMonitor(*debug)
	go monitor.Run(ctx, c.SendTimeSync, c.TimeSyncResp, latency.DefaultRate)

	var out output.Output
	if *listen {
		var err error
		out, err = startListening(c)
		if err != nil {
			log.Fatalf("Failed to start listening: %v", err)
		}
		defer out.Close()
	}

	if useTUI {
		status := func() (protocol.SynthStatus, bool) {
			// Reply arrives asynchronously; show the freshest one received
			if err := c.RequestStatus(); err != nil {
				return protocol.SynthStatus{}, false
			}
			var latest protocol.SynthStatus
			ok := false
			for {
				select {
				case st := <-c.Status:
					latest, ok = st, true
				default:
					return latest, ok
				}
			}
		}
		model := ui.NewModel(hello.Name, hello.Patches, c, status).
			WithLatency(func() string { return monitor.Stats().String() })
		if err := ui.Run(model); err != nil {
			log.Printf("TUI error: %v", err)
		}
	} else {
		log.Printf("Connected to %s, press Ctrl-C to stop", hello.Name)
		go logLatency(ctx, monitor)
		waitForSignal(c.Done())
	}
}

// logLatency reports the link every few seconds
func logLatency(ctx context.Context, monitor *latency.Monitor) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st := monitor.Stats()
			log.Printf("Latency: %s last=%v samples=%d discarded=%d",
				st, st.LastRTT, st.Samples, st.Discarded)
		case <-ctx.Done():
			return
		}
	}
}

// startListening plays the server's stream through the local output
func startListening(c *client.Client) (output.Output, error) {
	var start protocol.StreamStart
	select {
	case start = <-c.StreamStart:
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("no stream/start from server")
	}
	log.Printf("Stream: %s %dHz %d-bit %dch", start.Codec, start.SampleRate, start.BitDepth, start.Channels)

	dec, err := decode.ForFormat(client.StreamFormat(start))
	if err != nil {
		return nil, err
	}

	prebuffer := start.SampleRate * *bufferMs / 1000
	listener := client.NewListener(start.SampleRate*2, prebuffer)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c.Done()
		cancel()
	}()
	go func() {
		listener.Feed(ctx, c.AudioChunks, dec, start.Channels)
		dec.Close()
	}()

	go func() {
		for {
			select {
			case meta := <-c.Metadata:
				log.Printf("Now playing: %s (%s)", meta.Title, meta.Artist)
			case <-ctx.Done():
				return
			}
		}
	}()

	if *debug {
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					st := listener.Stats()
					log.Printf("[DEBUG] Listener: received=%d buffered=%d underruns=%d overflows=%d",
						st.Received, st.Buffered, st.Underruns, st.Overflows)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	out := newOutput()
	if err := out.Open(start.SampleRate, 2); err != nil {
		return nil, err
	}
	if err := out.Play(listener); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

func newOutput() output.Output {
	buffer := time.Duration(*bufferMs) * time.Millisecond
	if *headless {
		return output.NewHeadless(buffer)
	}
	return output.NewOto(buffer)
}

func loadBank(path string, rate int) (synth.Bank, error) {
	if path == "" {
		log.Printf("Using built-in tables at %d Hz", rate)
		return bank.Builtin(rate), nil
	}
	return bank.Load(path)
}

func writeDefaultManifest(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bank.DefaultManifest().Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// waitForSignal blocks until SIGINT/SIGTERM or done closes
func waitForSignal(done <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received %v signal, shutting down gracefully...", sig)
	case <-done:
		log.Printf("Connection closed by server")
	}
}
