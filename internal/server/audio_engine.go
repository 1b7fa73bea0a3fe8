// ABOUTME: Audio streaming engine for the synth server
// ABOUTME: Taps rendered synth blocks and streams encoded chunks to listeners
package server

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

const (
	// Stream format constants
	StreamChannels = 1
	StreamBitDepth = 16
	OpusSampleRate = 48000

	// Chunk timing
	ChunkDurationMs = 20

	// captureQueue is how many rendered blocks may wait for the encoder
	captureQueue = 64
)

// AudioEngine copies rendered synth output and streams it to listeners.
// The audio thread only copies into a queue; encoding runs in Start.
type AudioEngine struct {
	server *Server
	rate   int

	// Active listeners
	clients   map[string]*Client
	clientsMu sync.RWMutex
	listeners atomic.Int32

	// Capture queue from the audio thread
	blocks  chan []float32
	free    chan []float32
	dropped atomic.Uint64

	// Encoders, only touched by the Start goroutine
	pcm         encode.Encoder
	pcmChunk    int
	pcmPending  []int32
	opus        encode.Encoder
	toOpus      *Resampler
	opusPending []int32
	scratch     []int32
	converted   []int32

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewAudioEngine creates a streaming engine for a synth rendering at
// sampleRate. Opus is disabled when libopus cannot be initialised.
func NewAudioEngine(server *Server, sampleRate int) (*AudioEngine, error) {
	pcm, err := encode.NewPCM(audio.Format{
		Codec:      "pcm",
		SampleRate: sampleRate,
		Channels:   StreamChannels,
		BitDepth:   StreamBitDepth,
	})
	if err != nil {
		return nil, err
	}

	e := &AudioEngine{
		server:   server,
		rate:     sampleRate,
		clients:  make(map[string]*Client),
		blocks:   make(chan []float32, captureQueue),
		free:     make(chan []float32, captureQueue),
		pcm:      pcm,
		pcmChunk: sampleRate * ChunkDurationMs / 1000 * StreamChannels,
		stopChan: make(chan struct{}),
	}

	if !server.config.DisableOpus {
		opus, err := encode.NewOpus(e.opusFormat())
		if err != nil {
			log.Printf("Opus streaming disabled: %v", err)
		} else {
			e.opus = opus
			e.toOpus = NewResampler(sampleRate, OpusSampleRate, StreamChannels)
		}
	}

	return e, nil
}

func (e *AudioEngine) pcmFormat() audio.Format {
	return audio.Format{Codec: "pcm", SampleRate: e.rate, Channels: StreamChannels, BitDepth: StreamBitDepth}
}

func (e *AudioEngine) opusFormat() audio.Format {
	return audio.Format{Codec: "opus", SampleRate: OpusSampleRate, Channels: StreamChannels, BitDepth: StreamBitDepth}
}

// tap forwards Render to the wrapped renderer and captures the result
type tap struct {
	renderer synth.Renderer
	engine   *AudioEngine
}

func (t *tap) Render(dst []float32) {
	t.renderer.Render(dst)
	t.engine.Capture(dst)
}

// Tap wraps r so every rendered block is also streamed to listeners
func (e *AudioEngine) Tap(r synth.Renderer) synth.Renderer {
	return &tap{renderer: r, engine: e}
}

// Capture queues a copy of a rendered block. It never blocks; when the
// encoder falls behind the block is dropped.
func (e *AudioEngine) Capture(block []float32) {
	if e.listeners.Load() == 0 || len(block) == 0 {
		return
	}

	var buf []float32
	select {
	case buf = <-e.free:
	default:
	}
	if cap(buf) < len(block) {
		buf = make([]float32, len(block))
	}
	buf = buf[:len(block)]
	copy(buf, block)

	select {
	case e.blocks <- buf:
	default:
		if n := e.dropped.Add(1); n%100 == 1 {
			log.Printf("Warning: stream encoder behind, dropped %d blocks", n)
		}
	}
}

// Start runs the encoder loop until Stop
func (e *AudioEngine) Start() {
	log.Printf("Audio engine starting (%d Hz, opus: %v)", e.rate, e.opus != nil)

	for {
		select {
		case block := <-e.blocks:
			e.process(block)
			select {
			case e.free <- block:
			default:
			}
		case <-e.stopChan:
			log.Printf("Audio engine stopping")
			return
		}
	}
}

// Stop stops the audio engine
func (e *AudioEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
		e.pcm.Close()
		if e.opus != nil {
			e.opus.Close()
		}
	})
}

// AddClient starts streaming to a listener
func (e *AudioEngine) AddClient(client *Client) {
	client.mu.Lock()
	client.Codec = e.negotiateCodec(client)
	codec := client.Codec
	client.mu.Unlock()

	format := e.pcmFormat()
	if codec == "opus" {
		format = e.opusFormat()
	}

	e.clientsMu.Lock()
	e.clients[client.ID] = client
	e.clientsMu.Unlock()
	e.listeners.Add(1)

	log.Printf("Audio engine: added listener %s (codec: %s, %d Hz)", client.Name, codec, format.SampleRate)

	streamStart := protocol.StreamStart{
		AudioFormat: protocol.AudioFormat{
			Codec:      format.Codec,
			Channels:   format.Channels,
			SampleRate: format.SampleRate,
			BitDepth:   format.BitDepth,
		},
	}
	if err := e.server.sendMessage(client, protocol.TypeStreamStart, streamStart); err != nil {
		log.Printf("Warning: Could not send stream/start to %s: %v", client.Name, err)
	}

	if err := e.server.sendMessage(client, protocol.TypeStreamMetadata, e.server.metadata()); err != nil {
		log.Printf("Warning: Could not send metadata to %s: %v", client.Name, err)
	}
}

// RemoveClient stops streaming to a listener
func (e *AudioEngine) RemoveClient(client *Client) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if _, ok := e.clients[client.ID]; !ok {
		return
	}
	delete(e.clients, client.ID)
	e.listeners.Add(-1)
	log.Printf("Audio engine: removed listener %s", client.Name)
}

// ListenerCount returns the number of listeners being streamed to
func (e *AudioEngine) ListenerCount() int {
	return int(e.listeners.Load())
}

// Broadcast sends a JSON message to every listener
func (e *AudioEngine) Broadcast(msgType string, payload interface{}) {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for _, client := range e.clients {
		if err := e.server.sendMessage(client, msgType, payload); err != nil {
			log.Printf("Warning: Could not send %s to %s: %v", msgType, client.Name, err)
		}
	}
}

// negotiateCodec picks the first codec the listener prefers that this
// engine can produce, falling back to pcm
func (e *AudioEngine) negotiateCodec(client *Client) string {
	if client.Support == nil {
		return "pcm"
	}
	for _, codec := range client.Support.SupportCodecs {
		switch codec {
		case "opus":
			if e.opus != nil {
				return "opus"
			}
		case "pcm":
			return "pcm"
		}
	}
	return "pcm"
}

// codecUsers reports which codecs have at least one listener
func (e *AudioEngine) codecUsers() (pcm, opus bool) {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for _, client := range e.clients {
		client.mu.RLock()
		codec := client.Codec
		client.mu.RUnlock()
		if codec == "opus" {
			opus = true
		} else {
			pcm = true
		}
	}
	return pcm, opus
}

// process encodes one captured block and sends every completed chunk
func (e *AudioEngine) process(block []float32) {
	e.scratch = encode.FromFloat(e.scratch, block)
	wantPCM, wantOpus := e.codecUsers()

	if wantPCM {
		e.pcmPending = append(e.pcmPending, e.scratch...)
		for len(e.pcmPending) >= e.pcmChunk {
			e.sendChunk("pcm", e.pcm, e.pcmPending[:e.pcmChunk])
			e.pcmPending = shift(e.pcmPending, e.pcmChunk)
		}
	} else {
		e.pcmPending = e.pcmPending[:0]
	}

	if wantOpus && e.opus != nil {
		size := e.toOpus.OutputSize(len(e.scratch))
		if cap(e.converted) < size {
			e.converted = make([]int32, size)
		}
		n := e.toOpus.Resample(e.scratch, e.converted[:size])
		e.opusPending = append(e.opusPending, e.converted[:n]...)

		frame := OpusSampleRate * ChunkDurationMs / 1000 * StreamChannels
		for len(e.opusPending) >= frame {
			e.sendChunk("opus", e.opus, e.opusPending[:frame])
			e.opusPending = shift(e.opusPending, frame)
		}
	} else {
		e.opusPending = e.opusPending[:0]
	}
}

// sendChunk encodes samples and sends them to every listener on codec
func (e *AudioEngine) sendChunk(codec string, enc encode.Encoder, samples []int32) {
	data, err := enc.Encode(samples)
	if err != nil {
		log.Printf("Error encoding %s chunk: %v", codec, err)
		return
	}

	timestamp := e.server.getClockMicros()
	chunk := CreateAudioChunk(timestamp, data)

	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for _, client := range e.clients {
		client.mu.RLock()
		match := client.Codec == codec
		client.mu.RUnlock()
		if !match {
			continue
		}
		if err := e.server.sendBinary(client, chunk); err != nil && e.server.config.Debug {
			log.Printf("[DEBUG] Dropping audio for %s: %v", client.Name, err)
		}
	}
}

// shift drops the first n samples, reusing the backing array
func shift(buf []int32, n int) []int32 {
	rest := copy(buf, buf[n:])
	return buf[:rest]
}
