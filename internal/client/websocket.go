// ABOUTME: WebSocket client for the synth protocol
// ABOUTME: Handles connection, handshake, control events and message routing
package client

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/midi"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // defaults to /synth
	ClientID   string
	Name       string
	Version    int
	DeviceInfo protocol.DeviceInfo
	Roles      []string
	Codecs     []string // listener codec preference
}

// Client is a controller and/or listener connection to a synth server
type Client struct {
	config  Config
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex
	hello   protocol.ServerHello

	// Message channels
	AudioChunks  chan AudioChunk
	TimeSyncResp chan protocol.ServerTime
	StreamStart  chan protocol.StreamStart
	Metadata     chan protocol.StreamMetadata
	Status       chan protocol.SynthStatus

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// AudioChunk represents a timestamped audio frame
type AudioChunk struct {
	Timestamp int64  // Microseconds, server clock
	Data      []byte // Encoded audio
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	if config.Path == "" {
		config.Path = "/synth"
	}
	if config.Version == 0 {
		config.Version = protocol.Version
	}

	return &Client{
		config:       config,
		AudioChunks:  make(chan AudioChunk, 100),
		TimeSyncResp: make(chan protocol.ServerTime, 10),
		StreamStart:  make(chan protocol.StreamStart, 1),
		Metadata:     make(chan protocol.StreamMetadata, 10),
		Status:       make(chan protocol.SynthStatus, 10),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:       c.config.ClientID,
		Name:           c.config.Name,
		Version:        c.config.Version,
		SupportedRoles: c.config.Roles,
		DeviceInfo:     &c.config.DeviceInfo,
	}
	if len(c.config.Codecs) > 0 {
		hello.ListenerSupport = &protocol.ListenerSupport{SupportCodecs: c.config.Codecs}
	}

	if err := c.sendJSON(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var serverMsg protocol.Message
	if err := json.Unmarshal(data, &serverMsg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch serverMsg.Type {
	case protocol.TypeServerHello:
	case protocol.TypeServerError:
		var se protocol.ServerError
		protocol.DecodePayload(serverMsg.Payload, &se)
		return fmt.Errorf("server rejected connection: %s (%s)", se.Message, se.Error)
	default:
		return fmt.Errorf("expected server/hello, got %s", serverMsg.Type)
	}

	var sh protocol.ServerHello
	if err := protocol.DecodePayload(serverMsg.Payload, &sh); err != nil {
		return err
	}

	c.mu.Lock()
	c.hello = sh
	c.mu.Unlock()

	log.Printf("Handshake complete with %s (%d Hz, patches: %v)", sh.Name, sh.SampleRate, sh.Patches)
	return nil
}

// ServerHello returns the server's handshake reply
func (c *Client) ServerHello() protocol.ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msgType string, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// sendBinary sends a binary frame
func (c *Client) sendBinary(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsConnected() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			c.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage handles audio chunks
func (c *Client) handleBinaryMessage(data []byte) {
	if len(data) < 9 {
		log.Printf("Invalid binary message: too short")
		return
	}

	if data[0] != protocol.AudioChunkMessageType {
		log.Printf("Unknown binary message type: %d", data[0])
		return
	}

	chunk := AudioChunk{
		Timestamp: int64(binary.BigEndian.Uint64(data[1:9])),
		Data:      data[9:],
	}

	select {
	case c.AudioChunks <- chunk:
	case <-c.ctx.Done():
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeServerTime:
		var timeMsg protocol.ServerTime
		if err := protocol.DecodePayload(msg.Payload, &timeMsg); err != nil {
			log.Printf("Bad server/time: %v", err)
			return
		}
		deliver(c.ctx, c.TimeSyncResp, timeMsg)

	case protocol.TypeStreamStart:
		var start protocol.StreamStart
		if err := protocol.DecodePayload(msg.Payload, &start); err != nil {
			log.Printf("Bad stream/start: %v", err)
			return
		}
		deliver(c.ctx, c.StreamStart, start)

	case protocol.TypeStreamMetadata:
		var meta protocol.StreamMetadata
		if err := protocol.DecodePayload(msg.Payload, &meta); err != nil {
			log.Printf("Bad stream/metadata: %v", err)
			return
		}
		deliver(c.ctx, c.Metadata, meta)

	case protocol.TypeSynthStatus:
		var st protocol.SynthStatus
		if err := protocol.DecodePayload(msg.Payload, &st); err != nil {
			log.Printf("Bad synth/status: %v", err)
			return
		}
		// Stale snapshots are worthless; never block the reader on them
		select {
		case c.Status <- st:
		default:
		}

	case protocol.TypeServerError:
		var se protocol.ServerError
		protocol.DecodePayload(msg.Payload, &se)
		log.Printf("Server error: %s (%s)", se.Message, se.Error)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// deliver blocks until ch accepts v or the client closes
func deliver[T any](ctx context.Context, ch chan T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}

// Handle sends a control event; it lets a Client stand in for a local Synth
func (c *Client) Handle(ev synth.Event) {
	if err := c.SendEvent(ev); err != nil {
		log.Printf("Failed to send %s: %v", ev, err)
	}
}

// SendEvent sends a synth/event message
func (c *Client) SendEvent(ev synth.Event) error {
	return c.sendJSON(protocol.TypeSynthEvent, protocol.FromEvent(ev))
}

// SendMIDI sends raw MIDI bytes in one binary frame
func (c *Client) SendMIDI(data []byte) error {
	frame := make([]byte, 1+len(data))
	frame[0] = protocol.MIDIMessageType
	copy(frame[1:], data)
	return c.sendBinary(frame)
}

// SendEventMIDI encodes ev as MIDI and sends it as a binary frame
func (c *Client) SendEventMIDI(ev synth.Event) error {
	data, err := midi.Encode(ev)
	if err != nil {
		return err
	}
	return c.SendMIDI(data)
}

// RequestStatus asks the server for a synth/status snapshot
func (c *Client) RequestStatus() error {
	return c.sendJSON(protocol.TypeStatusRequest, nil)
}

// SendTimeSync sends a client/time message
func (c *Client) SendTimeSync(t1 int64) error {
	return c.sendJSON(protocol.TypeClientTime, protocol.ClientTime{ClientTransmitted: t1})
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
