// ABOUTME: Network front end for the wavetable synthesizer
// ABOUTME: Accepts control events over WebSocket and streams audio to listeners
package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/discovery"
	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/midi"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Path is the WebSocket endpoint
const Path = "/synth"

// Config holds server configuration
type Config struct {
	Port        int
	Name        string
	EnableMDNS  bool
	Debug       bool
	DisableOpus bool // stream pcm only
}

// Engine is the synthesizer the server drives
type Engine interface {
	Enqueue(ev synth.Event) bool
	Status() synth.Status
	SampleRate() int
}

// Server accepts controllers and listeners for one synthesizer
type Server struct {
	config   Config
	serverID string
	engine   Engine
	patches  []string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// Server clock (monotonic microseconds)
	clockStart time.Time

	// Audio streaming
	audioEngine *AudioEngine

	// mDNS discovery
	mdnsManager *discovery.Manager

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected controller or listener
type Client struct {
	ID      string
	Name    string
	Conn    *websocket.Conn
	Roles   []string
	Support *protocol.ListenerSupport

	// Negotiated codec for listeners
	Codec string

	// Running status persists across binary MIDI frames
	midi *midi.Decoder

	// Output channel for messages
	sendChan chan interface{}

	mu sync.RWMutex
}

// New creates a server for engine. patches names the bank's instruments
// in patch order.
func New(config Config, engine Engine, patches []string) (*Server, error) {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		engine:   engine,
		patches:  patches,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network instrument; browsers on any origin may play it
				if origin := r.Header.Get("Origin"); origin != "" && config.Debug {
					log.Printf("[DEBUG] WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:    make(map[string]*Client),
		clockStart: time.Now(),
		stopChan:   make(chan struct{}),
	}

	audioEngine, err := NewAudioEngine(s, engine.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("failed to create audio engine: %w", err)
	}
	s.audioEngine = audioEngine

	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s, nil
}

// Handler returns the HTTP handler serving the synth endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Tap wraps r so its output is streamed to listeners
func (s *Server) Tap(r synth.Renderer) synth.Renderer {
	return s.audioEngine.Tap(r)
}

// ListenerCount returns the number of connected listeners
func (s *Server) ListenerCount() int {
	return s.audioEngine.ListenerCount()
}

// ClientCount returns the number of connected clients of any role
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Start listens on the configured port and serves until Stop
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called or serving fails
func (s *Server) Serve(ln net.Listener) error {
	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        Path,
			Patches:     s.patches,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.audioEngine.Start()
	}()

	log.Printf("WebSocket server listening on %s%s", ln.Addr(), Path)

	s.httpServer = &http.Server{
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.audioEngine.Stop()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Hijacked websocket connections outlive Shutdown
	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// rejectHandshake sends server/error directly; the writer is not running yet
func rejectHandshake(conn *websocket.Conn, code, message string) {
	msg := protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	}
	if data, err := json.Marshal(msg); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	if s.config.Debug {
		log.Printf("[DEBUG] New connection, waiting for handshake")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Type != protocol.TypeClientHello {
		log.Printf("Expected client/hello, got %s", msg.Type)
		rejectHandshake(conn, "handshake_required", "first message must be client/hello")
		return
	}

	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil {
		log.Printf("Error decoding client hello: %v", err)
		return
	}

	if hello.ClientID == "" || hello.Name == "" {
		log.Printf("Client hello missing ClientID or Name")
		rejectHandshake(conn, "invalid_hello", "client_id and name are required")
		return
	}

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		Roles:    hello.SupportedRoles,
		Support:  hello.ListenerSupport,
		midi:     midi.NewDecoder(),
		sendChan: make(chan interface{}, 100),
	}

	if !s.hasRole(client, protocol.RoleController) && !s.hasRole(client, protocol.RoleListener) {
		log.Printf("Client %s has no supported role: %v", hello.Name, hello.SupportedRoles)
		rejectHandshake(conn, "no_supported_role", "supported roles are controller and listener")
		return
	}

	log.Printf("Client hello: %s (ID: %s, Roles: %v)", hello.Name, hello.ClientID, hello.SupportedRoles)

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)
		rejectHandshake(conn, "duplicate_client_id", "Client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		log.Printf("Client disconnected: %s", client.Name)
	}()

	serverHello := protocol.ServerHello{
		ServerID:   s.serverID,
		SessionID:  uuid.New().String(),
		Name:       s.config.Name,
		Version:    protocol.Version,
		SampleRate: s.engine.SampleRate(),
		Patches:    s.patches,
	}

	if err := s.sendMessage(client, protocol.TypeServerHello, serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	if s.hasRole(client, protocol.RoleListener) {
		s.audioEngine.AddClient(client)
		defer s.audioEngine.RemoveClient(client)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if msgType == websocket.BinaryMessage {
			s.handleBinaryMessage(client, data)
			continue
		}
		s.handleClientMessage(client, data)
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes JSON messages from clients
func (s *Server) handleClientMessage(client *Client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeClientTime:
		s.handleTimeSync(client, msg.Payload)
	case protocol.TypeSynthEvent:
		s.handleSynthEvent(client, msg.Payload)
	case protocol.TypeStatusRequest:
		if err := s.sendMessage(client, protocol.TypeSynthStatus, s.Status()); err != nil && s.config.Debug {
			log.Printf("[DEBUG] Dropping status for %s: %v", client.Name, err)
		}
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// handleBinaryMessage processes binary frames; only raw MIDI is accepted
func (s *Server) handleBinaryMessage(client *Client, data []byte) {
	if len(data) == 0 || data[0] != protocol.MIDIMessageType {
		log.Printf("Ignoring binary message from %s", client.Name)
		return
	}
	if !s.hasRole(client, protocol.RoleController) {
		log.Printf("Ignoring MIDI from non-controller %s", client.Name)
		return
	}

	events, err := client.midi.Decode(data[1:])
	for _, ev := range events {
		s.dispatch(client, ev)
	}
	if err != nil {
		log.Printf("Bad MIDI from %s: %v", client.Name, err)
	}
}

// handleSynthEvent applies a JSON control event
func (s *Server) handleSynthEvent(client *Client, payload interface{}) {
	if !s.hasRole(client, protocol.RoleController) {
		log.Printf("Ignoring synth/event from non-controller %s", client.Name)
		return
	}

	var wire protocol.SynthEvent
	if err := protocol.DecodePayload(payload, &wire); err != nil {
		log.Printf("Error decoding synth event: %v", err)
		return
	}

	ev, ok := wire.Event()
	if !ok {
		log.Printf("Unknown synth event kind from %s: %q", client.Name, wire.Kind)
		return
	}
	s.dispatch(client, ev)
}

// dispatch queues an event for the next rendered block
func (s *Server) dispatch(client *Client, ev synth.Event) {
	if s.config.Debug {
		log.Printf("[DEBUG] %s: %s", client.Name, ev)
	}

	if !s.engine.Enqueue(ev) {
		return
	}

	if ev.Kind == synth.KindPatchChange {
		s.audioEngine.Broadcast(protocol.TypeStreamMetadata, protocol.StreamMetadata{
			Title:  s.patchName(ev.Value),
			Artist: s.config.Name,
		})
	}
}

// patchName resolves a patch change value the way the voice pool does
func (s *Server) patchName(value int) string {
	n := len(s.patches)
	if n == 0 {
		return ""
	}
	return s.patches[((value%n)+n)%n]
}

// metadata describes the current patch
func (s *Server) metadata() protocol.StreamMetadata {
	st := s.engine.Status()
	return protocol.StreamMetadata{
		Title:  s.patchName(st.Patch),
		Artist: s.config.Name,
	}
}

// Status returns the wire status snapshot
func (s *Server) Status() protocol.SynthStatus {
	return protocol.StatusFrom(s.engine.Status(), s.patches, s.ListenerCount())
}

// handleTimeSync responds to round-trip measurement requests
func (s *Server) handleTimeSync(client *Client, payload interface{}) {
	serverRecv := s.getClockMicros()

	var clientTime protocol.ClientTime
	if err := protocol.DecodePayload(payload, &clientTime); err != nil {
		log.Printf("Error decoding client time: %v", err)
		return
	}

	// Queue time, not wire time; clientWriter sends asynchronously
	serverSend := s.getClockMicros()

	if s.config.Debug {
		log.Printf("[DEBUG] Time sync for %s: t1=%d, t2=%d, t3=%d",
			client.Name, clientTime.ClientTransmitted, serverRecv, serverSend)
	}

	response := protocol.ServerTime{
		ClientTransmitted: clientTime.ClientTransmitted,
		ServerReceived:    serverRecv,
		ServerTransmitted: serverSend,
	}

	if err := s.sendMessage(client, protocol.TypeServerTime, response); err != nil {
		log.Printf("Error sending server time: %v", err)
	}
}

// sendMessage sends a JSON message to a client
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// sendBinary sends binary data to a client
func (s *Server) sendBinary(client *Client, data []byte) error {
	select {
	case client.sendChan <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// getClockMicros returns the server clock in microseconds
func (s *Server) getClockMicros() int64 {
	return time.Since(s.clockStart).Microseconds()
}

// hasRole checks if a client has a specific role
func (s *Server) hasRole(client *Client, role string) bool {
	for _, r := range client.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CreateAudioChunk creates a binary audio chunk message
func CreateAudioChunk(timestamp int64, audioData []byte) []byte {
	// Binary format: [message_type:1][timestamp:8][audio_data:N]
	chunk := make([]byte, 1+8+len(audioData))
	chunk[0] = protocol.AudioChunkMessageType
	binary.BigEndian.PutUint64(chunk[1:9], uint64(timestamp))
	copy(chunk[9:], audioData)
	return chunk
}
