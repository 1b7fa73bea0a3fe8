// ABOUTME: Synth network protocol message type definitions
// ABOUTME: Defines JSON control messages and binary frame layouts
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

// Version is the protocol version carried in hello messages
const Version = 1

// Client roles
const (
	RoleController = "controller" // sends note and control events
	RoleListener   = "listener"   // receives the rendered audio stream
)

// Message types
const (
	TypeClientHello    = "client/hello"
	TypeServerHello    = "server/hello"
	TypeServerError    = "server/error"
	TypeClientTime     = "client/time"
	TypeServerTime     = "server/time"
	TypeSynthEvent     = "synth/event"
	TypeSynthStatus    = "synth/status"
	TypeStatusRequest  = "synth/status_request"
	TypeStreamStart    = "stream/start"
	TypeStreamMetadata = "stream/metadata"
)

// Binary frame types (first byte of a binary websocket message)
const (
	// AudioChunkMessageType: [type:1][timestamp:8 BE µs][audio:N], server to listener
	AudioChunkMessageType = 1
	// MIDIMessageType: [type:1][raw MIDI bytes], controller to server
	MIDIMessageType = 2
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID        string           `json:"client_id"`
	Name            string           `json:"name"`
	Version         int              `json:"version"`
	SupportedRoles  []string         `json:"supported_roles"`
	DeviceInfo      *DeviceInfo      `json:"device_info,omitempty"`
	ListenerSupport *ListenerSupport `json:"listener_support,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ListenerSupport lists the stream codecs a listener can decode, in
// order of preference
type ListenerSupport struct {
	SupportCodecs []string `json:"support_codecs,omitempty"`
}

// AudioFormat describes a stream format
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID   string   `json:"server_id"`
	SessionID  string   `json:"session_id"`
	Name       string   `json:"name"`
	Version    int      `json:"version"`
	SampleRate int      `json:"sample_rate"`
	Patches    []string `json:"patches"`
}

// ServerError reports a rejected handshake or message
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SynthEvent is one control event in wire form. Kind is one of note_on,
// note_off, pitch_wheel, mod_wheel, patch_change, volume, control.
type SynthEvent struct {
	Kind       string  `json:"kind"`
	Channel    int     `json:"channel,omitempty"`
	Note       int     `json:"note,omitempty"`
	Velocity   int     `json:"velocity,omitempty"`
	Controller int     `json:"controller,omitempty"`
	Value      int     `json:"value,omitempty"`
	Bend       float64 `json:"bend,omitempty"`
}

// SynthStatus is a snapshot of the synthesizer for remote displays
type SynthStatus struct {
	Patch     int         `json:"patch"`
	PatchName string      `json:"patch_name"`
	Volume    float64     `json:"volume"`
	Bend      float64     `json:"bend"`
	Vibrato   float64     `json:"vibrato"`
	Active    int         `json:"active"`
	Dropped   uint64      `json:"dropped"`
	Listeners int         `json:"listeners"`
	Voices    []VoiceInfo `json:"voices"`
}

// VoiceInfo is one voice slot in a status snapshot
type VoiceInfo struct {
	Note  int     `json:"note"` // -1 when free
	Phase string  `json:"phase"`
	Level float64 `json:"level"`
}

// StreamStart notifies a listener of the stream format
type StreamStart struct {
	AudioFormat
	CodecHeader string `json:"codec_header,omitempty"` // Base64-encoded
}

// StreamMetadata names what is sounding
type StreamMetadata struct {
	Title  string `json:"title,omitempty"`  // patch name
	Artist string `json:"artist,omitempty"` // server name
}

// ClientTime is sent for round-trip measurement
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // Client timestamp in microseconds
}

// ServerTime is the response to client/time
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"` // Echoed client timestamp
	ServerReceived    int64 `json:"server_received"`    // Server receive timestamp
	ServerTransmitted int64 `json:"server_transmitted"` // Server send timestamp
}

// FromEvent converts a synth event to wire form
func FromEvent(ev synth.Event) SynthEvent {
	return SynthEvent{
		Kind:       ev.Kind.String(),
		Channel:    ev.Channel,
		Note:       ev.Note,
		Velocity:   ev.Velocity,
		Controller: ev.Controller,
		Value:      ev.Value,
		Bend:       ev.Bend,
	}
}

// Event converts the wire form back to a synth event. ok is false for an
// unknown kind.
func (e SynthEvent) Event() (synth.Event, bool) {
	kind, ok := synth.ParseEventKind(e.Kind)
	if !ok {
		return synth.Event{}, false
	}
	return synth.Event{
		Kind:       kind,
		Channel:    e.Channel,
		Note:       e.Note,
		Velocity:   e.Velocity,
		Controller: e.Controller,
		Value:      e.Value,
		Bend:       e.Bend,
	}, true
}

// DecodePayload re-decodes a generic JSON payload into v
func DecodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// StatusFrom builds a wire status from a synth snapshot
func StatusFrom(st synth.Status, patches []string, listeners int) SynthStatus {
	out := SynthStatus{
		Patch:     st.Patch,
		Volume:    st.Volume,
		Bend:      st.Bend,
		Vibrato:   st.Vibrato,
		Active:    st.Active,
		Dropped:   st.Dropped,
		Listeners: listeners,
		Voices:    make([]VoiceInfo, len(st.Voices)),
	}
	if st.Patch >= 0 && st.Patch < len(patches) {
		out.PatchName = patches[st.Patch]
	}
	for i, v := range st.Voices {
		out.Voices[i] = VoiceInfo{Note: v.Note(), Phase: v.Phase.String(), Level: v.Level}
		if v.Note() < 0 {
			out.Voices[i].Level = 0
		}
	}
	return out
}
