// ABOUTME: MIDI 1.0 channel message decoder and encoder
// ABOUTME: Converts raw MIDI bytes to synth events, with running status
package midi

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

// Status nibbles of channel voice messages
const (
	StatusNoteOff         = 0x8
	StatusNoteOn          = 0x9
	StatusPolyPressure    = 0xA
	StatusControlChange   = 0xB
	StatusProgramChange   = 0xC
	StatusChannelPressure = 0xD
	StatusPitchWheel      = 0xE
)

// Controller numbers with a dedicated event kind
const (
	ControllerModWheel = 1
	ControllerVolume   = 7
)

const (
	// pitchCentre is the 14-bit pitch wheel rest position
	pitchCentre = 1 << 13

	// pitchScale maps the centred 14-bit range onto [-1,1]
	pitchScale = 2.0 / ((1 << 14) - 1)
)

// Decoder turns a MIDI byte stream into events. It remembers the last
// channel status byte so running status works across calls. Not safe for
// concurrent use.
type Decoder struct {
	running byte
}

// NewDecoder creates a decoder with no running status
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses every complete message in data. Aftertouch and real-time
// bytes are consumed without producing events. Decoding stops at the first
// malformed or unsupported message and returns the events parsed so far.
func (d *Decoder) Decode(data []byte) ([]synth.Event, error) {
	var events []synth.Event
	i := 0
	for i < len(data) {
		b := data[i]

		switch {
		case b >= 0xF8:
			// real-time bytes may appear anywhere
			i++
			continue
		case b >= 0xF0:
			d.running = 0
			return events, fmt.Errorf("unsupported system message 0x%02X", b)
		case b&0x80 != 0:
			d.running = b
			i++
		case d.running == 0:
			return events, fmt.Errorf("data byte 0x%02X without status", b)
		}

		status := d.running
		n := dataLength(status >> 4)
		if i+n > len(data) {
			return events, fmt.Errorf("truncated message 0x%02X: need %d data bytes, have %d", status, n, len(data)-i)
		}

		args := data[i : i+n]
		for _, a := range args {
			if a&0x80 != 0 {
				return events, fmt.Errorf("status byte 0x%02X inside message 0x%02X", a, status)
			}
		}
		i += n

		if ev, ok := toEvent(status, args); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

// Parse decodes a single self-contained message
func Parse(msg []byte) (synth.Event, error) {
	events, err := NewDecoder().Decode(msg)
	if err != nil {
		return synth.Event{}, err
	}
	if len(events) != 1 {
		return synth.Event{}, fmt.Errorf("expected one event, got %d", len(events))
	}
	return events[0], nil
}

func dataLength(command byte) int {
	switch command {
	case StatusProgramChange, StatusChannelPressure:
		return 1
	default:
		return 2
	}
}

func toEvent(status byte, args []byte) (synth.Event, bool) {
	channel := int(status & 0x0F)
	switch status >> 4 {
	case StatusNoteOff:
		return synth.NoteOff(channel, int(args[0])), true
	case StatusNoteOn:
		if args[1] == 0 {
			return synth.NoteOff(channel, int(args[0])), true
		}
		return synth.NoteOn(channel, int(args[0]), int(args[1])), true
	case StatusControlChange:
		switch args[0] {
		case ControllerModWheel:
			return synth.ModWheel(channel, int(args[1])), true
		case ControllerVolume:
			return synth.Volume(channel, int(args[1])), true
		}
		return synth.Event{Kind: synth.KindControl, Channel: channel, Controller: int(args[0]), Value: int(args[1])}, true
	case StatusProgramChange:
		return synth.PatchChange(channel, int(args[0])), true
	case StatusPitchWheel:
		raw := int(args[1])<<7 | int(args[0])
		return synth.PitchWheel(channel, float64(raw-pitchCentre)*pitchScale), true
	}
	// aftertouch
	return synth.Event{}, false
}

// Encode renders an event as a MIDI channel message
func Encode(ev synth.Event) ([]byte, error) {
	ch := byte(ev.Channel & 0x0F)
	switch ev.Kind {
	case synth.KindNoteOn:
		return []byte{StatusNoteOn<<4 | ch, data7(ev.Note), data7(ev.Velocity)}, nil
	case synth.KindNoteOff:
		return []byte{StatusNoteOff<<4 | ch, data7(ev.Note), 0}, nil
	case synth.KindModWheel:
		return []byte{StatusControlChange<<4 | ch, ControllerModWheel, data7(ev.Value)}, nil
	case synth.KindVolume:
		return []byte{StatusControlChange<<4 | ch, ControllerVolume, data7(ev.Value)}, nil
	case synth.KindControl:
		return []byte{StatusControlChange<<4 | ch, data7(ev.Controller), data7(ev.Value)}, nil
	case synth.KindPatchChange:
		return []byte{StatusProgramChange<<4 | ch, data7(ev.Value)}, nil
	case synth.KindPitchWheel:
		raw := int(ev.Bend/pitchScale+0.5*sign(ev.Bend)) + pitchCentre
		if raw < 0 {
			raw = 0
		} else if raw > 0x3FFF {
			raw = 0x3FFF
		}
		return []byte{StatusPitchWheel<<4 | ch, byte(raw & 0x7F), byte(raw >> 7)}, nil
	default:
		return nil, fmt.Errorf("cannot encode event kind %s", ev.Kind)
	}
}

func data7(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return byte(v)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
