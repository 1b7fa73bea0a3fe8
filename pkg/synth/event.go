// ABOUTME: Control event variant consumed by the synthesizer
// ABOUTME: One tagged struct covers notes, wheels, patch and volume changes
package synth

import "fmt"

// EventKind tags the variant carried by an Event
type EventKind int

const (
	KindNoteOn EventKind = iota + 1
	KindNoteOff
	KindPitchWheel
	KindModWheel
	KindPatchChange
	KindVolume
	KindControl // any other controller; accepted and ignored
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindPitchWheel:
		return "pitch_wheel"
	case KindModWheel:
		return "mod_wheel"
	case KindPatchChange:
		return "patch_change"
	case KindVolume:
		return "volume"
	case KindControl:
		return "control"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseEventKind is the inverse of EventKind.String
func ParseEventKind(name string) (EventKind, bool) {
	for k := KindNoteOn; k <= KindControl; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Event is a single control message. Which fields matter depends on Kind:
//   - KindNoteOn: Note, Velocity (0..127)
//   - KindNoteOff: Note
//   - KindPitchWheel: Bend in [-1,1]
//   - KindModWheel, KindVolume, KindPatchChange: Value
//   - KindControl: Controller, Value
type Event struct {
	Kind       EventKind
	Channel    int
	Note       int
	Velocity   int
	Controller int
	Value      int
	Bend       float64
}

func (e Event) String() string {
	switch e.Kind {
	case KindNoteOn:
		return fmt.Sprintf("%s ch=%d note=%d vel=%d", e.Kind, e.Channel, e.Note, e.Velocity)
	case KindNoteOff:
		return fmt.Sprintf("%s ch=%d note=%d", e.Kind, e.Channel, e.Note)
	case KindPitchWheel:
		return fmt.Sprintf("%s ch=%d bend=%.3f", e.Kind, e.Channel, e.Bend)
	case KindControl:
		return fmt.Sprintf("%s ch=%d cc=%d value=%d", e.Kind, e.Channel, e.Controller, e.Value)
	default:
		return fmt.Sprintf("%s ch=%d value=%d", e.Kind, e.Channel, e.Value)
	}
}

// NoteOn builds a note-on event
func NoteOn(channel, note, velocity int) Event {
	return Event{Kind: KindNoteOn, Channel: channel, Note: note, Velocity: velocity}
}

// NoteOff builds a note-off event
func NoteOff(channel, note int) Event {
	return Event{Kind: KindNoteOff, Channel: channel, Note: note}
}

// PitchWheel builds a pitch-wheel event from a [-1,1] position
func PitchWheel(channel int, bend float64) Event {
	return Event{Kind: KindPitchWheel, Channel: channel, Bend: bend}
}

// ModWheel builds a modulation-wheel event
func ModWheel(channel, value int) Event {
	return Event{Kind: KindModWheel, Channel: channel, Value: value}
}

// PatchChange builds a program-change event
func PatchChange(channel, value int) Event {
	return Event{Kind: KindPatchChange, Channel: channel, Value: value}
}

// Volume builds a channel-volume event
func Volume(channel, value int) Event {
	return Event{Kind: KindVolume, Channel: channel, Value: value}
}
