// ABOUTME: Bubbletea model for the keyboard piano
// ABOUTME: Maps computer keys to note and control events and shows a voice meter
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/protocol"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminals report key presses but not releases. A held key auto-repeats,
// so a note stays on while repeats keep arriving within holdTime.
const (
	defaultHold    = 600 * time.Millisecond
	statusInterval = 100 * time.Millisecond

	bendStep   = 0.25
	volumeStep = 8
)

// pianoKeys maps the home and upper letter rows to semitones above the
// octave base
var pianoKeys = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6, "g": 7,
	"y": 8, "h": 9, "u": 10, "j": 11, "k": 12, "o": 13, "l": 14, "p": 15,
	";": 16, "'": 17,
}

// EventSink receives events produced by the keyboard. *synth.Synth and a
// remote *client.Client both satisfy it.
type EventSink interface {
	Handle(ev synth.Event)
}

// StatusFunc returns the latest synth snapshot; ok is false when none is
// available yet
type StatusFunc func() (status protocol.SynthStatus, ok bool)

// Model represents the keyboard state
type Model struct {
	sink    EventSink
	status  StatusFunc
	title   string
	patches []string
	hold    time.Duration

	// Performance state
	base     int // MIDI note of the "a" key
	velocity int
	patch    int
	volume   int
	bend     float64
	mod      bool
	held     map[int]int // note -> release generation
	gen      int

	// Last snapshot
	snapshot protocol.SynthStatus
	haveSnap bool

	// Link to a remote synth
	latency     func() string
	latencyText string

	quitting bool
	width    int
}

// StatusMsg carries a synth snapshot into the model
type StatusMsg protocol.SynthStatus

type tickMsg time.Time

// releaseMsg ends a note unless the key repeated since it was scheduled
type releaseMsg struct {
	note int
	gen  int
}

// NewModel creates a keyboard driving sink
func NewModel(title string, patches []string, sink EventSink, status StatusFunc) Model {
	return Model{
		sink:     sink,
		status:   status,
		title:    title,
		patches:  patches,
		hold:     defaultHold,
		base:     60,
		velocity: 100,
		volume:   127,
		held:     make(map[int]int),
	}
}

// WithLatency adds a link latency readout refreshed with the status
func (m Model) WithLatency(fn func() string) Model {
	m.latency = fn
	return m
}

// Init starts status polling
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case releaseMsg:
		if gen, ok := m.held[msg.note]; ok && gen == msg.gen {
			delete(m.held, msg.note)
			m.send(synth.NoteOff(0, msg.note))
		}
	case tickMsg:
		if m.status != nil {
			if st, ok := m.status(); ok {
				m.applyStatus(StatusMsg(st))
			}
		}
		if m.latency != nil {
			m.latencyText = m.latency()
		}
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

func (m *Model) send(ev synth.Event) {
	if m.sink != nil {
		m.sink.Handle(ev)
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if offset, ok := pianoKeys[key]; ok {
		return m.press(m.base + offset)
	}

	switch key {
	case "q", "ctrl+c":
		m.releaseAll()
		m.quitting = true
		return m, tea.Quit
	case "z":
		if m.base-12 >= 0 {
			m.releaseAll()
			m.base -= 12
		}
	case "x":
		if m.base+12+17 <= 127 {
			m.releaseAll()
			m.base += 12
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.held = make(map[int]int)
		m.patch = int(key[0] - '1')
		m.send(synth.PatchChange(0, m.patch))
	case "up":
		m.setVolume(m.volume + volumeStep)
	case "down":
		m.setVolume(m.volume - volumeStep)
	case "right":
		m.setBend(m.bend + bendStep)
	case "left":
		m.setBend(m.bend - bendStep)
	case "b":
		m.setBend(0)
	case "m":
		m.mod = !m.mod
		value := 0
		if m.mod {
			value = 127
		}
		m.send(synth.ModWheel(0, value))
	case "-":
		m.velocity = clampInt(m.velocity-16, 1, 127)
	case "=", "+":
		m.velocity = clampInt(m.velocity+16, 1, 127)
	case " ":
		m.releaseAll()
	}

	return m, nil
}

// press starts a note, or extends it when the key is auto-repeating
func (m Model) press(note int) (tea.Model, tea.Cmd) {
	if note < 0 || note > 127 {
		return m, nil
	}
	if _, ok := m.held[note]; !ok {
		m.send(synth.NoteOn(0, note, m.velocity))
	}
	m.gen++
	m.held[note] = m.gen

	release := releaseMsg{note: note, gen: m.gen}
	return m, tea.Tick(m.hold, func(time.Time) tea.Msg { return release })
}

func (m *Model) releaseAll() {
	for note := range m.held {
		m.send(synth.NoteOff(0, note))
	}
	m.held = make(map[int]int)
}

func (m *Model) setVolume(v int) {
	m.volume = clampInt(v, 0, 127)
	m.send(synth.Volume(0, m.volume))
}

func (m *Model) setBend(b float64) {
	if b > 1 {
		b = 1
	} else if b < -1 {
		b = -1
	}
	m.bend = b
	m.send(synth.PitchWheel(0, b))
}

// applyStatus updates the model from a snapshot
func (m *Model) applyStatus(msg StatusMsg) {
	m.snapshot = protocol.SynthStatus(msg)
	m.haveSnap = true
	m.patch = msg.Patch
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Releasing notes...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	field(&b, "Patch", fmt.Sprintf("%d %s", m.patch+1, m.patchName()))
	field(&b, "Octave", fmt.Sprintf("%s-%s", NoteName(m.base), NoteName(m.base+17)))
	field(&b, "Velocity", fmt.Sprintf("%d", m.velocity))
	field(&b, "Volume", fmt.Sprintf("[%s] %d", renderBar(m.volume, 127, 10), m.volume))
	field(&b, "Bend", fmt.Sprintf("%+.2f", m.bend))
	mod := "off"
	if m.mod {
		mod = "on"
	}
	field(&b, "Vibrato", mod)
	if m.latency != nil {
		field(&b, "Latency", m.latencyText)
	}
	b.WriteString("\n")

	b.WriteString(m.renderVoices())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("a-' play  z/x octave  1-9 patch  ↑/↓ volume  ←/→ bend  b centre  m vibrato  -/= velocity  space release  q quit"))

	return b.String()
}

// renderVoices renders one meter row per voice slot
func (m Model) renderVoices() string {
	if !m.haveSnap {
		return valueStyle.Render("  Waiting for synth status...") + "\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("Voices (%d/%d active)", m.snapshot.Active, len(m.snapshot.Voices))
	if m.snapshot.Listeners > 0 {
		header += fmt.Sprintf("  Listeners: %d", m.snapshot.Listeners)
	}
	if m.snapshot.Dropped > 0 {
		header += fmt.Sprintf("  Dropped events: %d", m.snapshot.Dropped)
	}
	b.WriteString(voiceHeaderStyle.Render(header))
	b.WriteString("\n")

	for i, v := range m.snapshot.Voices {
		if v.Note < 0 {
			b.WriteString(idleStyle.Render(fmt.Sprintf("  %2d  ---  %-8s", i+1, v.Phase)))
			b.WriteString("\n")
			continue
		}
		level := int(v.Level * 100)
		b.WriteString(fmt.Sprintf("  %2d  %-4s %-8s %s", i+1, NoteName(v.Note), v.Phase,
			meterStyle.Render(renderBar(level, 100, 20))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) patchName() string {
	if m.haveSnap && m.snapshot.PatchName != "" {
		return m.snapshot.PatchName
	}
	if m.patch >= 0 && m.patch < len(m.patches) {
		return m.patches[m.patch]
	}
	return ""
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s", name+":")))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName formats a MIDI note number, with middle C (60) as C4
func NoteName(note int) string {
	if note < 0 {
		return "-"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := clampInt((value*width)/max, 0, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
