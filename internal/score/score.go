// ABOUTME: Lua score interpreter driving a synthesizer offline
// ABOUTME: Exposes event functions to Lua and renders audio between them
package score

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
	lua "github.com/yuin/gopher-lua"
)

// blockSize is the render granularity inside wait
const blockSize = 1024

// Performer is the synthesizer a score plays
type Performer interface {
	Handle(ev synth.Event)
	Render(dst []float32)
	SampleRate() int
}

// Sink receives rendered mono audio
type Sink interface {
	Write(samples []float32) error
}

// Score runs Lua scripts against a performer
type Score struct {
	performer Performer
	sink      Sink
	rate      int
	limit     int64 // frames
	frames    int64
	block     []float32
}

// New creates a score rendering into sink. Rendering stops with an error
// once limit of audio has been produced; zero means no limit.
func New(performer Performer, sink Sink, limit time.Duration) *Score {
	rate := performer.SampleRate()
	return &Score{
		performer: performer,
		sink:      sink,
		rate:      rate,
		limit:     int64(limit.Seconds() * float64(rate)),
		block:     make([]float32, blockSize),
	}
}

// Frames returns the number of frames rendered so far
func (sc *Score) Frames() int64 {
	return sc.frames
}

// Duration returns the length of audio rendered so far
func (sc *Score) Duration() time.Duration {
	return time.Duration(float64(sc.frames) / float64(sc.rate) * float64(time.Second))
}

// Run executes a score held in memory. name labels error messages.
func (sc *Score) Run(name, source string) error {
	L := sc.newState()
	defer L.Close()

	fn, err := L.Load(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("failed to parse score: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("score failed: %w", err)
	}
	return nil
}

// RunFile executes a score file
func (sc *Score) RunFile(path string) error {
	L := sc.newState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("score failed: %w", err)
	}
	return nil
}

// Render advances the synthesizer by d, writing the audio to the sink
func (sc *Score) Render(d time.Duration) error {
	return sc.render(int64(math.Round(d.Seconds() * float64(sc.rate))))
}

func (sc *Score) render(frames int64) error {
	if sc.limit > 0 && sc.frames+frames > sc.limit {
		return fmt.Errorf("score exceeds %v of audio", time.Duration(float64(sc.limit)/float64(sc.rate)*float64(time.Second)))
	}

	for frames > 0 {
		n := int64(len(sc.block))
		if frames < n {
			n = frames
		}
		buf := sc.block[:n]
		sc.performer.Render(buf)
		if err := sc.sink.Write(buf); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
		sc.frames += n
		frames -= n
	}
	return nil
}

// newState builds an interpreter with the score functions registered
func (sc *Score) newState() *lua.LState {
	L := lua.NewState()

	funcs := map[string]lua.LGFunction{
		"note_on":  sc.luaNoteOn,
		"note_off": sc.luaNoteOff,
		"note":     sc.luaNote,
		"pitch":    sc.luaPitch,
		"mod":      sc.luaMod,
		"patch":    sc.luaPatch,
		"volume":   sc.luaVolume,
		"control":  sc.luaControl,
		"wait":     sc.luaWait,
		"time":     sc.luaTime,
	}
	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}
	L.SetGlobal("sample_rate", lua.LNumber(sc.rate))

	return L
}

// checkRange reads an integer argument limited to [lo, hi]
func checkRange(L *lua.LState, n, lo, hi int) int {
	v := L.CheckInt(n)
	if v < lo || v > hi {
		L.ArgError(n, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return v
}

// note_on(note [, velocity])
func (sc *Score) luaNoteOn(L *lua.LState) int {
	note := checkRange(L, 1, 0, 127)
	velocity := L.OptInt(2, 100)
	if velocity < 0 || velocity > 127 {
		L.ArgError(2, "must be between 0 and 127")
	}
	sc.performer.Handle(synth.NoteOn(0, note, velocity))
	return 0
}

// note_off(note)
func (sc *Score) luaNoteOff(L *lua.LState) int {
	sc.performer.Handle(synth.NoteOff(0, checkRange(L, 1, 0, 127)))
	return 0
}

// note(note, seconds [, velocity]) plays a note and waits for it to end
func (sc *Score) luaNote(L *lua.LState) int {
	note := checkRange(L, 1, 0, 127)
	seconds := sc.checkSeconds(L, 2)
	velocity := L.OptInt(3, 100)
	if velocity < 0 || velocity > 127 {
		L.ArgError(3, "must be between 0 and 127")
	}

	sc.performer.Handle(synth.NoteOn(0, note, velocity))
	sc.wait(L, seconds)
	sc.performer.Handle(synth.NoteOff(0, note))
	return 0
}

// pitch(bend) with bend in [-1, 1]
func (sc *Score) luaPitch(L *lua.LState) int {
	bend := float64(L.CheckNumber(1))
	if bend < -1 || bend > 1 {
		L.ArgError(1, "must be between -1 and 1")
	}
	sc.performer.Handle(synth.PitchWheel(0, bend))
	return 0
}

// mod(value)
func (sc *Score) luaMod(L *lua.LState) int {
	sc.performer.Handle(synth.ModWheel(0, checkRange(L, 1, 0, 127)))
	return 0
}

// patch(index)
func (sc *Score) luaPatch(L *lua.LState) int {
	sc.performer.Handle(synth.PatchChange(0, checkRange(L, 1, 0, 127)))
	return 0
}

// volume(value)
func (sc *Score) luaVolume(L *lua.LState) int {
	sc.performer.Handle(synth.Volume(0, checkRange(L, 1, 0, 127)))
	return 0
}

// control(controller, value)
func (sc *Score) luaControl(L *lua.LState) int {
	controller := checkRange(L, 1, 0, 127)
	value := checkRange(L, 2, 0, 127)
	sc.performer.Handle(synth.Event{Kind: synth.KindControl, Controller: controller, Value: value})
	return 0
}

// wait(seconds)
func (sc *Score) luaWait(L *lua.LState) int {
	sc.wait(L, sc.checkSeconds(L, 1))
	return 0
}

// time() returns the seconds rendered so far
func (sc *Score) luaTime(L *lua.LState) int {
	L.Push(lua.LNumber(float64(sc.frames) / float64(sc.rate)))
	return 1
}

func (sc *Score) checkSeconds(L *lua.LState, n int) float64 {
	seconds := float64(L.CheckNumber(n))
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		L.ArgError(n, "must be a non-negative number of seconds")
	}
	return seconds
}

func (sc *Score) wait(L *lua.LState, seconds float64) {
	if err := sc.render(int64(math.Round(seconds * float64(sc.rate)))); err != nil {
		L.RaiseError("%s", err.Error())
	}
}
