// ABOUTME: Fixed-size voice pool implementing polyphony and voice stealing
// ABOUTME: Maps note and patch events onto pre-allocated voices and mixes them
package synth

// centsPerSemitone converts MIDI note numbers to cents
const centsPerSemitone = 100

// StealPolicy chooses which sounding voice a new note takes over
type StealPolicy int

const (
	// StealRoundRobin takes the slot after the most recently assigned one,
	// wrapping to 0. It may steal a loud note over a quiet one.
	StealRoundRobin StealPolicy = iota
)

// Pool owns every voice. Its size is fixed at construction.
type Pool struct {
	voices   []Voice
	newest   int
	rate     float64
	bank     Bank
	ctrl     *Controller
	template Envelope
	policy   StealPolicy
	epsilon  float64
	mixDown  float64
}

// VoiceState is a read-only snapshot of one voice
type VoiceState struct {
	Index      int
	Key        int // cents, negative when free
	Velocity   float64
	Instrument int
	Phase      Phase
	Level      float64
}

// Note returns the MIDI note number of the voice, or -1 when free
func (s VoiceState) Note() int {
	if s.Key < 0 {
		return -1
	}
	return s.Key / centsPerSemitone
}

// NewPool allocates cfg.Voices free voices
func NewPool(cfg Config, bank Bank, ctrl *Controller) *Pool {
	cfg = cfg.withDefaults()
	if ctrl == nil {
		ctrl = NewController(cfg)
	}
	p := &Pool{
		voices:   make([]Voice, cfg.Voices),
		rate:     float64(cfg.SampleRate),
		bank:     bank,
		ctrl:     ctrl,
		template: NewEnvelopeRef(cfg.Envelope, float64(cfg.SampleRate), cfg.DynamicRange),
		policy:   StealRoundRobin,
		epsilon:  cfg.Epsilon,
		mixDown:  cfg.MixDown,
	}
	p.clear()
	return p
}

// Len returns the pool capacity
func (p *Pool) Len() int {
	return len(p.voices)
}

// NoteOn starts a note, retriggering it in place when it is already
// sounding, otherwise taking a free voice or stealing one
func (p *Pool) NoteOn(note, velocity int) {
	if note < 0 {
		return
	}
	key := note * centsPerSemitone
	vel := float64(clamp7(velocity)) / 127

	target := -1
	for i := range p.voices {
		v := &p.voices[i]
		if v.key == key {
			v.velocity = vel
			v.env.Reset()
			v.phase.Reset()
			return
		}
		if target < 0 && v.Free() {
			target = i
		}
	}
	if target < 0 {
		target = p.steal()
	}

	v := &p.voices[target]
	v.key = key
	v.velocity = vel
	v.instrument = p.ctrl.Patch()
	v.Play(p.rate, p.bank)
	if bend := p.ctrl.Bend(); bend != 0 {
		v.pitch(bend)
	}
	v.env.Reset()
	p.newest = target
}

// NoteOff releases every voice holding the note
func (p *Pool) NoteOff(note int) {
	key := note * centsPerSemitone
	for i := range p.voices {
		if p.voices[i].key == key && key >= 0 {
			p.voices[i].env.SustainOff()
		}
	}
}

// PatchChange selects an instrument and silences every voice at once
func (p *Pool) PatchChange(value int) {
	n := len(p.bank)
	patch := 0
	if n > 0 {
		patch = ((value % n) + n) % n
	}
	p.ctrl.setPatch(patch)
	p.clear()
}

// Output sums every sounding voice and applies the global volume
func (p *Pool) Output() float64 {
	sum := 0.0
	for i := range p.voices {
		if !p.voices[i].Free() {
			sum += p.voices[i].Output()
		}
	}
	return sum * p.ctrl.VolumeRatio()
}

// Next applies modulation and advances every voice by one tick
func (p *Pool) Next() {
	p.ctrl.Tick(p)
	for i := range p.voices {
		p.voices[i].Next()
	}
}

// Voices returns a snapshot of every slot
func (p *Pool) Voices() []VoiceState {
	states := make([]VoiceState, len(p.voices))
	for i := range p.voices {
		v := &p.voices[i]
		states[i] = VoiceState{
			Index:      i,
			Key:        v.key,
			Velocity:   v.velocity,
			Instrument: v.instrument,
			Phase:      v.env.Phase(),
			Level:      v.env.Output(),
		}
	}
	return states
}

// Active counts sounding voices
func (p *Pool) Active() int {
	n := 0
	for i := range p.voices {
		if !p.voices[i].Free() {
			n++
		}
	}
	return n
}

// steal picks a slot when every voice is busy
func (p *Pool) steal() int {
	// StealRoundRobin is the only policy
	next := p.newest + 1
	if next >= len(p.voices) {
		next = 0
	}
	return next
}

// clear returns every voice to the free state bound to the current patch
func (p *Pool) clear() {
	patch := p.ctrl.Patch()
	for i := range p.voices {
		p.voices[i] = Voice{
			key:        freeKey,
			instrument: patch,
			env:        p.template,
			epsilon:    p.epsilon,
			mixDown:    p.mixDown,
		}
		p.voices[i].Play(p.rate, p.bank)
	}
}

// each calls fn for every sounding voice
func (p *Pool) each(fn func(v *Voice)) {
	for i := range p.voices {
		if !p.voices[i].Free() {
			fn(&p.voices[i])
		}
	}
}

func clamp7(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
