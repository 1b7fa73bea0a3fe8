// ABOUTME: Synthesizer configuration
// ABOUTME: Holds polyphony, envelope and mixing settings with defaults
package synth

// Config holds synthesizer settings
type Config struct {
	SampleRate   int            // Host sampling rate in Hz
	Voices       int            // Maximum simultaneous notes
	Envelope     EnvelopeParams // Envelope applied to every note
	DynamicRange float64        // dB covered by decay and release
	Epsilon      float64        // Release level at which a voice is freed
	MixDown      float64        // Per-voice attenuation before summing
	Volume       float64        // Initial global volume ratio
	QueueSize    int            // Capacity of the Enqueue event queue
}

// DefaultConfig returns the settings the synthesizer ships with
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Voices:     10,
		Envelope: EnvelopeParams{
			Attack:  0.01,
			Decay:   600,
			Sustain: 0.8,
			Release: 4,
		},
		DynamicRange: DefaultDynamicRange,
		Epsilon:      0.01,
		MixDown:      0.3,
		Volume:       0.5,
		QueueSize:    256,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Voices <= 0 {
		c.Voices = d.Voices
	}
	if c.Envelope == (EnvelopeParams{}) {
		c.Envelope = d.Envelope
	}
	if c.DynamicRange <= 0 {
		c.DynamicRange = d.DynamicRange
	}
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	if c.MixDown <= 0 {
		c.MixDown = d.MixDown
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	return c
}
