// ABOUTME: Global pitch bend, vibrato, volume and patch state
// ABOUTME: Applies bend and a 5 Hz sinusoidal vibrato to every sounding voice
package synth

import "math"

const (
	// centsRange is the reach of both the pitch wheel and full vibrato
	centsRange = 200.0

	// vibratoHz is the vibrato LFO rate
	vibratoHz = 5.0

	twoPi = 2 * math.Pi
)

// Controller holds the performance state shared by all voices of one
// synthesizer instance
type Controller struct {
	bend     float64 // cents
	vibrato  float64 // depth in cents
	mod      float64 // current vibrato offset in cents
	lfoPhase float64 // radians
	lfoStep  float64 // radians per sample
	volume   float64
	patch    int
}

// NewController creates a controller for the configured sampling rate
func NewController(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		lfoStep: vibratoHz * twoPi / float64(cfg.SampleRate),
		volume:  cfg.Volume,
	}
}

// PitchWheel maps [-1,1] onto ±200 cents and retunes every sounding voice
func (c *Controller) PitchWheel(p *Pool, value float64) {
	c.bend = clampUnit(value) * centsRange
	p.each(func(v *Voice) {
		v.pitch(c.bend)
	})
}

// ModWheel maps 0..127 onto a 0..200 cent vibrato depth. Turning vibrato
// off settles sounding voices back onto the bend.
func (c *Controller) ModWheel(p *Pool, value int) {
	c.vibrato = float64(clamp7(value)) * centsRange / 127
	if c.vibrato == 0 {
		c.mod = 0
		p.each(func(v *Voice) {
			v.pitch(c.bend)
		})
	}
}

// Volume maps 0..127 onto the global volume ratio
func (c *Controller) Volume(value int) {
	c.volume = float64(clamp7(value)) / 127
}

// Tick advances the vibrato LFO and retunes sounding voices. Does nothing
// while the vibrato depth is zero.
func (c *Controller) Tick(p *Pool) {
	if c.vibrato == 0 {
		return
	}
	t := c.lfoPhase + c.lfoStep
	if t > twoPi {
		t -= twoPi
	}
	c.lfoPhase = t
	c.mod = c.vibrato * math.Sin(t)
	offset := c.mod + c.bend
	p.each(func(v *Voice) {
		v.pitch(offset)
	})
}

// Bend returns the pitch-wheel offset in cents
func (c *Controller) Bend() float64 { return c.bend }

// Vibrato returns the vibrato depth in cents
func (c *Controller) Vibrato() float64 { return c.vibrato }

// Modulation returns the current vibrato offset in cents
func (c *Controller) Modulation() float64 { return c.mod }

// VolumeRatio returns the global volume in [0,1]
func (c *Controller) VolumeRatio() float64 { return c.volume }

// Patch returns the selected instrument index
func (c *Controller) Patch() int { return c.patch }

func (c *Controller) setPatch(patch int) {
	c.patch = patch
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
