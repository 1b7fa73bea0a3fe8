// ABOUTME: JSON instrument manifest loading
// ABOUTME: Builds a synth.Bank from sample files with speeds, loops and key zones
package bank

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

// Manifest describes every instrument in program order
type Manifest struct {
	SampleDir   string               `json:"sample_dir,omitempty"` // relative to the manifest file
	Instruments []InstrumentManifest `json:"instruments"`
}

// InstrumentManifest is one patch
type InstrumentManifest struct {
	Name  string         `json:"name"`
	Zones []ZoneManifest `json:"zones"`
}

// ZoneManifest is one recording. Zones are listed low to high; UpperCents
// of the last zone is ignored.
type ZoneManifest struct {
	File       string  `json:"file"`
	Speed      float64 `json:"speed"`
	LoopStart  int     `json:"loop_start,omitempty"`
	LoopEnd    int     `json:"loop_end,omitempty"`
	UpperCents float64 `json:"upper_cents,omitempty"`
	Channel    int     `json:"channel,omitempty"`
}

// ParseManifest decodes and validates a manifest
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for missing or inconsistent fields
func (m *Manifest) Validate() error {
	if len(m.Instruments) == 0 {
		return fmt.Errorf("manifest has no instruments")
	}
	for i, in := range m.Instruments {
		if len(in.Zones) == 0 {
			return fmt.Errorf("instrument %d (%s) has no zones", i, in.Name)
		}
		prev := -1.0
		for j, z := range in.Zones {
			if z.File == "" {
				return fmt.Errorf("instrument %d (%s) zone %d: missing file", i, in.Name, j)
			}
			if z.Speed <= 0 {
				return fmt.Errorf("instrument %d (%s) zone %d: speed must be positive, got %g", i, in.Name, j, z.Speed)
			}
			if z.Channel < 0 || z.Channel > 1 {
				return fmt.Errorf("instrument %d (%s) zone %d: channel must be 0 or 1, got %d", i, in.Name, j, z.Channel)
			}
			if j < len(in.Zones)-1 {
				if z.UpperCents <= prev {
					return fmt.Errorf("instrument %d (%s) zone %d: upper_cents %g not above previous zone", i, in.Name, j, z.UpperCents)
				}
				prev = z.UpperCents
			}
		}
	}
	return nil
}

// Loader resolves manifest files to decoded sources. Files shared by
// several zones are decoded once.
type Loader struct {
	// Open decodes one file; defaults to decode.Load
	Open  func(path string) (audio.Source, error)
	cache map[string]audio.Source
}

// NewLoader creates a loader reading sample files from disk
func NewLoader() *Loader {
	return &Loader{
		Open: func(path string) (audio.Source, error) {
			return decode.Load(path)
		},
		cache: make(map[string]audio.Source),
	}
}

// Build decodes every zone of m, resolving relative files against dir
func (l *Loader) Build(m *Manifest, dir string) (synth.Bank, error) {
	if l.cache == nil {
		l.cache = make(map[string]audio.Source)
	}
	sampleDir := m.SampleDir
	if !filepath.IsAbs(sampleDir) {
		sampleDir = filepath.Join(dir, sampleDir)
	}

	bank := make(synth.Bank, 0, len(m.Instruments))
	for _, in := range m.Instruments {
		inst := &synth.Instrument{Name: in.Name}
		for _, z := range in.Zones {
			path := z.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(sampleDir, path)
			}
			src, err := l.source(path)
			if err != nil {
				return nil, fmt.Errorf("instrument %s: %w", in.Name, err)
			}
			if z.Channel >= src.Channels() {
				return nil, fmt.Errorf("instrument %s: %s has no channel %d", in.Name, z.File, z.Channel)
			}
			if z.LoopEnd >= src.Frames() {
				log.Printf("Warning: %s loop end %d beyond %d frames", z.File, z.LoopEnd, src.Frames())
			}
			inst.Zones = append(inst.Zones, synth.Zone{
				Name:       filepath.Base(z.File),
				Source:     src,
				Channel:    z.Channel,
				LoopStart:  z.LoopStart,
				LoopEnd:    z.LoopEnd,
				Speed:      z.Speed,
				UpperCents: z.UpperCents,
			})
		}
		bank = append(bank, inst)
	}
	return bank, nil
}

func (l *Loader) source(path string) (audio.Source, error) {
	if src, ok := l.cache[path]; ok {
		return src, nil
	}
	src, err := l.Open(path)
	if err != nil {
		return nil, err
	}
	l.cache[path] = src
	return src, nil
}

// Load reads a manifest file and every sample it names
func Load(path string) (synth.Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := ParseManifest(f)
	if err != nil {
		return nil, err
	}

	bank, err := NewLoader().Build(m, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded bank %s: %v", filepath.Base(path), bank.Names())
	return bank, nil
}

// Write encodes the manifest as indented JSON
func (m *Manifest) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
