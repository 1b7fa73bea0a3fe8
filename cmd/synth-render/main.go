// ABOUTME: Offline renderer for Lua scores
// ABOUTME: Runs a score through the synthesizer and writes a 16-bit WAV file
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/bank"
	"github.com/Resonate-Protocol/resonate-synth/internal/score"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

var (
	bankPath   = flag.String("bank", "", "Instrument manifest (JSON). Empty = built-in sine/saw/square")
	outPath    = flag.String("o", "out.wav", "Output WAV file")
	sampleRate = flag.Int("rate", 44100, "Output sample rate")
	voices     = flag.Int("voices", 10, "Polyphony")
	tail       = flag.Duration("tail", 2*time.Second, "Audio rendered after the score ends, for release tails")
	limit      = flag.Duration("limit", 10*time.Minute, "Maximum length of rendered audio")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] score.lua\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := render(flag.Arg(0)); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
}

func render(scorePath string) error {
	var instruments synth.Bank
	if *bankPath == "" {
		instruments = bank.Builtin(*sampleRate)
	} else {
		var err error
		instruments, err = bank.Load(*bankPath)
		if err != nil {
			return err
		}
	}

	cfg := synth.DefaultConfig()
	cfg.SampleRate = *sampleRate
	cfg.Voices = *voices
	s := synth.New(cfg, instruments)

	f, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	w, err := encode.NewWAVWriter(f, *sampleRate, 1)
	if err != nil {
		return err
	}

	sc := score.New(s, w, *limit)
	if err := sc.RunFile(scorePath); err != nil {
		return err
	}
	if err := sc.Render(*tail); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	log.Printf("Rendered %s (%v, %d frames at %d Hz) to %s",
		scorePath, sc.Duration().Round(time.Millisecond), sc.Frames(), *sampleRate, *outPath)
	return nil
}
