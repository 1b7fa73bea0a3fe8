// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for pull-based playback backends
package output

// Renderer fills a buffer with consecutive mono samples in [-1,1]
type Renderer interface {
	Render(dst []float32)
}

// Output is a playback backend that pulls audio from a Renderer on its
// own clock
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Play starts pulling from r until Close
	Play(r Renderer) error

	// Close releases output resources
	Close() error
}
