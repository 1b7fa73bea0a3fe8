// ABOUTME: Version and product identification
// ABOUTME: Reported in client hello device info and startup logs
package version

const (
	Version      = "0.1.0"
	Product      = "Resonate Synth"
	Manufacturer = "Resonate"
)
