//go:build !darwin && !windows && !linux

package clip

// New returns the headless backend; there is no clipboard integration on
// this platform.
func New() Backend {
	return Headless()
}
