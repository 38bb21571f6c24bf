//go:build !darwin && !windows && !linux

package clip

// New returns the in-memory backend; there is no system clipboard
// integration on this platform.
func New() Backend {
	return NewMemory()
}
