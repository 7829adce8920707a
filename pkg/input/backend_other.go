//go:build !(windows && (amd64 || arm64))

package input

// newBackend falls back to the logging backend on platforms without
// SendInput.
func newBackend() Backend {
	return NewLogBackend(nil)
}
