package input

import "log/slog"

// logBackend logs events instead of injecting them, with the same key and
// button validation as the real backend. It keeps the whole pipeline
// runnable on platforms without SendInput and backs dry runs everywhere.
type logBackend struct {
	log *slog.Logger
}

// NewLogBackend returns a backend that only logs the events it would send.
// A nil logger falls back to slog.Default().
func NewLogBackend(log *slog.Logger) Backend {
	if log == nil {
		log = slog.Default()
	}
	return &logBackend{log: log}
}

func (l *logBackend) PressKey(key string) error {
	code, err := ScanCode(key)
	if err != nil {
		return err
	}
	l.log.Debug("press key", "key", key, "scan", code)
	return nil
}

func (l *logBackend) ReleaseKey(key string) error {
	code, err := ScanCode(key)
	if err != nil {
		return err
	}
	l.log.Debug("release key", "key", key, "scan", code)
	return nil
}

func (l *logBackend) ClickMouse(button string, down, up bool) error {
	name, err := normalizeButton(button)
	if err != nil {
		return err
	}
	l.log.Debug("click mouse", "button", name, "down", down, "up", up)
	return nil
}

func (l *logBackend) Scroll(dx, dy int) error {
	l.log.Debug("scroll", "dx", dx, "dy", dy)
	return nil
}

func (l *logBackend) MoveMouse(dx, dy int) error {
	l.log.Debug("move mouse", "dx", dx, "dy", dy)
	return nil
}
