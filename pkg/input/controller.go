package input

import (
	"log/slog"
	"sync"

	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
)

// Controller plays notes through a Backend. Sharps and flats need a modifier
// tap: the modifier goes down, the note key goes down while it is held, and
// the modifier comes straight back up so it cannot bleed into the next note.
// The whole tap runs under one lock so concurrent notes never interleave
// their modifiers.
type Controller struct {
	backend Backend
	log     *slog.Logger

	mu sync.Mutex
}

// NewController wraps a backend. A nil logger falls back to slog.Default.
func NewController(backend Backend, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{backend: backend, log: log}
}

// PressKey strikes a note key, wrapped in a modifier tap when the note is a
// sharp or flat. The note key stays held until ReleaseKey.
func (c *Controller) PressKey(key string, mod keymap.Modifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	modKey := mod.KeyName()
	if modKey == "" {
		return c.backend.PressKey(key)
	}
	if err := c.backend.PressKey(modKey); err != nil {
		// Strike the bare key anyway so the note sounds as its natural
		// rather than going missing.
		c.log.Warn("modifier press failed", "modifier", modKey, "key", key, "error", err)
		return c.backend.PressKey(key)
	}
	pressErr := c.backend.PressKey(key)
	if err := c.backend.ReleaseKey(modKey); err != nil && pressErr == nil {
		pressErr = err
	}
	return pressErr
}

// ReleaseKey lifts a note key. The modifier already came back up during the
// press tap, so only the note key moves. The signature mirrors PressKey so
// schedulers can drive both from the same event shape.
func (c *Controller) ReleaseKey(key string, mod keymap.Modifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend.ReleaseKey(key)
}
