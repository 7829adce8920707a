// Package engine schedules compiled events against the wall clock and drives
// an input controller to play them.
//
// The scheduler owns a virtual clock that advances by real time multiplied
// by the current speed, so speed changes mid-song only stretch what is still
// to come. It naps at most 10ms at a time, which keeps stop requests and
// speed changes responsive, and spins on the clock inside the last
// millisecond before an event for precision. Key work runs on a small worker
// pool so a slow OS call can never stall the timing loop.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
	"github.com/Chunn241529/FourT-sub001/pkg/score"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// ErrBusy reports that a playback is already running.
var ErrBusy = errors.New("playback already running")

const (
	// maxSleep bounds scheduler naps.
	maxSleep = 10 * time.Millisecond
	// spinWindow is how close to an event the scheduler stops sleeping and
	// polls the clock instead.
	spinWindow = time.Millisecond
)

// loopPause separates repeat passes.
var loopPause = time.Second

// HandMode selects which hand's events are played. The values match the
// co-op roles: 0 plays everything, 1 covers the bass hand, 2 the melody.
type HandMode int32

const (
	HandBoth  HandMode = 0
	HandLeft  HandMode = 1
	HandRight HandMode = 2
)

// String returns the mode name.
func (m HandMode) String() string {
	switch m {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	default:
		return "both"
	}
}

// plays reports whether events for the given hand pass the filter.
func (m HandMode) plays(h song.Hand) bool {
	switch m {
	case HandLeft:
		return h == song.HandLeft
	case HandRight:
		return h == song.HandRight
	default:
		return true
	}
}

// Controller is the key surface the engine drives.
type Controller interface {
	PressKey(key string, mod keymap.Modifier) error
	ReleaseKey(key string, mod keymap.Modifier) error
}

// Session bundles one playback request.
type Session struct {
	Events []score.Event
	// Speed is the initial rate multiplier. Zero keeps the current speed.
	Speed float64
	// Loop repeats the song until stopped, with a pause between passes.
	Loop bool
	// HandMode filters which hand's events are played.
	HandMode HandMode
	// Humanize applies timing drift to this session's events.
	Humanize bool
}

// Engine plays compiled event streams. One playback runs at a time; speed,
// loop and hand mode can change while it runs.
type Engine struct {
	ctrl Controller
	log  *slog.Logger

	speed    atomic.Uint64 // float64 bits
	elapsed  atomic.Uint64 // float64 bits, virtual seconds into the pass
	handMode atomic.Int32
	loop     atomic.Bool

	mu      sync.Mutex
	playing bool
	stop    chan struct{}
}

// New builds an engine around a controller. A nil logger falls back to
// slog.Default.
func New(ctrl Controller, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{ctrl: ctrl, log: log}
	e.speed.Store(math.Float64bits(1))
	return e
}

// SetSpeed changes the playback rate. Values at or below zero are ignored.
func (e *Engine) SetSpeed(speed float64) {
	if speed <= 0 {
		e.log.Warn("ignoring non-positive speed", "speed", speed)
		return
	}
	e.speed.Store(math.Float64bits(speed))
}

// Speed returns the current rate multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetLoop toggles repeating. Takes effect at the end of the current pass.
func (e *Engine) SetLoop(enabled bool) {
	e.loop.Store(enabled)
}

// Loop reports whether repeating is on.
func (e *Engine) Loop() bool {
	return e.loop.Load()
}

// SetHandMode changes the hand filter, live.
func (e *Engine) SetHandMode(m HandMode) {
	e.handMode.Store(int32(m))
}

// HandMode returns the current hand filter.
func (e *Engine) HandMode() HandMode {
	return HandMode(e.handMode.Load())
}

// IsActive reports whether a playback is running.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Elapsed returns the virtual position in seconds of the current pass.
func (e *Engine) Elapsed() float64 {
	return math.Float64frombits(e.elapsed.Load())
}

// Play starts a session in a background goroutine. A second call while one
// runs returns ErrBusy. onComplete, when set, fires exactly once when
// playback ends for any reason, with nil for both natural completion and
// Stop.
func (e *Engine) Play(s Session, onComplete func(error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		return ErrBusy
	}

	if s.Speed > 0 {
		e.speed.Store(math.Float64bits(s.Speed))
	}
	e.loop.Store(s.Loop)
	e.handMode.Store(int32(s.HandMode))

	events := s.Events
	if s.Humanize {
		events = score.Humanize(events, nil)
	}

	e.playing = true
	e.stop = make(chan struct{})
	e.elapsed.Store(0)
	go e.run(events, e.stop, onComplete)
	return nil
}

// Stop asks the running playback to end. Held keys are released before the
// scheduler exits. Safe to call when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return
	}
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

func (e *Engine) run(events []score.Event, stop chan struct{}, onComplete func(error)) {
	var runErr error
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("playback panic: %v", r)
			e.log.Error("playback panicked", "error", runErr)
		}
		e.mu.Lock()
		e.playing = false
		e.mu.Unlock()
		if onComplete != nil {
			onComplete(runErr)
		}
	}()

	pool := newKeyPool(e.ctrl, e.log)
	defer pool.close()

	for {
		finished := e.playPass(events, stop, pool)
		if !finished || !e.loop.Load() {
			return
		}
		select {
		case <-stop:
			return
		case <-time.After(loopPause):
		}
	}
}

// playPass walks the event list once. Returns false when stopped early.
// Whatever is still held at the end comes back up, after the pool has
// drained so an in-flight press cannot land after its forced release.
func (e *Engine) playPass(events []score.Event, stop chan struct{}, pool *keyPool) bool {
	e.elapsed.Store(0)
	active := make(map[string]keymap.Modifier)

	defer func() {
		pool.drain()
		for key, mod := range active {
			if err := e.ctrl.ReleaseKey(key, mod); err != nil {
				e.log.Warn("release at pass end failed", "key", key, "error", err)
			}
		}
	}()

	var virtual float64
	last := time.Now()

	for idx := 0; idx < len(events); {
		select {
		case <-stop:
			return false
		default:
		}

		now := time.Now()
		virtual += now.Sub(last).Seconds() * e.Speed()
		last = now
		e.elapsed.Store(math.Float64bits(virtual))

		ev := events[idx]
		if virtual >= ev.Time {
			e.dispatch(ev, active, pool)
			idx++
			continue
		}

		wait := time.Duration((ev.Time - virtual) / e.Speed() * float64(time.Second))
		if wait <= spinWindow {
			continue
		}
		if wait > maxSleep {
			wait = maxSleep
		}
		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	return true
}

// dispatch applies the hand filter and the active-key dedup, then queues the
// key work. A key already down never gets a second press, and a release for
// a key that is not down is dropped.
func (e *Engine) dispatch(ev score.Event, active map[string]keymap.Modifier, pool *keyPool) {
	if !e.HandMode().plays(ev.Hand) {
		return
	}
	switch ev.Act {
	case score.Press:
		if _, held := active[ev.Key]; held {
			return
		}
		active[ev.Key] = ev.Mod
		pool.submit(keyOp{press: true, key: ev.Key, mod: ev.Mod})
	case score.Release:
		if _, held := active[ev.Key]; !held {
			return
		}
		delete(active, ev.Key)
		pool.submit(keyOp{press: false, key: ev.Key, mod: ev.Mod})
	}
}
