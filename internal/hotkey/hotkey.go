// Package hotkey provides a global hotkey listener using gohook.
// The record combo works in "hold" mode (press to start, release to finish)
// or "toggle" mode (each press toggles the session). An optional second
// combo switches the recognition engine.
package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType is the user action a hotkey press maps to.
type EventType int

const (
	// EventStart signals that the hold combo was pressed.
	EventStart EventType = iota
	// EventStop signals that the hold combo was released.
	EventStop
	// EventToggle signals a press of the record combo in toggle mode.
	EventToggle
	// EventSwitch signals a press of the engine switch combo.
	EventSwitch
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventToggle:
		return "toggle"
	case EventSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages the global hotkeys and emits events.
type Listener struct {
	keys       []string
	switchKeys []string
	mode       string // "hold" or "toggle"
	ch         chan Event
	done       chan struct{}
	once       sync.Once

	mu   sync.Mutex
	held bool
}

// NewListener creates a Listener for the record combo keys and the engine
// switch combo switchKeys (nil to disable). Keys are lowercase gohook key
// names, e.g. ["ctrl", "shift", "r"]. mode must be "hold" or "toggle".
func NewListener(keys, switchKeys []string, mode string) *Listener {
	return &Listener{
		keys:       keys,
		switchKeys: switchKeys,
		mode:       mode,
		ch:         make(chan Event, 16),
		done:       make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	if l.mode == "toggle" {
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.emit(EventToggle) })
	} else {
		hook.Register(hook.KeyDown, l.keys, func(hook.Event) { l.press() })
		hook.Register(hook.KeyUp, l.keys, func(hook.Event) { l.release() })
	}
	if len(l.switchKeys) > 0 {
		hook.Register(hook.KeyDown, l.switchKeys, func(hook.Event) { l.emit(EventSwitch) })
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// press handles a hold-mode KeyDown. Key repeat delivers KeyDown while the
// combo is held; only the first one starts.
func (l *Listener) press() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return
	}
	l.held = true
	l.emit(EventStart)
}

func (l *Listener) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.held = false
	l.emit(EventStop)
}

// emit sends without blocking the hook thread.
func (l *Listener) emit(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default: // drop if nobody is keeping up
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// Describe formats a key combo for display, e.g. "Ctrl+Shift+R".
func Describe(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		switch k {
		case "cmd":
			parts[i] = "Cmd"
		case "ctrl":
			parts[i] = "Ctrl"
		case "alt":
			parts[i] = "Alt"
		case "shift":
			parts[i] = "Shift"
		case "":
		default:
			parts[i] = strings.ToUpper(k[:1]) + k[1:]
		}
	}
	return strings.Join(parts, "+")
}
