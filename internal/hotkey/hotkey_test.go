package hotkey

import "testing"

func TestDescribe(t *testing.T) {
	tests := []struct {
		keys []string
		want string
	}{
		{[]string{"ctrl", "shift", "r"}, "Ctrl+Shift+R"},
		{[]string{"cmd", "alt", "e"}, "Cmd+Alt+E"},
		{[]string{"f9"}, "F9"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Describe(tt.keys); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.keys, got, tt.want)
		}
	}
}

func TestHoldIgnoresKeyRepeat(t *testing.T) {
	l := NewListener([]string{"ctrl", "r"}, nil, "hold")

	l.press()
	l.press()
	l.press()
	l.release()
	l.release()

	var got []EventType
	for len(l.ch) > 0 {
		got = append(got, (<-l.ch).Type)
	}
	if len(got) != 2 || got[0] != EventStart || got[1] != EventStop {
		t.Errorf("events = %v, want [start stop]", got)
	}
}

func TestEmitDoesNotBlock(t *testing.T) {
	l := NewListener([]string{"ctrl", "r"}, []string{"ctrl", "e"}, "toggle")
	for i := 0; i < cap(l.ch)+10; i++ {
		l.emit(EventToggle)
	}
	if len(l.ch) != cap(l.ch) {
		t.Errorf("queued = %d, want %d", len(l.ch), cap(l.ch))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewListener([]string{"ctrl", "r"}, nil, "toggle")
	l.Stop()
	l.Stop()
	select {
	case <-l.done:
	default:
		t.Error("done should be closed")
	}
}

func TestEventTypeString(t *testing.T) {
	tests := map[EventType]string{
		EventStart:    "start",
		EventStop:     "stop",
		EventToggle:   "toggle",
		EventSwitch:   "switch",
		EventType(99): "unknown",
	}
	for ev, want := range tests {
		if got := ev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(ev), got, want)
		}
	}
}
