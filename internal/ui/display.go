package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Display renders the selected recognizer's snapshot on a single terminal line.
type Display struct {
	w        io.Writer
	selected func() string

	mu   sync.Mutex
	last string
}

// NewDisplay writes to w. selected reports which engine is on screen; other
// engines' snapshots are ignored.
func NewDisplay(w io.Writer, selected func() string) *Display {
	return &Display{w: w, selected: selected}
}

// Watch renders snapshots from ch until it is closed or done is closed.
func (d *Display) Watch(ch <-chan Snapshot, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			d.Render(s)
		}
	}
}

// Render draws s if it belongs to the selected engine and differs from the
// last line drawn.
func (d *Display) Render(s Snapshot) {
	if d.selected != nil && s.Engine != d.selected() {
		return
	}

	line := Format(s)

	d.mu.Lock()
	defer d.mu.Unlock()
	if line == d.last {
		return
	}
	d.last = line
	fmt.Fprintf(d.w, "\r\033[K%s", line)
	if !s.IsRecording && s.RecognizedText != "" {
		fmt.Fprintln(d.w)
		d.last = ""
	}
}

// Format returns the one-line rendering of s.
func Format(s Snapshot) string {
	mark := "○"
	if s.IsRecording {
		mark = "●"
	}
	text := strings.ReplaceAll(s.RecognizedText, "\n", " ")
	if text == "" && s.IsRecording {
		text = "…"
	}
	return fmt.Sprintf("%s [%s] %s", mark, s.Engine, text)
}
