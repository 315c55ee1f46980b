// Package inject delivers final transcripts to the active application
// using robotgo for keystroke simulation or clipboard paste.
package inject

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// TextInjector sends recognized text somewhere.
type TextInjector interface {
	Inject(text string) error
}

// New returns the injector for method: "none", "type" or "paste".
func New(method string) (TextInjector, error) {
	switch method {
	case "", "none":
		return Discard{}, nil
	case "type", "paste":
		return NewInjector(method), nil
	default:
		return nil, fmt.Errorf("inject: unknown method %q (supported: none, type, paste)", method)
	}
}

// Discard drops every transcript.
type Discard struct{}

func (Discard) Inject(string) error { return nil }

// Injector handles typing or pasting text into the active application.
type Injector struct {
	method string // "type" or "paste"
}

var _ TextInjector = (*Injector)(nil)

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{method: method}
}

// Inject sends text to the active application using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case "paste":
		return inj.paste(text)
	default: // "type"
		return inj.typeText(text)
	}
}

// typeText simulates individual keystrokes. Handles CJK text on every
// platform robotgo supports but is slow for long transcripts.
func (inj *Injector) typeText(text string) error {
	robotgo.Type(text)
	return nil
}

// paste copies text to the clipboard and sends the platform paste shortcut.
// The previous clipboard contents are restored afterwards.
func (inj *Injector) paste(text string) error {
	prev, _ := robotgo.ReadAll()

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	mod := pasteModifier(runtime.GOOS)
	if err := robotgo.KeyTap("v", mod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", mod, err)
	}

	// Best effort.
	_ = robotgo.WriteAll(prev)

	return nil
}

func pasteModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}
