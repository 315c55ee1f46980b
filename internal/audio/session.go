// Package audio provides microphone capture for live recognition: a shared
// audio Session that must be activated before capture, an Engine that
// delivers fixed-size frames through an installed tap, and a WAV-backed
// FileInput with the same surface.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrInactive is returned when capture is attempted on a deactivated Session.
var ErrInactive = errors.New("audio: session is not active")

// Session is the process-wide audio resource. It owns the malgo context and
// must be activated before an Engine can start and deactivated afterwards.
// Activations are counted: the context is released by the Deactivate that
// balances the first Activate, so one user cannot tear it down under another.
type Session struct {
	mu   sync.Mutex
	ctx  *malgo.AllocatedContext
	refs int
}

// NewSession returns an inactive Session.
func NewSession() *Session {
	return &Session{}
}

// Activate initializes the audio backend on first use and takes a reference.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.refs++
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("audio: initializing context: %w", err)
	}
	s.ctx = ctx
	s.refs = 1
	return nil
}

// Deactivate drops a reference and releases the audio backend when none
// remain. Deactivating an inactive session is a no-op.
func (s *Session) Deactivate() error {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		return nil
	}
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		return nil
	}
	ctx := s.ctx
	s.ctx = nil
	s.mu.Unlock()

	if err := ctx.Uninit(); err != nil {
		ctx.Free()
		return fmt.Errorf("audio: uninitializing context: %w", err)
	}
	ctx.Free()
	return nil
}

// IsActive reports whether the session is active.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil
}

// context returns the active malgo context.
func (s *Session) context() (malgo.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		var zero malgo.Context
		return zero, ErrInactive
	}
	return s.ctx.Context, nil
}

// CaptureDevices lists the capture devices visible to the audio backend. It
// uses a short-lived context so it works regardless of session state.
func CaptureDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: initializing context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: listing capture devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
