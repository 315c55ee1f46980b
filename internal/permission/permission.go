// Package permission decides whether a recognition session may start: the
// speech recognizer must be usable and a microphone must be present.
package permission

import (
	"context"
	"log/slog"
)

// Status is the speech recognition authorization state.
type Status int

const (
	NotDetermined Status = iota
	Denied
	Restricted
	Authorized
)

func (s Status) String() string {
	switch s {
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	case Authorized:
		return "authorized"
	default:
		return "not determined"
	}
}

// Authorizer checks speech and record permission.
type Authorizer struct {
	speechAvailable func() bool
	captureDevices  func() ([]string, error)
	log             *slog.Logger
}

// New creates an Authorizer. speechAvailable reports whether the recognizer
// has a usable backend; captureDevices lists microphones.
func New(speechAvailable func() bool, captureDevices func() ([]string, error), logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		speechAvailable: speechAvailable,
		captureDevices:  captureDevices,
		log:             logger.With("component", "permission"),
	}
}

// SpeechStatus reports whether speech recognition is authorized.
func (a *Authorizer) SpeechStatus() Status {
	if a.speechAvailable == nil {
		return NotDetermined
	}
	if !a.speechAvailable() {
		return Restricted
	}
	return Authorized
}

// RecordPermission reports whether at least one capture device is available.
// It gives up when ctx is done.
func (a *Authorizer) RecordPermission(ctx context.Context) bool {
	if a.captureDevices == nil {
		return false
	}

	type listing struct {
		devices []string
		err     error
	}
	ch := make(chan listing, 1)
	go func() {
		devices, err := a.captureDevices()
		ch <- listing{devices, err}
	}()

	select {
	case <-ctx.Done():
		return false
	case l := <-ch:
		if l.err != nil {
			a.log.Warn("listing capture devices failed", "error", l.err)
			return false
		}
		if len(l.devices) == 0 {
			a.log.Warn("no capture devices found")
			return false
		}
		a.log.Debug("capture devices", "devices", l.devices)
		return true
	}
}

// RequestAuthorization returns the combined status: the speech status if it
// is not Authorized, Denied if no microphone is usable, otherwise Authorized.
func (a *Authorizer) RequestAuthorization(ctx context.Context) Status {
	status := a.SpeechStatus()
	if status != Authorized {
		a.log.Warn("speech recognition not authorized", "status", status.String())
		return status
	}
	if !a.RecordPermission(ctx) {
		return Denied
	}
	return Authorized
}

// Authorize reports whether both speech and record permission are granted.
func (a *Authorizer) Authorize(ctx context.Context) bool {
	return a.RequestAuthorization(ctx) == Authorized
}
