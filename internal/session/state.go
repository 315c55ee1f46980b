package session

import (
	"errors"
	"fmt"
)

// State is the coordinator lifecycle:
// Idle -> Starting -> Streaming -> (Finalizing | Stopping) -> Idle.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateStreaming
	StateFinalizing
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrPermissionDenied aborts a start when speech or record permission is missing.
	ErrPermissionDenied = errors.New("session: speech recognition permission denied")
	// ErrSessionAlreadyActive is returned by Start while a session is live.
	ErrSessionAlreadyActive = errors.New("session: recognition is still in progress")
	// ErrStreamCancelled marks a session ended by Stop.
	ErrStreamCancelled = errors.New("session: recognition stream cancelled")
	// ErrStreamFailure marks a session ended by a capture or recognition error.
	ErrStreamFailure = errors.New("session: recognition stream failed")
	// ErrDeactivationFailure is logged when the audio session cannot be released.
	ErrDeactivationFailure = errors.New("session: failed to deactivate audio session")
)

// RecognitionSession is a point-in-time view of the coordinator.
type RecognitionSession struct {
	State             State
	IsRecording       bool
	RecognizedText    string
	HasRequest        bool
	HasTask           bool
	AudioTapInstalled bool
}
