package permission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func devices(names ...string) func() ([]string, error) {
	return func() ([]string, error) { return names, nil }
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		speech  func() bool
		capture func() ([]string, error)
		want    bool
	}{
		{"authorized with microphone", func() bool { return true }, devices("Built-in Microphone"), true},
		{"speech unavailable", func() bool { return false }, devices("Built-in Microphone"), false},
		{"speech not determined", nil, devices("Built-in Microphone"), false},
		{"no microphones", func() bool { return true }, devices(), false},
		{"device listing fails", func() bool { return true }, func() ([]string, error) { return nil, errors.New("no backend") }, false},
		{"no device lister", func() bool { return true }, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.speech, tt.capture, quietLogger())
			if got := a.Authorize(context.Background()); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		speech  func() bool
		capture func() ([]string, error)
		want    Status
	}{
		{"authorized", func() bool { return true }, devices("mic"), Authorized},
		{"restricted recognizer", func() bool { return false }, devices("mic"), Restricted},
		{"not determined", nil, devices("mic"), NotDetermined},
		{"record denied", func() bool { return true }, devices(), Denied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.speech, tt.capture, quietLogger())
			if got := a.RequestAuthorization(context.Background()); got != tt.want {
				t.Errorf("RequestAuthorization() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpeechStatus(t *testing.T) {
	if s := New(nil, nil, quietLogger()).SpeechStatus(); s != NotDetermined {
		t.Errorf("SpeechStatus() = %v, want not determined", s)
	}
	if s := New(func() bool { return false }, nil, quietLogger()).SpeechStatus(); s != Restricted {
		t.Errorf("SpeechStatus() = %v, want restricted", s)
	}
	if s := New(func() bool { return true }, nil, quietLogger()).SpeechStatus(); s != Authorized {
		t.Errorf("SpeechStatus() = %v, want authorized", s)
	}
}

func TestRecordPermissionHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	a := New(func() bool { return true }, func() ([]string, error) {
		<-block
		return []string{"mic"}, nil
	}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if a.RecordPermission(ctx) {
		t.Error("RecordPermission() should be false when ctx expires")
	}
}

func TestStatusString(t *testing.T) {
	if Authorized.String() != "authorized" || Denied.String() != "denied" || NotDetermined.String() != "not determined" {
		t.Error("unexpected Status strings")
	}
}
