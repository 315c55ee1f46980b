package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/gostt-live/internal/audio"
	"github.com/chaz8081/gostt-live/internal/recognize"
	"github.com/chaz8081/gostt-live/internal/ui"
)

type fakeAuth struct {
	allow bool
	block bool // wait for ctx instead of answering
}

func (a *fakeAuth) Authorize(ctx context.Context) bool {
	if a.block {
		<-ctx.Done()
		return false
	}
	return a.allow
}

// fakeAudioSession counts references like audio.Session.
type fakeAudioSession struct {
	mu            sync.Mutex
	refs          int
	activations   int
	deactivations int
	activateErr   error
	deactivateErr error
}

func (s *fakeAudioSession) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activateErr != nil {
		return s.activateErr
	}
	s.refs++
	s.activations++
	return nil
}

func (s *fakeAudioSession) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivations++
	if s.refs > 0 {
		s.refs--
	}
	return s.deactivateErr
}

func (s *fakeAudioSession) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs > 0
}

func (s *fakeAudioSession) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activations, s.deactivations
}

type fakeCapture struct {
	mu       sync.Mutex
	tap      audio.TapFunc
	running  bool
	startErr error
	removes  int
	// onStart runs at the top of Start, outside the lock.
	onStart func()
}

func (c *fakeCapture) InstallTap(_ uint32, fn audio.TapFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tap != nil {
		return audio.ErrTapInstalled
	}
	c.tap = fn
	return nil
}

func (c *fakeCapture) RemoveTap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tap = nil
	c.removes++
}

func (c *fakeCapture) Start() error {
	if c.onStart != nil {
		c.onStart()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.running = true
	return nil
}

func (c *fakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

func (c *fakeCapture) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *fakeCapture) hasTap() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tap != nil
}

// emit pushes a frame through the installed tap, like the audio thread would.
func (c *fakeCapture) emit(frame []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tap != nil {
		c.tap(frame)
	}
}

// fakeTask lets a test act as the recognition service.
type fakeTask struct {
	req     *recognize.Request
	handler recognize.Handler

	mu       sync.Mutex
	canceled bool
	finished bool
}

// Cancel reports ErrCanceled from another goroutine, as a real task does.
func (t *fakeTask) Cancel() {
	t.mu.Lock()
	already := t.canceled
	t.canceled = true
	t.mu.Unlock()
	if !already {
		go t.handler(nil, recognize.ErrCanceled)
	}
}

func (t *fakeTask) Finish() {
	t.mu.Lock()
	t.finished = true
	t.mu.Unlock()
	t.req.EndAudio()
}

func (t *fakeTask) State() recognize.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.canceled:
		return recognize.TaskCanceled
	case t.finished:
		return recognize.TaskFinishing
	default:
		return recognize.TaskRunning
	}
}

func (t *fakeTask) wasCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

func (t *fakeTask) wasFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

type fakeRecognizer struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (r *fakeRecognizer) RecognitionTask(req *recognize.Request, handler recognize.Handler) recognize.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &fakeTask{req: req, handler: handler}
	r.tasks = append(r.tasks, t)
	return t
}

func (r *fakeRecognizer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *fakeRecognizer) last() *fakeTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[len(r.tasks)-1]
}

// recordingHandler is a slog.Handler that keeps every record.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

// harness wires a Coordinator to fakes.
type harness struct {
	t          *testing.T
	auth       *fakeAuth
	audio      *fakeAudioSession
	capture    *fakeCapture
	recognizer *fakeRecognizer
	logs       *recordingHandler
	queue      *ui.MainQueue
	transcript *ui.Transcript
	finals     chan string
	c          *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		auth:       &fakeAuth{allow: true},
		audio:      &fakeAudioSession{},
		capture:    &fakeCapture{},
		recognizer: &fakeRecognizer{},
		logs:       &recordingHandler{},
		queue:      ui.NewMainQueue(64),
		finals:     make(chan string, 8),
	}
	h.transcript = ui.NewTranscript(h.queue, "legacy")
	h.c = New(h.auth, h.audio, h.capture, h.recognizer, h.transcript, Options{
		Engine:        "legacy",
		TapBufferSize: 100,
		QueueSize:     16,
		Logger:        slog.New(h.logs),
		OnFinal:       func(text string) { h.finals <- text },
	})
	t.Cleanup(func() {
		h.c.Stop()
		h.queue.Close()
	})
	return h
}

func (h *harness) start() *fakeTask {
	h.t.Helper()
	if err := h.c.Start(context.Background()); err != nil {
		h.t.Fatalf("Start() error = %v", err)
	}
	if h.recognizer.count() == 0 {
		return nil
	}
	return h.recognizer.last()
}

// waitState polls until the coordinator reaches want.
func (h *harness) waitState(want State) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	h.t.Fatalf("state = %v, want %v", h.c.State(), want)
}

// waitFor polls until cond holds.
func (h *harness) waitFor(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

// waitText polls until the observable text equals want.
func (h *harness) waitText(want string) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.c.Session().RecognizedText == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	h.t.Fatalf("text = %q, want %q", h.c.Session().RecognizedText, want)
}

// assertReleased checks that nothing from the last session is held.
func (h *harness) assertReleased() {
	h.t.Helper()
	s := h.c.Session()
	if s.State != StateIdle {
		h.t.Errorf("State = %v, want idle", s.State)
	}
	if s.IsRecording {
		h.t.Error("IsRecording should be false")
	}
	if s.HasRequest || s.HasTask {
		h.t.Errorf("dangling handles: request=%v task=%v", s.HasRequest, s.HasTask)
	}
	if s.AudioTapInstalled || h.capture.hasTap() {
		h.t.Error("audio tap still installed")
	}
	if h.capture.IsRunning() {
		h.t.Error("capture still running")
	}
	if act, deact := h.audio.counts(); act != deact {
		h.t.Errorf("audio session activated %d times, deactivated %d times", act, deact)
	}
}

var errNetworkDown = errors.New("speech service unreachable")
