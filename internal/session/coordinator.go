// Package session coordinates one live recognition session: it couples the
// microphone capture pipeline to a streaming recognition task and guarantees
// that every start is unwound exactly once, whichever path ends it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaz8081/gostt-live/internal/audio"
	"github.com/chaz8081/gostt-live/internal/recognize"
	"github.com/chaz8081/gostt-live/internal/ui"
)

// Authorizer grants speech and record permission.
type Authorizer interface {
	Authorize(ctx context.Context) bool
}

// AudioSession is the shared audio resource activated for the life of a session.
type AudioSession interface {
	Activate() error
	Deactivate() error
}

// CaptureDevice delivers microphone frames through a tap.
type CaptureDevice interface {
	InstallTap(bufferSize uint32, fn audio.TapFunc) error
	RemoveTap()
	Start() error
	Stop()
	IsRunning() bool
}

// Recognizer starts streaming recognition tasks.
type Recognizer interface {
	RecognitionTask(req *recognize.Request, handler recognize.Handler) recognize.Task
}

// Options configures a Coordinator.
type Options struct {
	Engine        string
	TapBufferSize uint32
	QueueSize     int
	Logger        *slog.Logger
	// OnFinal, if set, receives the text of every non-empty final result.
	OnFinal func(text string)
}

// Coordinator runs at most one recognition session at a time.
type Coordinator struct {
	auth       Authorizer
	audio      AudioSession
	capture    CaptureDevice
	recognizer Recognizer
	transcript *ui.Transcript
	opts       Options
	log        *slog.Logger
	metrics    *metrics

	mu      sync.Mutex
	state   State
	current *run
	lastErr error
}

// run is the state of one session, from Start until its teardown completes.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	begun  time.Time

	// Guarded by Coordinator.mu.
	request        *recognize.Request
	task           recognize.Task
	tapInstalled   bool
	captureStarted bool
	// outcome and cause are set by whichever path ends the run first.
	outcome string
	cause   error

	// Written by Start before startDone is closed.
	audioActive bool
	pumpDone    chan struct{}

	startDone chan struct{}
	finishing chan struct{} // closed by Finish once capture has stopped
	frames    chan []float32
	dropped   atomic.Int64
	captureMu sync.Mutex
	once      sync.Once
}

// New creates an idle Coordinator. Observable state is published to transcript.
func New(auth Authorizer, audioSession AudioSession, capture CaptureDevice, recognizer Recognizer, transcript *ui.Transcript, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TapBufferSize == 0 {
		opts.TapBufferSize = 2048
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Coordinator{
		auth:       auth,
		audio:      audioSession,
		capture:    capture,
		recognizer: recognizer,
		transcript: transcript,
		opts:       opts,
		log:        opts.Logger.With("component", "session", "engine", opts.Engine),
		metrics:    newMetrics(opts.Engine),
	}
}

// Engine returns the name of the engine this coordinator drives.
func (c *Coordinator) Engine() string {
	return c.opts.Engine
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the most recent session, or nil if it
// ended normally.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Session returns a snapshot of the session data model once pending
// observable updates have been applied.
func (c *Coordinator) Session() RecognitionSession {
	c.transcript.Flush()
	snap := c.transcript.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := RecognitionSession{
		State:          c.state,
		IsRecording:    snap.IsRecording,
		RecognizedText: snap.RecognizedText,
	}
	if r := c.current; r != nil {
		s.HasRequest = r.request != nil
		s.HasTask = r.task != nil
		s.AudioTapInstalled = r.tapInstalled
	}
	return s
}

// Start begins a session and returns once audio is streaming. It returns
// ErrSessionAlreadyActive without side effects if a session is live, and
// ErrPermissionDenied if permission is refused.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.log.Debug("recognition is still in progress")
		return ErrSessionAlreadyActive
	}
	rctx, cancel := context.WithCancel(context.Background())
	r := &run{
		ctx:       rctx,
		cancel:    cancel,
		begun:     time.Now(),
		startDone: make(chan struct{}),
		finishing: make(chan struct{}),
		frames:    make(chan []float32, c.opts.QueueSize),
	}
	c.current = r
	c.state = StateStarting
	c.lastErr = nil
	c.mu.Unlock()
	c.publishState(StateStarting)
	// Every run that enters Starting is counted here and again by teardown.
	c.metrics.recordStart()

	err := c.begin(ctx, r)
	close(r.startDone)

	switch {
	case r.ctx.Err() != nil:
		// Stop or a recognition callback ran while starting and owns the
		// teardown; wait for it.
		c.teardown(r, outcomeStopped, nil)
		return c.startResult(r)
	case errors.Is(err, ErrStreamCancelled):
		c.log.Debug("recognition start cancelled", "error", err)
		c.teardown(r, outcomeStopped, nil)
		return err
	case errors.Is(err, ErrPermissionDenied):
		c.log.Warn("speech recognition permission denied")
		c.teardown(r, outcomeDenied, err)
		return err
	case err != nil:
		c.log.Error("recognition start failure", "error", err)
		c.teardown(r, outcomeFailed, err)
		return err
	}

	c.mu.Lock()
	if c.current != r || c.state != StateStarting {
		// The session ended between begin returning and here.
		c.mu.Unlock()
		return c.startResult(r)
	}
	c.state = StateStreaming
	c.mu.Unlock()

	c.publishState(StateStreaming)
	c.log.Info("recognition started")
	return nil
}

// startResult is what Start reports for a run that ended before streaming.
// A final result is a normal end.
func (c *Coordinator) startResult(r *run) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case r.outcome == outcomeFinal:
		return nil
	case r.cause != nil:
		return r.cause
	default:
		return ErrStreamCancelled
	}
}

// begin acquires the session resources in order. Anything it acquires is
// recorded on r so teardown can release it.
func (c *Coordinator) begin(ctx context.Context, r *run) error {
	authCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	if !c.auth.Authorize(authCtx) {
		if r.ctx.Err() != nil {
			return ErrStreamCancelled
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrStreamCancelled, err)
		}
		return ErrPermissionDenied
	}
	if r.ctx.Err() != nil {
		return ErrStreamCancelled
	}

	if err := c.audio.Activate(); err != nil {
		return fmt.Errorf("%w: activating audio session: %w", ErrStreamFailure, err)
	}
	r.audioActive = true

	c.transcript.Update(func(s *ui.Snapshot) {
		s.IsRecording = true
		s.RecognizedText = ""
	})

	req := recognize.NewRequest()
	req.ShouldReportPartialResults = true

	c.mu.Lock()
	if r.ctx.Err() != nil {
		c.mu.Unlock()
		return ErrStreamCancelled
	}
	r.request = req
	task := c.recognizer.RecognitionTask(req, c.handler(r))
	r.task = task
	c.mu.Unlock()

	r.pumpDone = make(chan struct{})
	go c.pump(r, req, task)

	if err := c.capture.InstallTap(c.opts.TapBufferSize, r.enqueue); err != nil {
		return fmt.Errorf("%w: installing tap: %w", ErrStreamFailure, err)
	}
	c.mu.Lock()
	r.tapInstalled = true
	c.mu.Unlock()

	if err := c.capture.Start(); err != nil {
		return fmt.Errorf("%w: starting capture: %w", ErrStreamFailure, err)
	}
	c.mu.Lock()
	r.captureStarted = true
	c.mu.Unlock()

	if r.ctx.Err() != nil {
		return ErrStreamCancelled
	}
	return nil
}

// Stop ends the live session, if any, and returns once its resources are
// released. Stopping while idle is a no-op.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	if r == nil {
		return
	}
	c.teardown(r, outcomeStopped, nil)
}

// Finish stops capture, hands every captured frame to the recognizer, then
// ends the audio so the recognizer delivers its final result, which tears
// the session down. A session that is still starting is stopped instead.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	r := c.current
	state := c.state
	if r == nil || (state != StateStreaming && state != StateStarting) {
		c.mu.Unlock()
		return
	}
	if state == StateStarting {
		c.mu.Unlock()
		c.Stop()
		return
	}
	c.state = StateFinalizing
	c.mu.Unlock()

	c.publishState(StateFinalizing)
	// Removing the tap flushes its partial frame into r.frames.
	c.stopCapture(r)
	close(r.finishing)
}

// enqueue is the capture tap. It never blocks the audio thread.
func (r *run) enqueue(frame []float32) {
	select {
	case r.frames <- frame:
	default:
		r.dropped.Add(1)
	}
}

// pump feeds captured frames into the recognition request until the run
// ends. After Finish it drains the queue and then finishes the task.
func (c *Coordinator) pump(r *run, req *recognize.Request, task recognize.Task) {
	defer close(r.pumpDone)
	for {
		select {
		case <-r.ctx.Done():
			return
		case frame := <-r.frames:
			req.Append(frame)
		case <-r.finishing:
			for {
				select {
				case frame := <-r.frames:
					req.Append(frame)
				default:
					task.Finish()
					return
				}
			}
		}
	}
}

// handler receives recognition callbacks for r on the task goroutine.
// Updates are applied under c.mu so none can land after teardown has
// published the idle state.
func (c *Coordinator) handler(r *run) recognize.Handler {
	return func(res *recognize.Result, err error) {
		c.mu.Lock()
		if c.current != r || r.ctx.Err() != nil {
			c.mu.Unlock()
			// The run is already being torn down.
			if err != nil && !recognize.IsCancellation(err) {
				c.log.Debug("recognition error after stop", "error", err)
			}
			return
		}

		if res != nil && res.Text != "" {
			text := res.Text
			c.transcript.Update(func(s *ui.Snapshot) { s.RecognizedText = text })
		}

		var outcome string
		var cause error
		switch {
		case res != nil && res.IsFinal:
			outcome = outcomeFinal
		case err == nil:
			c.mu.Unlock()
			return
		case recognize.IsCancellation(err):
			outcome = outcomeStopped
		default:
			outcome, cause = outcomeFailed, fmt.Errorf("%w: %w", ErrStreamFailure, err)
		}
		r.outcome, r.cause = outcome, cause
		r.cancel()
		c.mu.Unlock()

		switch outcome {
		case outcomeStopped:
			c.log.Debug("recognition cancelled")
		case outcomeFailed:
			c.log.Error("recognition error", "error", err)
		}
		go c.teardown(r, outcome, cause)

		if outcome == outcomeFinal && res.Text != "" && c.opts.OnFinal != nil {
			c.opts.OnFinal(res.Text)
		}
	}
}

const (
	outcomeFinal   = "final"
	outcomeStopped = "stopped"
	outcomeFailed  = "failed"
	outcomeDenied  = "denied"
)

// teardown releases everything r acquired and returns the coordinator to
// Idle. Only the first call for a run does work; later calls wait for it.
func (c *Coordinator) teardown(r *run, outcome string, cause error) {
	r.once.Do(func() {
		r.cancel()
		<-r.startDone

		c.mu.Lock()
		if r.outcome != "" {
			// A recognition callback ended the run before this call.
			outcome, cause = r.outcome, r.cause
		} else {
			r.outcome, r.cause = outcome, cause
		}
		next := StateStopping
		if outcome == outcomeFinal {
			next = StateFinalizing
		}
		req, task := r.request, r.task
		r.request, r.task = nil, nil
		if c.current == r {
			c.state = next
		}
		c.mu.Unlock()
		c.publishState(next)

		if req != nil {
			req.EndAudio()
		}
		if task != nil && outcome != outcomeFinal {
			task.Cancel()
		}
		if r.pumpDone != nil {
			<-r.pumpDone
		}

		c.stopCapture(r)

		if r.audioActive {
			if err := c.audio.Deactivate(); err != nil {
				c.log.Warn("failed to deactivate audio session", "error", fmt.Errorf("%w: %w", ErrDeactivationFailure, err))
			}
			r.audioActive = false
		}

		dropped := r.dropped.Load()
		if dropped > 0 {
			c.log.Warn("audio frames dropped", "count", dropped)
		}

		c.mu.Lock()
		if c.current == r {
			c.current = nil
			c.state = StateIdle
			c.lastErr = cause
		}
		c.mu.Unlock()

		c.transcript.Update(func(s *ui.Snapshot) {
			s.IsRecording = false
			s.State = StateIdle.String()
		})
		c.metrics.recordEnd(outcome, r.begun, dropped)
		c.log.Info("recognition ended", "outcome", outcome)
	})
}

// stopCapture stops the device if r started it and removes the tap if r
// installed it. A device shared with another coordinator is left alone.
func (c *Coordinator) stopCapture(r *run) {
	r.captureMu.Lock()
	defer r.captureMu.Unlock()

	c.mu.Lock()
	started, installed := r.captureStarted, r.tapInstalled
	r.captureStarted, r.tapInstalled = false, false
	c.mu.Unlock()

	if started {
		c.capture.Stop()
	}
	if installed {
		c.capture.RemoveTap()
	}
}

func (c *Coordinator) publishState(s State) {
	name := s.String()
	c.transcript.Update(func(snap *ui.Snapshot) { snap.State = name })
}
