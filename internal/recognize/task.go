package recognize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ErrCanceled is delivered to a task's handler when the task is canceled.
var ErrCanceled = errors.New("recognize: recognition request was canceled")

// IsCancellation reports whether err signals an intentional cancellation
// rather than a recognition failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "canceled") || strings.Contains(msg, "cancelled")
}

// Result is one recognition update.
type Result struct {
	// Text is the best transcription so far: Finalized followed by Volatile.
	Text string
	// Finalized is text that will not be revised.
	Finalized string
	// Volatile is text that may still change.
	Volatile string
	// IsFinal marks the last result of a task.
	IsFinal bool
}

// Handler receives results and errors from a task. It is called from the
// task goroutine; after a final result or an error it is not called again.
type Handler func(result *Result, err error)

// TaskState describes where a task is in its lifecycle.
type TaskState int32

const (
	TaskRunning TaskState = iota
	TaskFinishing
	TaskCanceling
	TaskCompleted
	TaskCanceled
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskFinishing:
		return "finishing"
	case TaskCanceling:
		return "canceling"
	case TaskCompleted:
		return "completed"
	case TaskCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// Task is a running recognition.
type Task interface {
	// Cancel stops recognition; the handler receives ErrCanceled unless the
	// task already completed. It does not wait and never calls the handler
	// on the caller's goroutine.
	Cancel()
	// Finish ends the audio stream and lets the task deliver its final result.
	Finish()
	// State returns the current task state.
	State() TaskState
}

// decoder turns accumulated audio into results for one task.
type decoder interface {
	// push consumes mono samples. A non-nil result is delivered immediately.
	push(samples []float32) (*Result, error)
	// partial returns an updated non-final result, or nil if nothing changed.
	partial() (*Result, error)
	// final flushes remaining audio into the final result.
	final() (*Result, error)
}

type streamTask struct {
	req      *Request
	dec      decoder
	handler  Handler
	channels int
	interval time.Duration

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

func startTask(req *Request, dec decoder, handler Handler, channels int, interval time.Duration) *streamTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &streamTask{
		req:      req,
		dec:      dec,
		handler:  handler,
		channels: channels,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go t.run(ctx)
	return t
}

func (t *streamTask) Cancel() {
	if t.state.CompareAndSwap(int32(TaskRunning), int32(TaskCanceling)) ||
		t.state.CompareAndSwap(int32(TaskFinishing), int32(TaskCanceling)) {
		t.cancel()
	}
}

func (t *streamTask) Finish() {
	t.state.CompareAndSwap(int32(TaskRunning), int32(TaskFinishing))
	t.req.EndAudio()
}

func (t *streamTask) State() TaskState {
	return TaskState(t.state.Load())
}

// wait blocks until the task goroutine exits.
func (t *streamTask) wait() {
	<-t.done
}

func (t *streamTask) run(ctx context.Context) {
	defer close(t.done)
	defer t.cancel()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.fail(ErrCanceled)
			return

		case <-t.req.ready:
			samples, ended := t.req.drain()
			if len(samples) > 0 {
				res, err := t.dec.push(downmix(samples, t.channels))
				if t.finished(ctx, res, err) {
					return
				}
			}
			if ended {
				res, err := t.dec.final()
				if err == nil && res == nil {
					res = &Result{IsFinal: true}
				}
				t.finished(ctx, res, err)
				return
			}

		case <-ticker.C:
			if !t.req.ShouldReportPartialResults {
				continue
			}
			res, err := t.dec.partial()
			if t.finished(ctx, res, err) {
				return
			}
		}
	}
}

// finished delivers the outcome of a decoder call and reports whether the
// task is over.
func (t *streamTask) finished(ctx context.Context, res *Result, err error) bool {
	if ctx.Err() != nil {
		t.fail(ErrCanceled)
		return true
	}
	if err != nil {
		t.fail(err)
		return true
	}
	if res == nil {
		return false
	}
	if res.IsFinal {
		t.state.Store(int32(TaskCompleted))
	}
	t.handler(res, nil)
	return res.IsFinal
}

func (t *streamTask) fail(err error) {
	if errors.Is(err, ErrCanceled) {
		t.state.Store(int32(TaskCanceled))
	} else {
		t.state.Store(int32(TaskCompleted))
	}
	t.handler(nil, err)
}

// downmix averages interleaved channels into mono.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
