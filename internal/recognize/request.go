package recognize

import "sync"

// Request carries live audio into a recognition task. Append and EndAudio
// are safe to call from any goroutine.
type Request struct {
	// ShouldReportPartialResults enables non-final results while audio streams.
	ShouldReportPartialResults bool

	mu      sync.Mutex
	pending []float32
	ended   bool
	ready   chan struct{}
}

// NewRequest returns a Request that reports partial results.
func NewRequest() *Request {
	return &Request{
		ShouldReportPartialResults: true,
		ready:                      make(chan struct{}, 1),
	}
}

// Append queues samples for recognition. Samples appended after EndAudio are dropped.
func (r *Request) Append(samples []float32) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.pending = append(r.pending, samples...)
	r.mu.Unlock()
	r.notify()
}

// EndAudio marks the end of the audio stream. Calling it again is a no-op.
func (r *Request) EndAudio() {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.ended = true
	r.mu.Unlock()
	r.notify()
}

// Ended reports whether EndAudio has been called.
func (r *Request) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *Request) notify() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// drain takes all pending samples.
func (r *Request) drain() ([]float32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples := r.pending
	r.pending = nil
	return samples, r.ended
}
