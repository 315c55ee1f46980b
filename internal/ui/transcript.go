package ui

import "sync"

// Snapshot is the user-visible state of one recognizer.
type Snapshot struct {
	Engine         string
	State          string
	IsRecording    bool
	RecognizedText string
}

// Transcript is an observable Snapshot. Updates are applied on the MainQueue
// and fanned out to subscribers; slow subscribers only see the latest value.
type Transcript struct {
	queue *MainQueue

	mu   sync.Mutex
	snap Snapshot
	subs map[int]chan Snapshot
	next int
}

// NewTranscript creates a Transcript for engine whose updates run on queue.
func NewTranscript(queue *MainQueue, engine string) *Transcript {
	return &Transcript{
		queue: queue,
		snap:  Snapshot{Engine: engine, State: "idle"},
		subs:  make(map[int]chan Snapshot),
	}
}

// Update schedules fn to mutate the snapshot on the MainQueue.
func (t *Transcript) Update(fn func(*Snapshot)) {
	t.queue.Dispatch(func() { t.apply(fn) })
}

// Flush waits until every update scheduled before it has been applied.
func (t *Transcript) Flush() {
	t.queue.Sync(func() {})
}

// Snapshot returns the current value.
func (t *Transcript) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Subscribe returns a channel receiving every new value, starting with the
// current one, and a func that cancels the subscription.
func (t *Transcript) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = ch
	ch <- t.snap
	t.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
	return ch, cancel
}

func (t *Transcript) apply(fn func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap
	fn(&t.snap)
	if t.snap == prev {
		return
	}
	for _, ch := range t.subs {
		offer(ch, t.snap)
	}
}

// offer sends s, discarding the oldest queued value if ch is full.
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
