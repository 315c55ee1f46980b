// Package ui holds the observable state shown to the user. All mutations run
// on a single MainQueue goroutine so observers see them in order.
package ui

import "sync"

// MainQueue runs dispatched closures one at a time, in order, on its own goroutine.
type MainQueue struct {
	mu     sync.Mutex
	closed bool
	tasks  chan func()
	done   chan struct{}
}

// NewMainQueue starts a queue that buffers up to size pending closures.
func NewMainQueue(size int) *MainQueue {
	if size <= 0 {
		size = 64
	}
	q := &MainQueue{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *MainQueue) loop() {
	defer close(q.done)
	for fn := range q.tasks {
		fn()
	}
}

// Dispatch schedules fn. It blocks only while the buffer is full and drops fn
// once the queue is closed.
func (q *MainQueue) Dispatch(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.tasks <- fn
}

// Sync schedules fn and waits for it to run. It returns immediately if the
// queue is closed. Never call Sync from a dispatched closure.
func (q *MainQueue) Sync(fn func()) {
	ran := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks <- func() {
		fn()
		close(ran)
	}
	q.mu.Unlock()
	<-ran
}

// Close drains pending closures and stops the queue. It is safe to call
// multiple times.
func (q *MainQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	<-q.done
}
