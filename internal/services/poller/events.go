package poller

import (
	"sync"
	"sync/atomic"
	"time"

	"camwatch/internal/models"
)

// FrameEvent is produced once per processed frame. The consumer owns the
// frames and must call Release when done.
type FrameEvent struct {
	CameraID   int
	Raw        Frame
	Annotated  Frame
	Latency    time.Duration
	Detections []models.Detection
	At         time.Time
}

// Release closes both frames. Safe to call on a zero event.
func (e FrameEvent) Release() {
	if e.Annotated != nil && e.Annotated != e.Raw {
		e.Annotated.Close()
	}
	if e.Raw != nil {
		e.Raw.Close()
	}
}

// EventQueue is a bounded queue that drops the oldest event when full.
type EventQueue struct {
	ch      chan FrameEvent
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

func NewEventQueue(size int) *EventQueue {
	if size < 1 {
		size = 1
	}
	return &EventQueue{ch: make(chan FrameEvent, size)}
}

// Push enqueues ev, evicting and releasing the oldest queued event if needed.
// Events pushed after Close are released immediately.
func (q *EventQueue) Push(ev FrameEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		ev.Release()
		return
	}

	for {
		select {
		case q.ch <- ev:
			return
		default:
		}

		select {
		case old := <-q.ch:
			old.Release()
			q.dropped.Add(1)
		default:
		}
	}
}

// C returns the receive side of the queue. It is closed by Close.
func (q *EventQueue) C() <-chan FrameEvent {
	return q.ch
}

// Dropped returns how many events were evicted.
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.ch)
}

func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
