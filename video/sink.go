package video

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// Sink consumes frames for display. Present is called on the transport's
// render goroutine and takes ownership of img.
type Sink interface {
	Present(img image.Image, ts time.Duration)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(img image.Image, ts time.Duration)

// Present calls f(img, ts).
func (f SinkFunc) Present(img image.Image, ts time.Duration) {
	f(img, ts)
}

// PresentedFrame is a frame waiting in a FrameQueue.
type PresentedFrame struct {
	Image     image.Image
	Timestamp time.Duration
}

// QueueStats is a snapshot of FrameQueue counters.
type QueueStats struct {
	Presented uint64
	Dropped   uint64
	Pending   int
}

// FrameQueue is a bounded Sink that never blocks the producer.
//
// When the queue is full the oldest pending frame is discarded and counted,
// so a slow consumer costs frames rather than stalling the render loop.
// Consumers pull with Next until it reports the queue closed and drained.
type FrameQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []PresentedFrame
	capacity int
	closed   bool

	presented atomic.Uint64
	dropped   atomic.Uint64
}

// NewFrameQueue creates a queue holding at most capacity frames.
// A capacity below one is treated as one.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &FrameQueue{
		pending:  make([]PresentedFrame, 0, capacity),
		capacity: capacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Present enqueues a frame, dropping the oldest one if the queue is full.
// Frames presented after Close are discarded.
func (q *FrameQueue) Present(img image.Image, ts time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.dropped.Add(1)
		return
	}

	if len(q.pending) == q.capacity {
		copy(q.pending, q.pending[1:])
		q.pending = q.pending[:len(q.pending)-1]
		q.dropped.Add(1)
	}

	q.pending = append(q.pending, PresentedFrame{Image: img, Timestamp: ts})
	q.presented.Add(1)
	q.cond.Signal()
}

// Next blocks until a frame is available and returns it. It returns false
// once the queue is closed and every pending frame has been consumed.
func (q *FrameQueue) Next() (PresentedFrame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return PresentedFrame{}, false
	}

	f := q.pending[0]
	copy(q.pending, q.pending[1:])
	q.pending[len(q.pending)-1] = PresentedFrame{}
	q.pending = q.pending[:len(q.pending)-1]
	return f, true
}

// Close stops accepting frames and wakes every waiting consumer.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Stats returns a snapshot of the queue counters.
func (q *FrameQueue) Stats() QueueStats {
	q.mu.Lock()
	pending := len(q.pending)
	q.mu.Unlock()

	return QueueStats{
		Presented: q.presented.Load(),
		Dropped:   q.dropped.Load(),
		Pending:   pending,
	}
}
