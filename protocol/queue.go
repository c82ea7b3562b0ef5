package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/sireader/core/frame"
)

// Queue is a FIFO of frames delivered by the accumulator and consumed by the
// driver's startup and read routines. Clearing the queue (on Stop) wakes
// every blocked Take/TakeForever call with ErrQueueCleared rather than
// leaving it to time out.
type Queue struct {
	mu      sync.Mutex
	items   []frame.Frame
	itemCh  chan struct{}
	clearCh chan struct{}
}

// NewQueue returns an empty Queue ready for use.
func NewQueue() *Queue {
	return &Queue{
		itemCh:  make(chan struct{}),
		clearCh: make(chan struct{}),
	}
}

// Push appends f and wakes any waiter blocked in Take/TakeForever.
func (q *Queue) Push(f frame.Frame) {
	q.mu.Lock()
	q.items = append(q.items, f)
	old := q.itemCh
	q.itemCh = make(chan struct{})
	q.mu.Unlock()
	close(old)
}

// Clear drops every queued frame and wakes every waiter with ErrQueueCleared.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	old := q.clearCh
	q.clearCh = make(chan struct{})
	q.mu.Unlock()
	close(old)
}

func (q *Queue) tryPop() (frame.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return frame.Frame{}, false
	}
	f := q.items[0]
	q.items = q.items[1:]
	return f, true
}

func (q *Queue) wait(ctx context.Context, after <-chan time.Time) (frame.Frame, error) {
	for {
		if f, ok := q.tryPop(); ok {
			return f, nil
		}

		q.mu.Lock()
		itemWait := q.itemCh
		clearWait := q.clearCh
		q.mu.Unlock()

		select {
		case <-itemWait:
			continue
		case <-clearWait:
			return frame.Frame{}, ErrQueueCleared
		case <-after:
			return frame.Frame{}, ErrTimeout
		case <-ctx.Done():
			return frame.Frame{}, ctx.Err()
		}
	}
}

// Take waits up to timeout for a frame, returning ErrTimeout if none arrives.
func (q *Queue) Take(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return q.wait(ctx, timer.C)
}

// TakeForever waits indefinitely for a frame (until ctx is cancelled or the
// queue is cleared), used by the driver's main dispatch loop.
func (q *Queue) TakeForever(ctx context.Context) (frame.Frame, error) {
	return q.wait(ctx, nil)
}
