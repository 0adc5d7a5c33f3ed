package queue

import (
	"context"
	"sync"
)

// Memory is an in-memory FIFO of game IDs awaiting analysis. Enqueue never
// blocks; Dequeue blocks until an ID is available or the context is done.
type Memory struct {
	mu    sync.Mutex
	queue []int64
	cond  *sync.Cond
}

func NewMemory() *Memory {
	q := &Memory{
		queue: make([]int64, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Memory) Enqueue(gameID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, gameID)
	q.cond.Signal()
}

func (q *Memory) Dequeue(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// One watcher per call, released on return, so repeated park/wake
	// cycles do not accumulate goroutines. Cancellation wakes the waiter
	// via Broadcast under the lock.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-stop:
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if len(q.queue) > 0 {
			gameID := q.queue[0]
			q.queue = q.queue[1:]
			return gameID, nil
		}

		q.cond.Wait()
	}
}

func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
