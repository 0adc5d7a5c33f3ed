package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caissa-analytics/internal/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu        sync.Mutex
	processed []int64
	failOn    int64
}

func (p *recordingProcessor) ProcessGame(ctx context.Context, gameID int64) error {
	p.mu.Lock()
	p.processed = append(p.processed, gameID)
	p.mu.Unlock()
	if gameID == p.failOn {
		return errors.New("analysis blew up")
	}
	return nil
}

func (p *recordingProcessor) snapshot() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.processed...)
}

func TestWorkerProcessesInOrderAndIsolatesFailures(t *testing.T) {
	q := queue.NewMemory()
	processor := &recordingProcessor{failOn: 1}
	w := New(q, processor, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	require.Eventually(t, func() bool {
		return len(processor.snapshot()) == 3
	}, time.Second, 5*time.Millisecond)

	// Game 1 failed but games 2 and 3 still ran, in submission order.
	assert.Equal(t, []int64{1, 2, 3}, processor.snapshot())

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}
