package queue

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := NewMemory()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	assert.Equal(t, 3, q.Len())

	for _, want := range []int64{1, 2, 3} {
		got, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewMemory()

	done := make(chan int64, 1)
	go func() {
		id, err := q.Dequeue(context.Background())
		if err == nil {
			done <- id
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(42)

	select {
	case id := <-done:
		assert.Equal(t, int64(42), id)
	case <-time.After(time.Second):
		t.Fatal("dequeue never woke up")
	}
}

func TestDequeueReleasesWatcherGoroutines(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	q.Enqueue(0)
	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	before := runtime.NumGoroutine()

	for i := int64(1); i <= 200; i++ {
		done := make(chan struct{})
		go func() {
			_, _ = q.Dequeue(ctx)
			close(done)
		}()
		time.Sleep(time.Millisecond)
		q.Enqueue(i)
		<-done
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+10
	}, time.Second, 10*time.Millisecond,
		"goroutine count must stay flat across repeated park/wake cycles")
}

func TestDequeueCancelled(t *testing.T) {
	q := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe cancellation")
	}
}
