package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestPool(min, max int64, idle time.Duration) (*Pool, chan bool, *sync.WaitGroup) {
	stop := make(chan bool)
	wg := &sync.WaitGroup{}
	p := NewPool(PoolConfig{
		QueueSize:         10,
		MinWorkers:        min,
		MaxWorkers:        max,
		RequestsPerWorker: 1,
		IdleTimeout:       idle,
		Stop:              stop,
		Group:             wg,
	})
	return p, stop, wg
}

func TestWorkerPool_Flow(t *testing.T) {
	p, stopChan, wg := newTestPool(1, 4, time.Minute)
	p.Start()

	t.Run("Dispatcher starts the minimum workers", func(t *testing.T) {
		time.Sleep(50 * time.Millisecond)
		if count := p.WorkerCount(); count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Do runs the task and waits", func(t *testing.T) {
		var ran int32
		err := p.Do(context.Background(), func() { atomic.AddInt32(&ran, 1) })
		if err != nil {
			t.Fatalf("Do returned %v", err)
		}
		if atomic.LoadInt32(&ran) != 1 {
			t.Errorf("Expected task to run once, got %d", ran)
		}
	})

	t.Run("Panicking task does not kill the pool", func(t *testing.T) {
		if err := p.Do(context.Background(), func() { panic("boom") }); err != nil {
			t.Fatalf("Do returned %v", err)
		}
		var ran int32
		_ = p.Do(context.Background(), func() { atomic.AddInt32(&ran, 1) })
		if atomic.LoadInt32(&ran) != 1 {
			t.Error("pool stopped processing after a panic")
		}
	})

	t.Run("Pool grows under load", func(t *testing.T) {
		release := make(chan struct{})
		var started sync.WaitGroup
		for i := 0; i < 3; i++ {
			started.Add(1)
			go func() {
				defer started.Done()
				_ = p.Do(context.Background(), func() { <-release })
			}()
		}
		time.Sleep(100 * time.Millisecond)
		if count := p.WorkerCount(); count < 2 {
			t.Errorf("Expected pool to grow, got %d workers", count)
		}
		close(release)
		started.Wait()
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}

		if err := p.Do(context.Background(), func() {}); err != ErrPoolStopped {
			t.Errorf("Expected ErrPoolStopped after shutdown, got %v", err)
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	p, stopChan, _ := newTestPool(1, 4, 50*time.Millisecond)
	defer close(stopChan)

	// two extra workers on top of the minimum
	p.createWorker()
	p.createWorker()
	p.createWorker()

	time.Sleep(300 * time.Millisecond)
	if count := p.WorkerCount(); count != 1 {
		t.Errorf("Idle workers should retire down to the minimum, but count is %d", count)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	p, stopChan, _ := newTestPool(0, 1, time.Minute)
	defer close(stopChan)

	// no dispatcher, nothing will pick the task up
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Do(ctx, func() {}); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
