package worker

import (
	"sync/atomic"
	"time"

	"github.com/akolanti/filebook/internal/metrics"
)

func (p *Pool) executeTask(task func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panicked", "panic", r)
		}
		metrics.CaptureExecutionMetrics("worker_task", time.Since(start))
	}()
	task()
}

// every requestsPerWorker submissions, or whenever nobody is listening, ask
// the dispatcher for one more worker
func (p *Pool) signalDispatcher() {
	count := atomic.AddInt64(&p.requestCount, 1)
	if count%p.requestsPerWorker != 0 && atomic.LoadInt64(&p.currentWorkerCount) > 0 {
		return
	}
	select {
	case p.dispatcherChannel <- true:
		metrics.IncrementDispatcherSignalCount()
	default:
	}
}

// tryRetire claims a retirement slot without dropping below minWorkers.
func (p *Pool) tryRetire() bool {
	for {
		current := atomic.LoadInt64(&p.currentWorkerCount)
		if current <= p.minWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, current, current-1) {
			return true
		}
	}
}

// retired workers already gave up their count in tryRetire
func (p *Pool) removeWorker(reason string, retired bool) {
	if !retired {
		atomic.AddInt64(&p.currentWorkerCount, -1)
	}
	p.workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
