package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/pkg/logger_i"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// Pool is an elastic set of workers for CPU bound work such as document
// parsing. It starts with MinWorkers, grows toward MaxWorkers as tasks queue
// up and retires idle workers back down to MinWorkers.
type Pool struct {
	tasks             chan func()
	dispatcherChannel chan bool
	stopWorkerChannel chan bool
	workerWaitGroup   *sync.WaitGroup

	currentWorkerCount int64
	requestCount       int64

	minWorkers        int64
	maxWorkers        int64
	requestsPerWorker int64
	idleTimeout       time.Duration

	logger *logger_i.Logger
}

type PoolConfig struct {
	QueueSize         int
	MinWorkers        int64
	MaxWorkers        int64
	RequestsPerWorker int64
	IdleTimeout       time.Duration
	// Stop is closed on shutdown.
	Stop  chan bool
	Group *sync.WaitGroup
}

func DefaultPoolConfig(stop chan bool, group *sync.WaitGroup) PoolConfig {
	return PoolConfig{
		QueueSize:         config.WorkerQueueSize,
		MinWorkers:        config.MinWorkerCount,
		MaxWorkers:        config.MaxWorkerCount,
		RequestsPerWorker: config.RequestsPerNewWorkerCount,
		IdleTimeout:       config.IdleWorkerTimeout,
		Stop:              stop,
		Group:             group,
	}
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.MinWorkers > cfg.MaxWorkers {
		cfg.MinWorkers = cfg.MaxWorkers
	}
	if cfg.RequestsPerWorker < 1 {
		cfg.RequestsPerWorker = 1
	}
	if cfg.Group == nil {
		cfg.Group = &sync.WaitGroup{}
	}
	if cfg.Stop == nil {
		cfg.Stop = make(chan bool)
	}
	return &Pool{
		tasks:             make(chan func(), cfg.QueueSize),
		dispatcherChannel: make(chan bool, 1),
		stopWorkerChannel: cfg.Stop,
		workerWaitGroup:   cfg.Group,
		minWorkers:        cfg.MinWorkers,
		maxWorkers:        cfg.MaxWorkers,
		requestsPerWorker: cfg.RequestsPerWorker,
		idleTimeout:       cfg.IdleTimeout,
		logger:            logger_i.NewLogger("WorkerPool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.minWorkers, "max", p.maxWorkers)
	go p.dispatcher()
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.currentWorkerCount)
}

func (p *Pool) dispatcher() {
	for i := int64(0); i < p.minWorkers; i++ {
		p.createWorker()
	}
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.dispatcherChannel:
			if atomic.LoadInt64(&p.currentWorkerCount) < p.maxWorkers {
				p.logger.Debug("Creating new worker", "workerCount", p.WorkerCount())
				p.createWorker()
			}
		case <-p.stopWorkerChannel:
			return
		}
	}
}

func (p *Pool) createWorker() {
	p.workerWaitGroup.Add(1)
	atomic.AddInt64(&p.currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
}

func (p *Pool) worker() {
	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case task := <-p.tasks:
			metrics.DecrementTasksInQueue()
			p.executeTask(task)
			resetTimer(idle, p.idleTimeout)

		case <-p.stopWorkerChannel:
			p.removeWorker("Stop worker signal received", false)
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout", true)
				return
			}
			idle.Reset(p.idleTimeout)
		}
	}
}

// Do runs fn on a pool worker and waits for it to finish.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case <-p.stopWorkerChannel:
		return ErrPoolStopped
	default:
	}

	select {
	case p.tasks <- task:
		metrics.IncrementTasksInQueue()
	case <-p.stopWorkerChannel:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	p.signalDispatcher()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
