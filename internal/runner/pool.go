package runner

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task represents a unit of work.
type Task func(workerID int) error

// DoneFunc observes a finished task.
type DoneFunc func(workerID int, err error)

// WorkerPool manages a bounded pool of worker goroutines.
type WorkerPool struct {
	NumWorkers int
	Tasks      chan Task
	logger     *slog.Logger
	onDone     DoneFunc
	mu         sync.RWMutex
	wg         sync.WaitGroup
	failed     int64
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(numWorkers int, logger *slog.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Buffered so producers rarely block behind busy workers
	bufferSize := numWorkers * 10
	if bufferSize < 100 {
		bufferSize = 100
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		Tasks:      make(chan Task, bufferSize),
		logger:     logger,
	}
}

// SetDoneFunc sets the completion hook in a thread-safe way.
func (p *WorkerPool) SetDoneFunc(fn DoneFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDone = fn
}

func (p *WorkerPool) doneFunc() DoneFunc {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.onDone
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Debug("starting worker pool", "workers", p.NumWorkers)
	for i := 0; i < p.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for task := range p.Tasks {
		err := task(id)
		if err != nil {
			atomic.AddInt64(&p.failed, 1)
			p.logger.Debug("task failed", "worker", id, "error", err)
		}
		if fn := p.doneFunc(); fn != nil {
			fn(id, err)
		}
	}
}

// Submit adds a task to the pool.
func (p *WorkerPool) Submit(t Task) {
	p.Tasks <- t
}

// Stop closes the task channel and waits for workers to finish.
func (p *WorkerPool) Stop() {
	close(p.Tasks)
	p.wg.Wait()
	p.logger.Debug("worker pool stopped", "failed", p.FailedCount())
}

// FailedCount returns the number of tasks that returned an error.
func (p *WorkerPool) FailedCount() int {
	return int(atomic.LoadInt64(&p.failed))
}
