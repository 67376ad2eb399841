package warm

import (
	"context"
	"fmt"

	"github.com/jsh-team/chunkbroker/internal/broker"
)

// NewWarmWorkerPool creates a new warm worker pool. Results are buffered up
// to queueSize; callers read one result per accepted job.
func NewWarmWorkerPool(maxWorkers int, queueSize int, cfg Config) *WarmWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if cfg.Registry == nil {
		cfg.Registry = broker.NewRegistry()
	}

	return &WarmWorkerPool{
		workers:   maxWorkers,
		jobQueue:  make(chan WarmJob, queueSize),
		results:   make(chan WarmResult, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		isRunning: false,
		cfg:       cfg,
		files:     broker.NewRegistry(),
	}
}

// Start initializes and starts the warm worker pool
func (p *WarmWorkerPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("warm worker pool is already running")
	}
	if p.cfg.Stats == nil || p.cfg.Fetcher == nil {
		return fmt.Errorf("warm worker pool needs stats and a fetcher")
	}

	// Start worker goroutines
	for i := 0; i < p.workers; i++ {
		p.workerWg.Add(1)
		go p.worker(i)
	}

	p.isRunning = true
	return nil
}

// Stop shuts the pool down. Jobs still queued are dropped and the results
// channel is closed once every worker has returned.
func (p *WarmWorkerPool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return nil
	}

	// Cancel context to signal workers to stop
	p.cancel()

	// Close job queue to prevent new jobs
	close(p.jobQueue)

	// Wait for all workers to finish
	p.workerWg.Wait()
	close(p.results)

	p.isRunning = false
	return nil
}

// SubmitJob submits a warm job to the pool
func (p *WarmWorkerPool) SubmitJob(job WarmJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.isRunning {
		return fmt.Errorf("warm worker pool is not running")
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("warm worker pool is shutting down")
	default:
		return fmt.Errorf("warm job queue is full")
	}
}

// Results delivers one WarmResult per processed job
func (p *WarmWorkerPool) Results() <-chan WarmResult {
	return p.results
}

// Registry returns the registry names are loaded through
func (p *WarmWorkerPool) Registry() *broker.Registry {
	return p.cfg.Registry
}

// GetQueueSize returns the current number of jobs in the queue
func (p *WarmWorkerPool) GetQueueSize() int {
	return len(p.jobQueue)
}

// IsRunning returns whether the worker pool is currently running
func (p *WarmWorkerPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}

// worker is the main worker function that processes warm jobs
func (p *WarmWorkerPool) worker(workerID int) {
	defer p.workerWg.Done()

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}

			result := p.processJob(workerID, job)

			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}
