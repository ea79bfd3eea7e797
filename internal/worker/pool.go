package worker

import (
	"log/slog"
	"sync"

	"github.com/fretehub/credit-ledger/internal/metrics"
)

type task func()

// Pool runs fire-and-forget background tasks such as balance mirroring.
// A panicking task is logged and does not take its worker down.
type Pool struct {
	wg      sync.WaitGroup
	jobs    chan task
	mu      sync.RWMutex
	stopped bool
	log     *slog.Logger
}

func NewPool(n, queue int, log *slog.Logger) *Pool {
	if n <= 0 {
		n = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	p := &Pool{jobs: make(chan task, queue), log: log}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				p.run(job)
			}
		}()
	}
	return p
}

func (p *Pool) run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("worker task panic", "err", rec)
		}
	}()
	job()
}

// Submit enqueues f. It reports false when the pool is stopped or the queue
// is full; the task is dropped in that case.
func (p *Pool) Submit(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return true
	default:
		p.log.Warn("worker queue full, task dropped")
		return false
	}
}

// Stop drains queued tasks and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
