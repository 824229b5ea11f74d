package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnRedelivered func()
	OnDropped     func()
}

// Options tunes redelivery for every worker in the pool.
type Options struct {
	Backoff         []time.Duration
	MaxRedeliveries int
}

// Pool manages the lifecycle of all consumer workers.
// Each worker owns its own MessageSource so the consumer group can spread
// partitions across them.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates n workers. newSource is called once per worker.
func NewPool(
	n int,
	newSource func() MessageSource,
	handler ChangeHandler,
	opts Options,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	if n < 1 {
		n = 1
	}
	workers := make([]*Worker, n)
	for i := range workers {
		workers[i] = NewWorker(
			i, newSource(), handler, opts,
			logger.With(zap.Int("worker_id", i)),
			hooks,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled
// and closes their sources.
func (p *Pool) Wait() {
	p.wg.Wait()
	for _, w := range p.workers {
		if err := w.src.Close(); err != nil {
			w.logger.Warn("close consumer", zap.Error(err))
		}
	}
}
