package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"lab-production-engine/internal/service"
)

type Pool struct {
	queue      service.RunQueue
	processor  *Processor
	workers    int
	claimDelay time.Duration
	logger     *slog.Logger
}

func NewPool(queue service.RunQueue, processor *Processor, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		logger:     logger,
	}
}

// Run claims run ids and feeds them to the workers until ctx is done, then
// waits for in-flight runs to finish.
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info("worker pool started", "workers", p.workers)

	runCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for runID := range runCh {
				err := p.processor.Process(ctx, runID)
				if errors.Is(err, ErrRunNotSettled) {
					// no final status written: keep the claim so the queue
					// redelivers the run after its visibility timeout
					p.logger.Warn("run left in processing", "worker", n, "run_id", runID, "err", err)
					continue
				}
				if err != nil {
					p.logger.Warn("process run", "worker", n, "run_id", runID, "err", err)
				}

				if err := p.queue.Ack(ctx, runID); err != nil {
					p.logger.Warn("ack run", "worker", n, "run_id", runID, "err", err)
				}
			}
		}(i + 1)
	}

	defer func() {
		close(runCh)
		wg.Wait()
		p.logger.Info("worker pool stopped")
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		runID, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
		if err != nil {
			// timeout, redis.Nil or ctx cancel: not fatal
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				p.logger.Warn("claim run", "err", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
				}
			}
			continue
		}
		select {
		case runCh <- runID:
		case <-ctx.Done():
			return
		}
	}
}
