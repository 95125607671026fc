package transfer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/timoparlison/febiscrawler/internal/crawler"
)

// TransferFunc executes one task. Implementations classify their own
// failures; the executor never inspects the error beyond recording it.
type TransferFunc func(ctx context.Context, task crawler.TransferTask) error

// Executor runs a batch of independent transfer tasks with a fixed
// concurrency ceiling and a per-task pacing delay. One failing task never
// cancels its siblings; RunAll returns only once every task has produced
// an outcome.
type Executor struct {
	maxParallel int64
	delay       time.Duration
	logger      *zap.Logger
}

// NewExecutor builds an Executor. maxParallel bounds in-flight transfers;
// delay is applied after admission, before each transfer starts.
func NewExecutor(maxParallel int, delay time.Duration, logger *zap.Logger) *Executor {
	if maxParallel <= 0 {
		maxParallel = 5
	}
	return &Executor{
		maxParallel: int64(maxParallel),
		delay:       delay,
		logger:      logger,
	}
}

// RunAll fans out all tasks, bounded by the admission gate, and joins them.
// It returns exactly one outcome per task, in input order. Empty input
// returns immediately without touching the gate.
func (e *Executor) RunAll(ctx context.Context, tasks []crawler.TransferTask, fn TransferFunc) []crawler.TransferOutcome {
	outcomes := make([]crawler.TransferOutcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	sem := semaphore.NewWeighted(e.maxParallel)
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task crawler.TransferTask) {
			defer wg.Done()
			outcomes[i] = crawler.TransferOutcome{
				Task: task,
				Err:  e.runOne(ctx, task, sem, fn),
			}
		}(i, task)
	}
	wg.Wait()
	return outcomes
}

func (e *Executor) runOne(ctx context.Context, task crawler.TransferTask, sem *semaphore.Weighted, fn TransferFunc) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return &crawler.NetworkError{URL: task.URL, Err: err}
	}
	defer sem.Release(1)

	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return &crawler.NetworkError{URL: task.URL, Err: ctx.Err()}
		}
	}
	return fn(ctx, task)
}
