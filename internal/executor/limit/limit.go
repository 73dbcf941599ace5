// Package limit caps how many executions may run at once.
//
// The local dispatcher happily spawns one compiler or interpreter per
// request. Under load that means an unbounded number of child processes.
// Executor sits in front of any backend and makes callers wait for a slot.
// It is itself an executor.Executor, so nothing above it changes.
package limit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sakif/classroom/internal/executor"
)

var _ executor.Executor = (*Executor)(nil)

// Executor bounds concurrent calls to the wrapped executor.
type Executor struct {
	next   executor.Executor
	sem    *semaphore.Weighted
	size   int64
	logger *slog.Logger
}

// New wraps next so that at most n executions are in flight. n < 1 is treated as 1.
func New(next executor.Executor, n int64, logger *slog.Logger) *Executor {
	if n < 1 {
		n = 1
	}
	return &Executor{
		next:   next,
		sem:    semaphore.NewWeighted(n),
		size:   n,
		logger: logger,
	}
}

// Size reports the configured number of slots.
func (e *Executor) Size() int64 {
	return e.size
}

// Execute waits for a free slot, then delegates.
//
// If ctx ends while still queued, the program never started: the result is a
// timeout-kind failure and the wait is reported as the execution time.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		e.logger.Warn("execution abandoned while queued",
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
		return executor.Failed(executor.KindTimeout,
			"Execution cancelled while waiting for a free slot",
			time.Since(start).Milliseconds()), nil
	}
	defer e.sem.Release(1)

	return e.next.Execute(ctx, req)
}
