package main

import (
	"fmt"
	"log/slog"

	"github.com/sakif/classroom/internal/config"
	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/executor/docker"
	"github.com/sakif/classroom/internal/executor/limit"
	"github.com/sakif/classroom/internal/executor/local"
)

// buildExecutor creates the configured backend behind a concurrency cap.
// The returned cleanup func must be called once the executor is no longer used.
func buildExecutor(cfg *config.Config, logger *slog.Logger) (executor.Executor, func(), error) {
	var (
		backend executor.Executor
		cleanup = func() {}
	)

	switch cfg.Executor.Backend {
	case config.BackendDocker:
		d, err := docker.New(cfg.DockerConfig(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("starting docker executor: %w", err)
		}
		backend = d
		cleanup = func() {
			if err := d.Close(); err != nil {
				logger.Error("closing docker executor", slog.String("error", err.Error()))
			}
		}
	default:
		logger.Warn("local executor runs submitted code with this process's privileges; use the docker backend for untrusted code")
		backend = local.New(cfg.LocalConfig(), logger)
	}

	return limit.New(backend, int64(cfg.Executor.MaxConcurrent), logger), cleanup, nil
}
