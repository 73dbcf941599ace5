// Package docker runs submitted code inside throwaway containers.
//
// It accepts the same languages as the local backend and returns the same
// result shape, but each request gets a fresh, network-less, quota-limited
// container taken from a pre-warmed pool.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/classroom/internal/executor"
)

var _ executor.Executor = (*Executor)(nil)

// Executor implements executor.Executor using Docker.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[string]*Pool // keyed by image
}

// New connects to the Docker daemon, pulls every configured image and starts
// one container pool per image.
func New(cfg Config, logger *slog.Logger) (*Executor, error) {
	if len(cfg.Images) == 0 {
		return nil, errors.New("docker: no images configured")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	e := &Executor{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  make(map[string]*Pool),
	}

	for _, img := range uniqueImages(cfg.Images) {
		if err := e.pull(img); err != nil {
			cli.Close()
			return nil, err
		}
		e.pools[img] = NewPool(cli, img, cfg, logger)
	}
	for _, p := range e.pools {
		p.Start()
	}

	return e, nil
}

// pull blocks until img is available locally.
func (e *Executor) pull(img string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	e.logger.Info("ensuring docker image is available", slog.String("image", img))
	reader, err := e.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	e.logger.Info("docker image is ready", slog.String("image", img))
	return nil
}

// Close shuts down every pool and the docker client.
func (e *Executor) Close() error {
	for _, p := range e.pools {
		p.Stop()
	}
	return e.cli.Close()
}

// Execute runs the request in a fresh container from the language's pool.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	lang, ok := executor.Resolve(req.Language)
	start := time.Now()
	elapsed := func() int64 { return time.Since(start).Milliseconds() }
	if !ok {
		return executor.Failed(executor.KindUnsupportedLanguage,
			executor.UnsupportedMessage(req.Language), elapsed()), nil
	}

	pool, steps, err := e.lookup(lang)
	if err != nil {
		return executor.Failed(executor.KindLaunchFailure, err.Error(), elapsed()), nil
	}

	executeCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	containerID, err := pool.GetContainer(executeCtx)
	if err != nil {
		return executor.Failed(executor.KindLaunchFailure,
			fmt.Sprintf("Failed to get container for %s: %v", lang.Name, err), elapsed()), nil
	}

	// Always remove the container we acquired; force-removal also kills
	// anything still running inside it after a timeout.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.cli.ContainerRemove(cleanupCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error("failed to remove container", slog.String("id", containerID), slog.String("error", err.Error()))
		}
	}()

	out, err := e.exec(executeCtx, containerID, steps.write, req.Code)
	if res := e.judge(lang, phaseWrite, out, err, elapsed()); res != nil {
		return res, nil
	}

	if steps.compile != nil {
		out, err = e.exec(executeCtx, containerID, steps.compile, "")
		if res := e.judge(lang, phaseCompile, out, err, elapsed()); res != nil {
			return res, nil
		}
	}

	out, err = e.exec(executeCtx, containerID, steps.run, "")
	return e.judge(lang, phaseRun, out, err, elapsed()), nil
}

type phase int

const (
	phaseWrite phase = iota
	phaseCompile
	phaseRun
)

func (p phase) verb() string {
	switch p {
	case phaseWrite:
		return "write"
	case phaseCompile:
		return "compile"
	default:
		return "execute"
	}
}

// judge turns one step's outcome into a final result. A nil return means the
// step succeeded and execution continues; phaseRun always returns a result.
// Timeouts come from the deadline, never from the program's exit code.
func (e *Executor) judge(lang executor.Language, p phase, out execOutput, err error, elapsedMs int64) *executor.ExecutionResult {
	if err != nil {
		return executor.Failed(executor.KindLaunchFailure,
			fmt.Sprintf("Failed to %s %s: %v", p.verb(), lang.Name, err), elapsedMs)
	}
	if out.timedOut {
		return e.timedOut(elapsedMs)
	}
	if out.exitCode == 0 {
		if p == phaseRun {
			return executor.Succeeded(out.stdout, elapsedMs)
		}
		return nil
	}
	switch p {
	case phaseWrite:
		return executor.Failed(executor.KindLaunchFailure,
			fmt.Sprintf("Failed to write %s file: %s", lang.Name, strings.TrimSpace(out.stderr)), elapsedMs)
	case phaseCompile:
		return executor.Failed(executor.KindCompileFailure, out.stderr, elapsedMs)
	default:
		return executor.Failed(executor.KindRuntimeFailure, out.stderr, elapsedMs)
	}
}

func (e *Executor) lookup(lang executor.Language) (*Pool, plan, error) {
	img, ok := e.config.Images[lang.Class]
	if !ok {
		return nil, plan{}, fmt.Errorf("no image configured for %s", lang.Name)
	}
	pool, ok := e.pools[img]
	if !ok {
		return nil, plan{}, fmt.Errorf("no container pool for image %s", img)
	}
	steps, ok := planFor(lang.Class)
	if !ok {
		return nil, plan{}, fmt.Errorf("no execution plan for %s", lang.Name)
	}
	return pool, steps, nil
}

func (e *Executor) timedOut(elapsedMs int64) *executor.ExecutionResult {
	return executor.Failed(executor.KindTimeout,
		fmt.Sprintf("Execution timed out after %s", e.config.Timeout), elapsedMs)
}

// execOutput is the captured result of one docker exec.
type execOutput struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool // ctx ended before the command finished
}

// exec runs cmd inside the container, feeding stdin when non-empty, and
// waits for it to finish or for ctx to end.
func (e *Executor) exec(ctx context.Context, containerID string, cmd []string, stdin string) (execOutput, error) {
	execResp, err := e.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdin:  stdin != "",
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
		WorkingDir:   workDir,
	})
	if err != nil {
		return execOutput{}, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return execOutput{}, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	if stdin != "" {
		if _, err := io.Copy(attachResp.Conn, strings.NewReader(stdin)); err != nil {
			return execOutput{}, fmt.Errorf("failed to write stdin: %w", err)
		}
		if err := attachResp.CloseWrite(); err != nil {
			return execOutput{}, fmt.Errorf("failed to close stdin: %w", err)
		}
	}

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes stdout from stderr
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	select {
	case <-done:
		inspectResp, err := e.cli.ContainerExecInspect(context.Background(), execResp.ID)
		if err != nil {
			return execOutput{}, fmt.Errorf("failed to inspect exec: %w", err)
		}
		return execOutput{stdout: stdout.String(), stderr: stderr.String(), exitCode: inspectResp.ExitCode}, nil
	case <-ctx.Done():
		return execOutput{timedOut: true}, nil
	}
}

func uniqueImages(images map[executor.Class]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, img := range images {
		if !seen[img] {
			seen[img] = true
			out = append(out, img)
		}
	}
	return out
}
