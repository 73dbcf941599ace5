package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sakif/classroom/internal/executor"
)

// waitDelay bounds how long Wait keeps draining pipes after the child is
// killed. A grandchild holding stdout open would otherwise block forever.
const waitDelay = 2 * time.Second

// procResult is the raw outcome of one child process.
type procResult struct {
	stdout string
	stderr string
	err    error
}

// runProcess starts name with args in dir and blocks until it exits.
// Stdout and stderr are captured separately and returned in full.
//
// The child runs in its own process group. When ctx ends, the whole group is
// killed, so a program that forks helpers cannot outlive its request.
func runProcess(ctx context.Context, dir, name string, args ...string) procResult {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return procResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
		err:    err,
	}
}

// outcome is what a strategy hands back to the dispatcher before timing is
// attached. An empty kind means success.
type outcome struct {
	output  string
	kind    executor.FailureKind
	message string
}

func success(output string) outcome {
	return outcome{output: output}
}

func failure(kind executor.FailureKind, message string) outcome {
	return outcome{kind: kind, message: message}
}

// classify turns a finished process into an outcome.
//
//   - ctx ended           → timeout; the dispatcher fills in the message
//                           (checked first: a killed child also reports an ExitError)
//   - exited nonzero      → failKind with the captured stderr, verbatim
//   - never started       → launch failure, described with verb (e.g. "execute Python")
//   - exited zero         → success with stdout
func classify(ctx context.Context, p procResult, failKind executor.FailureKind, verb string) outcome {
	if p.err == nil {
		return success(p.stdout)
	}
	if ctx.Err() != nil {
		return failure(executor.KindTimeout, "")
	}
	var exitErr *exec.ExitError
	if errors.As(p.err, &exitErr) {
		return failure(failKind, p.stderr)
	}
	return failure(executor.KindLaunchFailure, fmt.Sprintf("Failed to %s: %v", verb, p.err))
}

// cancelMessage describes why ctx ended. budget is the configured timeout,
// named in the message when it is what fired.
func cancelMessage(ctx context.Context, budget time.Duration) string {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "Execution cancelled"
	}
	if budget > 0 {
		return fmt.Sprintf("Execution timed out after %s", budget)
	}
	return "Execution timed out"
}
