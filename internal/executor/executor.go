// Package executor defines the contract shared by every code execution backend.
//
// BACKENDS:
//   - local  → runs the host's toolchains as child processes (no isolation)
//   - docker → runs the same toolchains inside pre-warmed containers
//   - limit  → wraps any backend with a concurrency cap
//
// All of them speak ExecutionRequest → ExecutionResult, so the service layer
// never knows which one it was handed.
package executor

import (
	"context"
)

// ExecutionRequest is a single program submitted for execution.
type ExecutionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// FailureKind tags why an execution failed. It is empty on success.
//
// WHY A TAG?
// Every failure has the same shape (success=false plus an error string).
// Without a tag, callers would have to pattern-match on error text to tell
// "your program crashed" apart from "we don't speak that language".
type FailureKind string

const (
	KindUnsupportedLanguage FailureKind = "unsupported_language"
	KindLaunchFailure       FailureKind = "launch_failure"
	KindCompileFailure      FailureKind = "compile_failure"
	KindRuntimeFailure      FailureKind = "runtime_failure"
	KindTimeout             FailureKind = "timeout"
)

// ExecutionResult is the normalized outcome of an execution.
//
// Exactly one of Output and Error is meaningful:
//   - Success=true  → Output holds stdout, Error is empty
//   - Success=false → Error holds stderr or a diagnostic, Output is empty
//
// ExecutionTimeMs is always set, failures included. It measures how long the
// engine spent on the request (compile + run), not only the program itself.
type ExecutionResult struct {
	Output          string      `json:"output"`
	ExecutionTimeMs int64       `json:"execution_time_ms"`
	Success         bool        `json:"success"`
	Error           string      `json:"error,omitempty"`
	Kind            FailureKind `json:"kind,omitempty"`
}

// Executor represents the core interface for running submitted code.
//
// Implementations report program failures inside the result. The error
// return is reserved for the executor itself being unusable (for example a
// closed docker backend).
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// Succeeded builds a successful result.
func Succeeded(output string, elapsedMs int64) *ExecutionResult {
	return &ExecutionResult{
		Output:          output,
		ExecutionTimeMs: elapsedMs,
		Success:         true,
	}
}

// Failed builds a failed result of the given kind.
func Failed(kind FailureKind, message string, elapsedMs int64) *ExecutionResult {
	return &ExecutionResult{
		ExecutionTimeMs: elapsedMs,
		Success:         false,
		Error:           message,
		Kind:            kind,
	}
}
