// Package local runs submitted code with the host's own toolchains.
//
// SECURITY WARNING:
// Nothing here is sandboxed. Programs run as child processes with the same
// user, filesystem and network access as the server itself. Before exposing
// this backend to untrusted users you need process isolation (containers or
// microVMs), CPU/memory quotas and filesystem/network confinement. The docker
// backend in internal/executor/docker covers part of that.
//
// EXECUTION STRATEGIES:
//
//	interpret (Python, JavaScript):
//	  python3 -c <source>         node -e <source>
//
//	compile-then-run (Rust, C++, Java):
//	  1. write source into a fresh workspace
//	  2. compile it (stop here on a nonzero exit)
//	  3. run the produced artifact with no arguments
//	  4. remove the workspace, whatever happened above
//
// The Dispatcher is stateless: it holds configuration only, so a single
// instance serves any number of concurrent requests.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/classroom/internal/executor"
)

var _ executor.Executor = (*Dispatcher)(nil)

// Dispatcher resolves a language, runs the matching strategy and normalizes
// the outcome into an executor.ExecutionResult.
type Dispatcher struct {
	config Config
	logger *slog.Logger
}

// New creates a Dispatcher.
func New(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.TempDir == "" {
		cfg.TempDir = DefaultConfig().TempDir
	}
	return &Dispatcher{config: cfg, logger: logger}
}

// Execute runs req and always returns a result; the error is always nil.
//
// TIMING:
// The clock starts right after language resolution and stops right before
// returning, so it covers compilation as well as the run. time.Now carries a
// monotonic reading, so time.Since is immune to wall-clock jumps.
// Unsupported languages are timed the same way (their value is ~0).
func (d *Dispatcher) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	lang, ok := executor.Resolve(req.Language)
	start := time.Now()
	if !ok {
		d.logger.Info("unsupported language requested", slog.String("language", req.Language))
		return executor.Failed(executor.KindUnsupportedLanguage,
			executor.UnsupportedMessage(req.Language), elapsedMs(start)), nil
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	var out outcome
	switch lang.Class {
	case executor.Python, executor.JavaScript:
		out = d.interpret(ctx, lang, req.Code)
	case executor.Java:
		out = d.compileJava(ctx, lang, req.Code)
	default:
		out = d.compileNative(ctx, lang, req.Code)
	}

	if out.kind == executor.KindTimeout {
		out.message = cancelMessage(ctx, d.config.Timeout)
	}

	elapsed := elapsedMs(start)
	d.logger.Debug("execution finished",
		slog.String("language", string(lang.Class)),
		slog.Bool("success", out.kind == ""),
		slog.String("kind", string(out.kind)),
		slog.Int64("elapsedMs", elapsed),
	)

	if out.kind != "" {
		return executor.Failed(out.kind, out.message, elapsed), nil
	}
	return executor.Succeeded(out.output, elapsed), nil
}

// interpret hands the source straight to the interpreter as an inline program.
func (d *Dispatcher) interpret(ctx context.Context, lang executor.Language, code string) outcome {
	tc := d.config.toolchain(lang.Class)
	p := runProcess(ctx, "", tc.Interpreter, tc.InlineFlag, code)
	return classify(ctx, p, executor.KindRuntimeFailure, "execute "+lang.Name)
}

// compileNative handles toolchains that emit a standalone executable (rustc, g++).
func (d *Dispatcher) compileNative(ctx context.Context, lang executor.Language, code string) outcome {
	ws, err := acquireWorkspace(d.config.TempDir, lang.Class, d.logger)
	if err != nil {
		return failure(executor.KindLaunchFailure, fmt.Sprintf("Failed to write %s file: %v", lang.Name, err))
	}
	defer ws.release()

	base := fmt.Sprintf("%s_%s", lang.Class, ws.id)
	src, err := ws.writeSource(base+lang.Extension, code)
	if err != nil {
		return failure(executor.KindLaunchFailure, fmt.Sprintf("Failed to write %s file: %v", lang.Name, err))
	}
	bin := ws.path(base)

	tc := d.config.toolchain(lang.Class)
	compiled := classify(ctx, runProcess(ctx, ws.dir, tc.Compiler, src, "-o", bin),
		executor.KindCompileFailure, "compile "+lang.Name)
	if compiled.kind != "" {
		return compiled
	}

	return classify(ctx, runProcess(ctx, ws.dir, bin), executor.KindRuntimeFailure, "execute "+lang.Name)
}

// compileJava is compile-then-run with one twist: javac requires a public
// class to live in a file of the same name, so every literal "class Main" in
// the source is renamed to a class named after the workspace id.
func (d *Dispatcher) compileJava(ctx context.Context, lang executor.Language, code string) outcome {
	ws, err := acquireWorkspace(d.config.TempDir, lang.Class, d.logger)
	if err != nil {
		return failure(executor.KindLaunchFailure, fmt.Sprintf("Failed to write %s file: %v", lang.Name, err))
	}
	defer ws.release()

	className := javaClassName(ws.id)
	src, err := ws.writeSource(className+lang.Extension, renameMainClass(code, className))
	if err != nil {
		return failure(executor.KindLaunchFailure, fmt.Sprintf("Failed to write %s file: %v", lang.Name, err))
	}

	tc := d.config.toolchain(lang.Class)
	compiled := classify(ctx, runProcess(ctx, ws.dir, tc.Compiler, "-d", ws.dir, src),
		executor.KindCompileFailure, "compile "+lang.Name)
	if compiled.kind != "" {
		return compiled
	}

	return classify(ctx, runProcess(ctx, ws.dir, tc.Runtime, "-cp", ws.dir, className),
		executor.KindRuntimeFailure, "execute "+lang.Name)
}

// javaClassName turns a UUID into a valid Java identifier, e.g.
// "Main_1b4e28ba_2fa1_11d2_883f_0016d3cca427".
func javaClassName(id string) string {
	return "Main_" + strings.ReplaceAll(id, "-", "_")
}

// renameMainClass rewrites every literal "class Main" to "class <name>".
// This is a plain text substitution: "class MainHelper" becomes
// "class <name>Helper" too.
func renameMainClass(code, name string) string {
	return strings.ReplaceAll(code, "class Main", "class "+name)
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
