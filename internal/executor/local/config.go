package local

import (
	"os"
	"time"

	"github.com/sakif/classroom/internal/executor"
)

// Toolchain names the binaries used for one language class.
// Interpreted classes only set Interpreter and InlineFlag; compiled classes set
// Compiler, and Java additionally sets Runtime (the JVM launcher).
type Toolchain struct {
	Interpreter string
	InlineFlag  string
	Compiler    string
	Runtime     string
}

// Config holds the configuration for local execution.
type Config struct {
	// Timeout bounds a single execution, compile step included. Zero disables it.
	Timeout time.Duration
	// TempDir is the root under which per-execution workspaces are created.
	TempDir string
	// Toolchains maps each class to the binaries that run it.
	Toolchains map[executor.Class]Toolchain
}

// DefaultToolchains are the binaries resolved from PATH when nothing is configured.
func DefaultToolchains() map[executor.Class]Toolchain {
	return map[executor.Class]Toolchain{
		executor.Python:     {Interpreter: "python3", InlineFlag: "-c"},
		executor.JavaScript: {Interpreter: "node", InlineFlag: "-e"},
		executor.Rust:       {Compiler: "rustc"},
		executor.Cpp:        {Compiler: "g++"},
		executor.Java:       {Compiler: "javac", Runtime: "java"},
	}
}

// DefaultConfig provides sensible defaults for a host-toolchain executor.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		TempDir:    os.TempDir(),
		Toolchains: DefaultToolchains(),
	}
}

// toolchain returns the configured toolchain for class, falling back to the
// default binary for any field left empty.
func (c Config) toolchain(class executor.Class) Toolchain {
	def := DefaultToolchains()[class]
	tc, ok := c.Toolchains[class]
	if !ok {
		return def
	}
	if tc.Interpreter == "" {
		tc.Interpreter = def.Interpreter
	}
	if tc.InlineFlag == "" {
		tc.InlineFlag = def.InlineFlag
	}
	if tc.Compiler == "" {
		tc.Compiler = def.Compiler
	}
	if tc.Runtime == "" {
		tc.Runtime = def.Runtime
	}
	return tc
}
