package docker

import (
	"time"

	"github.com/sakif/classroom/internal/executor"
)

// Config holds the configuration for Docker execution.
type Config struct {
	// Images maps each language class to the image that carries its toolchain.
	// A class without an image is rejected by this backend.
	Images map[executor.Class]string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout is the maximum amount of time the execution can take, compile included.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to keep per image.
	PoolSize int
}

// DefaultImages are the official images for each supported class.
func DefaultImages() map[executor.Class]string {
	return map[executor.Class]string{
		executor.Python:     "python:3.12-alpine",
		executor.JavaScript: "node:22-alpine",
		executor.Rust:       "rust:1-slim",
		executor.Cpp:        "gcc:14",
		executor.Java:       "eclipse-temurin:21-jdk",
	}
}

// DefaultConfig provides sensible defaults for a multi-language sandbox.
func DefaultConfig() Config {
	return Config{
		Images: DefaultImages(),
		// 256 MB memory limit; javac and rustc do not fit in less
		MemoryLimit: 256 * 1024 * 1024,
		// 0.5 CPU shares
		CPULimit: 0.5,
		// compile steps are slow under a CPU quota
		Timeout:  20 * time.Second,
		PoolSize: 2,
	}
}
