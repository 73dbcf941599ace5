// Package config loads runtime configuration.
//
// Sources, lowest priority first:
//  1. built-in defaults
//  2. classroom.yaml in ".", "$HOME/.classroom" or the path given with --config
//  3. a .env file in the working directory (never overrides the real environment)
//  4. CLASSROOM_* environment variables, e.g. CLASSROOM_SERVER_PORT=9000
//     or CLASSROOM_EXECUTOR_TIMEOUT=5s
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/executor/docker"
	"github.com/sakif/classroom/internal/executor/local"
)

const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type GitHubConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
}

// Enabled reports whether GitHub login can be offered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	GitHub    GitHubConfig  `mapstructure:"github"`
}

// ToolchainConfig overrides the binaries for one language class.
// Empty fields keep the default.
type ToolchainConfig struct {
	Interpreter string `mapstructure:"interpreter"`
	InlineFlag  string `mapstructure:"inline_flag"`
	Compiler    string `mapstructure:"compiler"`
	Runtime     string `mapstructure:"runtime"`
}

type DockerConfig struct {
	Images        map[string]string `mapstructure:"images"`
	PoolSize      int               `mapstructure:"pool_size"`
	MemoryLimitMB int64             `mapstructure:"memory_limit_mb"`
	CPULimit      float64           `mapstructure:"cpu_limit"`
}

type ExecutorConfig struct {
	Backend       string                     `mapstructure:"backend"`
	Timeout       time.Duration              `mapstructure:"timeout"`
	MaxConcurrent int                        `mapstructure:"max_concurrent"`
	TempDir       string                     `mapstructure:"temp_dir"`
	Toolchains    map[string]ToolchainConfig `mapstructure:"toolchains"`
	Docker        DockerConfig               `mapstructure:"docker"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	Limit         int           `mapstructure:"limit"`
	Window        time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads configuration. configFile may be empty to use the search path.
// A missing config file or .env file is not an error; an unreadable or
// invalid one is.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("classroom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.classroom")
	}

	v.SetEnvPrefix("CLASSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key. AutomaticEnv only binds keys viper
// already knows, so a key without a default cannot be set from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("storage.db_path", "data/classroom.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.github.client_id", "")
	v.SetDefault("auth.github.client_secret", "")
	v.SetDefault("auth.github.callback_url", "")

	v.SetDefault("executor.backend", BackendLocal)
	v.SetDefault("executor.timeout", 10*time.Second)
	v.SetDefault("executor.max_concurrent", runtime.NumCPU()*2)
	v.SetDefault("executor.temp_dir", os.TempDir())
	v.SetDefault("executor.docker.pool_size", 2)
	v.SetDefault("executor.docker.memory_limit_mb", 256)
	v.SetDefault("executor.docker.cpu_limit", 0.5)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.redis_addr", "localhost:6379")
	v.SetDefault("ratelimit.redis_password", "")
	v.SetDefault("ratelimit.limit", 30)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks values that would otherwise fail late or silently.
// The JWT secret is checked by auth.NewTokenService when the server starts,
// since the one-shot CLI commands never need it.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Executor.Backend {
	case BackendLocal, BackendDocker:
	default:
		return fmt.Errorf("config: executor.backend must be %q or %q, got %q", BackendLocal, BackendDocker, c.Executor.Backend)
	}
	if c.Executor.Timeout <= 0 {
		return fmt.Errorf("config: executor.timeout must be positive, got %s", c.Executor.Timeout)
	}
	if c.Executor.MaxConcurrent < 1 {
		return fmt.Errorf("config: executor.max_concurrent must be at least 1, got %d", c.Executor.MaxConcurrent)
	}
	for name := range c.Executor.Toolchains {
		if _, ok := executor.Resolve(name); !ok {
			return fmt.Errorf("config: executor.toolchains: %s", executor.UnsupportedMessage(name))
		}
	}
	for name := range c.Executor.Docker.Images {
		if _, ok := executor.Resolve(name); !ok {
			return fmt.Errorf("config: executor.docker.images: %s", executor.UnsupportedMessage(name))
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RedisAddr == "" {
			return errors.New("config: ratelimit.redis_addr is required when rate limiting is enabled")
		}
		if c.RateLimit.Limit < 1 || c.RateLimit.Window < time.Second {
			return errors.New("config: ratelimit.limit must be positive and ratelimit.window at least 1s")
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	return nil
}

// LocalConfig converts the executor section for the host-toolchain backend.
// Toolchain keys may use any accepted spelling ("py" is not one, "python3" is).
func (c *Config) LocalConfig() local.Config {
	toolchains := local.DefaultToolchains()
	for name, tc := range c.Executor.Toolchains {
		lang, _ := executor.Resolve(name)
		toolchains[lang.Class] = local.Toolchain{
			Interpreter: tc.Interpreter,
			InlineFlag:  tc.InlineFlag,
			Compiler:    tc.Compiler,
			Runtime:     tc.Runtime,
		}
	}
	return local.Config{
		Timeout:    c.Executor.Timeout,
		TempDir:    c.Executor.TempDir,
		Toolchains: toolchains,
	}
}

// DockerConfig converts the executor section for the container backend.
func (c *Config) DockerConfig() docker.Config {
	cfg := docker.DefaultConfig()
	cfg.Timeout = c.Executor.Timeout
	if c.Executor.Docker.PoolSize > 0 {
		cfg.PoolSize = c.Executor.Docker.PoolSize
	}
	if c.Executor.Docker.MemoryLimitMB > 0 {
		cfg.MemoryLimit = c.Executor.Docker.MemoryLimitMB * 1024 * 1024
	}
	if c.Executor.Docker.CPULimit > 0 {
		cfg.CPULimit = c.Executor.Docker.CPULimit
	}
	for name, img := range c.Executor.Docker.Images {
		lang, _ := executor.Resolve(name)
		cfg.Images[lang.Class] = img
	}
	return cfg
}

// NewLogger builds the process logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
