package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-md2doc/internal/config"
)

const envPrefix = "MD2DOC_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // MD2DOC_CONFIG: config file name or path
	Backend    string        // MD2DOC_BACKEND: rod or chromedp
	Style      string        // MD2DOC_STYLE: highlight style name
	Timeout    time.Duration // MD2DOC_TIMEOUT: per-conversion timeout
	BrowserBin string        // MD2DOC_BROWSER_BIN: Chrome binary
	OutputDir  string        // MD2DOC_OUTPUT_DIR: default output directory
	Workers    int           // MD2DOC_WORKERS: parallel workers
	LogLevel   string        // MD2DOC_LOG_LEVEL: log level
	RedisAddr  string        // MD2DOC_REDIS_ADDR: switches the server cache to redis
}

// knownEnvVars lists valid MD2DOC_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MD2DOC_CONFIG":      true,
	"MD2DOC_BACKEND":     true,
	"MD2DOC_STYLE":       true,
	"MD2DOC_TIMEOUT":     true,
	"MD2DOC_BROWSER_BIN": true,
	"MD2DOC_OUTPUT_DIR":  true,
	"MD2DOC_WORKERS":     true,
	"MD2DOC_LOG_LEVEL":   true,
	"MD2DOC_REDIS_ADDR":  true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed durations and counts are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("MD2DOC_CONFIG"),
		Backend:    getenv("MD2DOC_BACKEND"),
		Style:      getenv("MD2DOC_STYLE"),
		BrowserBin: getenv("MD2DOC_BROWSER_BIN"),
		OutputDir:  getenv("MD2DOC_OUTPUT_DIR"),
		LogLevel:   getenv("MD2DOC_LOG_LEVEL"),
		RedisAddr:  getenv("MD2DOC_REDIS_ADDR"),
	}

	if timeout := getenv("MD2DOC_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := getenv("MD2DOC_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars prints a warning for unrecognized MD2DOC_* variables.
func warnUnknownEnvVars(environ []string, w io.Writer) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment values on top of the loaded config.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Backend != "" {
		cfg.Render.Backend = env.Backend
	}
	if env.Style != "" {
		cfg.Render.Style = env.Style
	}
	if env.Timeout > 0 {
		cfg.Render.Timeout = env.Timeout.String()
	}
	if env.BrowserBin != "" {
		cfg.Render.BrowserBin = env.BrowserBin
	}
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.RedisAddr != "" {
		cfg.Server.Cache.Store = config.StoreRedis
		cfg.Server.Cache.RedisAddr = env.RedisAddr
	}
}

// loadConfig loads the config named by flag or MD2DOC_CONFIG, applies the
// environment overrides and warns about unknown variables.
func loadConfig(flagConfig string, env *Environment) (*config.Config, *envConfig, error) {
	envCfg := loadEnvConfig(env.Getenv)
	warnUnknownEnvVars(env.Environ(), env.Stderr)

	name := flagConfig
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	return cfg, envCfg, nil
}
