// Package config loads and validates the YAML configuration shared by the
// CLI and the static-site server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDirName is the directory searched under the user config dir.
const appDirName = "go-md2doc"

// Field length limits.
const (
	MaxNameLength     = 100
	MaxPathLength     = 4096
	MaxStyleLength    = 4096 // style name or path
	MaxAddrLength     = 255
	MaxIDLength       = 64
	MaxSnippetLength  = 8192
	MaxVersionLength  = 32
	MaxDurationLength = 32
)

// Render backends.
const (
	BackendRod      = "rod"
	BackendChromedp = "chromedp"
)

// Cache stores.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds all configuration for conversion and serving.
type Config struct {
	Output OutputConfig `yaml:"output"`
	Render RenderConfig `yaml:"render"`
	PDF    PDFConfig    `yaml:"pdf"`
	Assets AssetsConfig `yaml:"assets"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// OutputConfig defines where converted files are written.
type OutputConfig struct {
	Dir  string `yaml:"dir"`  // empty = current directory
	Name string `yaml:"name"` // base filename without extension
}

// RenderConfig defines the offscreen container and browser backend.
type RenderConfig struct {
	Backend    string  `yaml:"backend"` // "rod" or "chromedp"
	Width      int     `yaml:"width"`   // CSS pixels
	Padding    int     `yaml:"padding"` // CSS pixels
	Scale      float64 `yaml:"scale"`   // device scale factor
	Style      string  `yaml:"style"`   // highlight style for code blocks
	Timeout    string  `yaml:"timeout"` // Go duration, e.g. "30s"
	BrowserBin string  `yaml:"browserBin"`
	NoSandbox  bool    `yaml:"noSandbox"`
}

// TimeoutDuration parses Timeout. Callers should run Validate first.
func (r RenderConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// PDFConfig defines page slicing.
type PDFConfig struct {
	PageHeightMM float64 `yaml:"pageHeightMM"`
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded styles only
}

// LogConfig defines logger output and rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console" or "json"
	File       string `yaml:"file"`   // empty = stderr only
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig defines the static-site server.
type ServerConfig struct {
	Addr      string          `yaml:"addr"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Cache     CacheConfig     `yaml:"cache"`
}

// AnalyticsConfig defines the snippet injected into HTML responses.
// When Snippet is empty it is built from the tracker IDs.
type AnalyticsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Snippet     string `yaml:"snippet"`
	GoogleTagID string `yaml:"googleTagID"`
	ClarityID   string `yaml:"clarityID"`
}

// CacheConfig defines the offline response cache.
type CacheConfig struct {
	Store          string `yaml:"store"` // "memory" or "redis"
	RedisAddr      string `yaml:"redisAddr"`
	RedisDB        int    `yaml:"redisDB"`
	StaticVersion  string `yaml:"staticVersion"`
	DynamicVersion string `yaml:"dynamicVersion"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Name: "markdown-document"},
		Render: RenderConfig{
			Backend: BackendRod,
			Width:   800,
			Padding: 40,
			Scale:   2,
			Style:   "github",
			Timeout: "30s",
		},
		PDF: PDFConfig{PageHeightMM: 295},
		Log: LogConfig{
			Level:      "info",
			Format:     LogFormatConsole,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Cache: CacheConfig{
				Store:          StoreMemory,
				StaticVersion:  "v1",
				DynamicVersion: "v1",
			},
		},
	}
}

// Validate checks enums, ranges and field lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"output.dir", c.Output.Dir, MaxPathLength},
		{"output.name", c.Output.Name, MaxNameLength},
		{"render.style", c.Render.Style, MaxStyleLength},
		{"render.timeout", c.Render.Timeout, MaxDurationLength},
		{"render.browserBin", c.Render.BrowserBin, MaxPathLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
		{"log.file", c.Log.File, MaxPathLength},
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"server.analytics.snippet", c.Server.Analytics.Snippet, MaxSnippetLength},
		{"server.analytics.googleTagID", c.Server.Analytics.GoogleTagID, MaxIDLength},
		{"server.analytics.clarityID", c.Server.Analytics.ClarityID, MaxIDLength},
		{"server.cache.redisAddr", c.Server.Cache.RedisAddr, MaxAddrLength},
		{"server.cache.staticVersion", c.Server.Cache.StaticVersion, MaxVersionLength},
		{"server.cache.dynamicVersion", c.Server.Cache.DynamicVersion, MaxVersionLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if c.Output.Name == "" || strings.ContainsAny(c.Output.Name, "/\\\x00") {
		return invalid("output.name", c.Output.Name, "must be a plain file name")
	}

	if err := c.Render.validate(); err != nil {
		return err
	}

	if c.PDF.PageHeightMM < 50 || c.PDF.PageHeightMM > 1000 {
		return invalid("pdf.pageHeightMM", c.PDF.PageHeightMM, "must be between 50 and 1000")
	}

	if err := c.Log.validate(); err != nil {
		return err
	}

	return c.Server.validate()
}

func (r RenderConfig) validate() error {
	switch r.Backend {
	case BackendRod, BackendChromedp:
	default:
		return invalid("render.backend", r.Backend, "must be rod or chromedp")
	}
	if r.Width < 100 || r.Width > 4000 {
		return invalid("render.width", r.Width, "must be between 100 and 4000")
	}
	if r.Padding < 0 || r.Padding > 400 {
		return invalid("render.padding", r.Padding, "must be between 0 and 400")
	}
	if r.Scale < 0.5 || r.Scale > 4 {
		return invalid("render.scale", r.Scale, "must be between 0.5 and 4")
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil || d <= 0 {
		return invalid("render.timeout", r.Timeout, "must be a positive duration such as 30s")
	}
	return nil
}

func (l LogConfig) validate() error {
	if _, err := zerolog.ParseLevel(l.Level); err != nil || l.Level == "" {
		return invalid("log.level", l.Level, "must be trace, debug, info, warn, error, fatal, panic or disabled")
	}
	switch l.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		return invalid("log.format", l.Format, "must be console or json")
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return invalid("log", fmt.Sprintf("%d/%d/%d", l.MaxSizeMB, l.MaxBackups, l.MaxAgeDays), "rotation limits cannot be negative")
	}
	return nil
}

func (s ServerConfig) validate() error {
	if s.Addr == "" {
		return invalid("server.addr", s.Addr, "cannot be empty")
	}
	a := s.Analytics
	if a.Enabled && a.Snippet == "" && a.GoogleTagID == "" && a.ClarityID == "" {
		return invalid("server.analytics", "", "snippet or a tracker id is required when enabled")
	}
	switch s.Cache.Store {
	case StoreMemory:
	case StoreRedis:
		if s.Cache.RedisAddr == "" {
			return invalid("server.cache.redisAddr", "", "required when store is redis")
		}
	default:
		return invalid("server.cache.store", s.Cache.Store, "must be memory or redis")
	}
	if s.Cache.RedisDB < 0 {
		return invalid("server.cache.redisDB", s.Cache.RedisDB, "cannot be negative")
	}
	if s.Cache.StaticVersion == "" || s.Cache.DynamicVersion == "" {
		return invalid("server.cache", "", "staticVersion and dynamicVersion are required")
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return fmt.Errorf("%w: %s=%v: %s", ErrInvalidValue, field, value, reason)
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values missing from the file keep their defaults.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !strings.ContainsAny(nameOrPath, "/\\") {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, user config dir/go-md2doc/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDirName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
