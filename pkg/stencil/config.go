package stencil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config contains all configuration options for the Stencil engine
type Config struct {
	// CacheMaxSize is the maximum number of templates to cache. 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// LogFormat selects the log record encoding (text, json)
	LogFormat string
	// MaxRenderDepth controls the maximum depth of nested template includes
	MaxRenderDepth int
	// StrictMode makes references to undefined variables an error
	StrictMode bool
	// DisableCancellationChecks compiles templates without loop checkpoints.
	// Renders of such templates cannot be stopped through their context.
	DisableCancellationChecks bool
	// RenderTimeout bounds a single render started by the CLI. 0 means no limit.
	RenderTimeout time.Duration
	// Workers bounds concurrent renders in a batch. 0 means one per CPU.
	Workers int
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   100,
		CacheTTL:       0,
		LogLevel:       "info",
		LogFormat:      "text",
		MaxRenderDepth: 100,
		StrictMode:     false,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("STENCIL_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	if val := os.Getenv("STENCIL_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("STENCIL_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv("STENCIL_LOG_FORMAT"); val != "" {
		config.LogFormat = val
	}

	if val := os.Getenv("STENCIL_MAX_RENDER_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRenderDepth = depth
		}
	}

	if val := os.Getenv("STENCIL_STRICT_MODE"); val != "" {
		config.StrictMode = parseBool(val)
	}

	if val := os.Getenv("STENCIL_DISABLE_CANCELLATION_CHECKS"); val != "" {
		config.DisableCancellationChecks = parseBool(val)
	}

	if val := os.Getenv("STENCIL_RENDER_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.RenderTimeout = duration
		}
	}

	if val := os.Getenv("STENCIL_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Workers = n
		}
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()
	if overrides == nil {
		return defaults
	}

	config := *overrides
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.LogFormat == "" {
		config.LogFormat = defaults.LogFormat
	}
	if config.MaxRenderDepth == 0 {
		config.MaxRenderDepth = defaults.MaxRenderDepth
	}
	return &config
}

// hclConfigFile is the on-disk shape of a configuration file. Every attribute
// is optional; absent ones keep the value of the base configuration.
type hclConfigFile struct {
	CacheMaxSize              *int    `hcl:"cache_max_size,optional"`
	CacheTTL                  *string `hcl:"cache_ttl,optional"`
	LogLevel                  *string `hcl:"log_level,optional"`
	LogFormat                 *string `hcl:"log_format,optional"`
	MaxRenderDepth            *int    `hcl:"max_render_depth,optional"`
	StrictMode                *bool   `hcl:"strict_mode,optional"`
	DisableCancellationChecks *bool   `hcl:"disable_cancellation_checks,optional"`
	RenderTimeout             *string `hcl:"render_timeout,optional"`
	Workers                   *int    `hcl:"workers,optional"`
}

// LoadConfigFile reads an HCL configuration file and applies it on top of
// base. A nil base starts from DefaultConfig.
//
//	log_level      = "debug"
//	cache_ttl      = "10m"
//	render_timeout = "2s"
func LoadConfigFile(path string, base *Config) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decodeConfig(file, path, base)
}

// ParseConfig is LoadConfigFile for in-memory source. filename is used in
// diagnostics only.
func ParseConfig(src []byte, filename string, base *Config) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decodeConfig(file, filename, base)
}

func decodeConfig(file *hcl.File, filename string, base *Config) (*Config, error) {
	var raw hclConfigFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}

	config := DefaultConfig()
	if base != nil {
		c := *base
		config = &c
	}

	if raw.CacheMaxSize != nil {
		config.CacheMaxSize = *raw.CacheMaxSize
	}
	if raw.LogLevel != nil {
		config.LogLevel = *raw.LogLevel
	}
	if raw.LogFormat != nil {
		config.LogFormat = *raw.LogFormat
	}
	if raw.MaxRenderDepth != nil {
		config.MaxRenderDepth = *raw.MaxRenderDepth
	}
	if raw.StrictMode != nil {
		config.StrictMode = *raw.StrictMode
	}
	if raw.DisableCancellationChecks != nil {
		config.DisableCancellationChecks = *raw.DisableCancellationChecks
	}
	if raw.Workers != nil {
		config.Workers = *raw.Workers
	}
	for _, d := range []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"cache_ttl", raw.CacheTTL, &config.CacheTTL},
		{"render_timeout", raw.RenderTimeout, &config.RenderTimeout},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return nil, fmt.Errorf("invalid %s in %s: %w", d.name, filename, err)
		}
		*d.dst = v
	}
	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	verr := &ValidationError{}

	if c.CacheMaxSize < 0 {
		verr.add("CacheMaxSize", "cannot be negative")
	}
	if c.CacheTTL < 0 {
		verr.add("CacheTTL", "cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.LogLevel] {
		verr.add("LogLevel", "invalid log level: %s", c.LogLevel)
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		verr.add("LogFormat", "invalid log format: %s", c.LogFormat)
	}
	if c.MaxRenderDepth <= 0 {
		verr.add("MaxRenderDepth", "must be positive")
	}
	if c.RenderTimeout < 0 {
		verr.add("RenderTimeout", "cannot be negative")
	}
	if c.Workers < 0 {
		verr.add("Workers", "cannot be negative")
	}

	return verr.err()
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
