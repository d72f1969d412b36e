package stencil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/benjaminschreck/stencil-text/pkg/stencil/expr"
)

// Engine compiles templates against one configuration and function registry
// and keeps them addressable by name for {{include}}.
type Engine struct {
	config   *Config
	cache    *TemplateCache
	registry *expr.Registry

	mu        sync.RWMutex
	templates map[string]*Template
}

// New creates an engine with the global configuration.
func New() *Engine {
	engine, err := NewWithConfig(GetGlobalConfig())
	if err != nil {
		// The global configuration comes from defaults and environment
		// overrides that may be invalid; fall back to pure defaults.
		Warn("Invalid global configuration, using defaults: %v", err)
		engine, _ = NewWithConfig(DefaultConfig())
	}
	return engine
}

// NewWithConfig creates an engine with config. Zero fields take their defaults.
func NewWithConfig(config *Config) (*Engine, error) {
	cfg := NewConfigWithDefaults(config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config: cfg,
		cache: NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: cfg.CacheMaxSize,
			TTL:     cfg.CacheTTL,
		}),
		registry:  expr.NewRegistry(),
		templates: make(map[string]*Template),
	}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// RegisterFunction makes fn callable from every template of this engine,
// including ones already compiled.
func (e *Engine) RegisterFunction(fn expr.Function) error {
	return e.registry.Register(fn)
}

// Parse compiles content under name and registers it for inclusion. Compiling
// the same name and content twice returns the cached template.
func (e *Engine) Parse(name, content string) (*Template, error) {
	if name == "" {
		return nil, fmt.Errorf("template name cannot be empty")
	}
	tmpl, err := e.cache.GetOrCompile(cacheKey(name, content), func() (*Template, error) {
		return compile(name, content, e.config, e.registry, e)
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.templates[name] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

// PrepareFile compiles the file at path under its base name.
func (e *Engine) PrepareFile(path string) (*Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return e.Parse(filepath.Base(path), string(content))
}

// PrepareGlob compiles every file matching pattern, in lexical order.
func (e *Engine) PrepareGlob(pattern string) ([]*Template, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid template pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)
	templates := make([]*Template, 0, len(paths))
	for _, path := range paths {
		tmpl, err := e.PrepareFile(path)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Lookup returns the template registered under name.
func (e *Engine) Lookup(name string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tmpl, ok := e.templates[name]
	return tmpl, ok
}

// Names returns the registered template names, sorted.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cacheKey(name, content string) string {
	sum := sha256.Sum256([]byte(content))
	return strings.Join([]string{name, hex.EncodeToString(sum[:])}, "@")
}
