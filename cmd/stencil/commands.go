package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/gookit/color"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminschreck/stencil-text/pkg/stencil"
	"github.com/benjaminschreck/stencil-text/pkg/stencil/data"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// commonFlags are shared by render and dump.
type commonFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	includes   stringList
	noChecks   bool
	noColor    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to an HCL configuration file.")
	fs.StringVar(&c.logLevel, "log-level", "", "Logging level: debug, info, warn, error or off.")
	fs.StringVar(&c.logFormat, "log-format", "", "Log output format: text or json.")
	fs.Var(&c.includes, "include", "Glob of templates made available to {{include}}. Repeatable.")
	fs.BoolVar(&c.noChecks, "no-checks", false, "Compile without cancellation checkpoints.")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable colored diagnostics.")
}

// config layers defaults, environment, the config file and explicit flags,
// in that order.
func (c *commonFlags) config(fs *flag.FlagSet) (*stencil.Config, error) {
	cfg := stencil.ConfigFromEnvironment()
	if c.configPath != "" {
		loaded, err := stencil.LoadConfigFile(c.configPath, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = strings.ToLower(c.logLevel)
		case "log-format":
			cfg.LogFormat = strings.ToLower(c.logFormat)
		case "no-checks":
			cfg.DisableCancellationChecks = c.noChecks
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFlags(fs *flag.FlagSet, args []string) (handled bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return true, nil
		}
		return false, &ExitError{Code: exitUsage, Message: err.Error()}
	}
	return false, nil
}

// setup configures logging and builds an engine holding the include templates.
func setup(errW io.Writer, c *commonFlags, cfg *stencil.Config) (*stencil.Engine, error) {
	if c.noColor {
		color.Enable = false
	}
	logger := stencil.NewLoggerWithFormat(errW, stencil.ParseLogLevel(cfg.LogLevel), cfg.LogFormat)
	stencil.SetLogger(logger)
	stencil.SetGlobalConfig(cfg)

	engine, err := stencil.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	for _, pattern := range c.includes {
		templates, err := engine.PrepareGlob(pattern)
		if err != nil {
			return nil, err
		}
		logger.WithFields(stencil.Fields{"pattern": pattern, "count": len(templates)}).Debug("Loaded include templates")
	}
	return engine, nil
}

func runRender(ctx context.Context, outW, errW io.Writer, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(errW)

	var common commonFlags
	common.register(fs)
	var dataFiles stringList
	fs.Var(&dataFiles, "data", "Data file (.json, .yaml, .yml or .hcl). Repeatable; later files win.")
	timeout := fs.Duration("timeout", 0, "Abort each render after this long. Overrides render_timeout.")
	workers := fs.Int("workers", 0, "Templates rendered at once. Defaults to the number of CPUs.")

	fs.Usage = func() {
		fmt.Fprint(errW, "Usage: stencil render [options] TEMPLATE...\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if handled, err := parseFlags(fs, args); handled || err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return &ExitError{Code: exitUsage, Message: "render requires at least one template"}
	}

	cfg, err := common.config(fs)
	if err != nil {
		return &ExitError{Code: exitUsage, Message: err.Error()}
	}
	if *timeout > 0 {
		cfg.RenderTimeout = *timeout
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	limit := cfg.Workers
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	engine, err := setup(errW, &common, cfg)
	if err != nil {
		return err
	}
	values, err := data.LoadFiles(dataFiles...)
	if err != nil {
		return err
	}

	templates := make([]*stencil.Template, 0, fs.NArg())
	for _, path := range fs.Args() {
		tmpl, err := engine.PrepareFile(path)
		if err != nil {
			return err
		}
		templates = append(templates, tmpl)
	}

	// The first failure cancels the renders still running.
	outputs := make([]string, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, tmpl := range templates {
		g.Go(func() error {
			rctx, cancel := renderContext(gctx, cfg)
			defer cancel()
			out, err := tmpl.Render(rctx, stencil.TemplateData(values))
			if err != nil {
				return fmt.Errorf("%s: %w", tmpl.Name(), err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if stencil.IsCancelled(err) {
			return &ExitError{Code: exitCancelled, Message: err.Error()}
		}
		return err
	}

	for _, out := range outputs {
		if _, err := io.WriteString(outW, out); err != nil {
			return err
		}
	}
	if len(templates) > 1 {
		fmt.Fprintln(errW, color.Green.Sprintf("rendered %d templates", len(templates)))
	}
	return nil
}

// renderContext derives the context of one render. The timeout applies per
// template, not to the whole command.
func renderContext(ctx context.Context, cfg *stencil.Config) (context.Context, context.CancelFunc) {
	if cfg.RenderTimeout > 0 {
		return context.WithTimeout(ctx, cfg.RenderTimeout)
	}
	return context.WithCancel(ctx)
}

func runDump(outW, errW io.Writer, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(errW)

	var common commonFlags
	common.register(fs)
	canonical := fs.Bool("canonical", false, "Omit injected checkpoints from the output.")
	outline := fs.Bool("outline", false, "Print the element tree instead of template source.")

	fs.Usage = func() {
		fmt.Fprint(errW, "Usage: stencil dump [options] TEMPLATE\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if handled, err := parseFlags(fs, args); handled || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return &ExitError{Code: exitUsage, Message: "dump requires exactly one template"}
	}

	cfg, err := common.config(fs)
	if err != nil {
		return &ExitError{Code: exitUsage, Message: err.Error()}
	}
	engine, err := setup(errW, &common, cfg)
	if err != nil {
		return err
	}
	tmpl, err := engine.PrepareFile(fs.Arg(0))
	if err != nil {
		return err
	}

	if *outline {
		_, err = io.WriteString(outW, tmpl.Outline())
	} else {
		_, err = io.WriteString(outW, tmpl.Dump(*canonical))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(errW, color.Cyan.Sprintf("%s: %d checkpoints", tmpl.Name(), tmpl.Checkpoints()))
	return nil
}
