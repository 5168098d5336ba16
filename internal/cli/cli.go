// Package cli implements the flowsketch command-line interface.
//
// # Commands
//
//   - chat: interactive shell that keeps a conversation and a current diagram
//   - generate, fix: one-shot model calls
//   - clean, recolor, colors: local source transformations, no model involved
//   - render: export to SVG, PNG or PDF
//   - gallery, serve, cache, config, completion
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// reports inference, render and cache events through observability hooks.
// The logger is attached to the command context by the root command.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowsketch/pkg/buildinfo"
	"github.com/matzehuels/flowsketch/pkg/cache"
	"github.com/matzehuels/flowsketch/pkg/config"
	"github.com/matzehuels/flowsketch/pkg/diagram"
	"github.com/matzehuels/flowsketch/pkg/env"
	"github.com/matzehuels/flowsketch/pkg/gateway"
	"github.com/matzehuels/flowsketch/pkg/llm"
	"github.com/matzehuels/flowsketch/pkg/pipeline"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "flowsketch"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is resolved by the root command before any subcommand runs.
	Config config.Config

	flags globalFlags
}

// globalFlags are persistent flags that override configuration.
type globalFlags struct {
	configPath string
	provider   string
	model      string
	locale     string
	noCache    bool
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "flowsketch turns descriptions and sketches into diagrams",
		Long: `flowsketch is a diagramming assistant. Describe a process, attach a whiteboard photo
or a PDF, and a language model answers with Mermaid source that is cleaned, recoloured,
rendered and exported to SVG, PNG or PDF.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/flowsketch/config.toml)")
	pf.StringVar(&c.flags.provider, "provider", "", "model provider: gemini, anthropic, bedrock")
	pf.StringVar(&c.flags.model, "model", "", "model name (default depends on provider)")
	pf.StringVar(&c.flags.locale, "locale", "", "language of fallback messages, e.g. de or fr-CA")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the render cache")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "log provider, render and cache activity")

	root.AddCommand(c.chatCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.fixCommand())
	root.AddCommand(c.cleanCommand())
	root.AddCommand(c.recolorCommand())
	root.AddCommand(c.colorsCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.galleryCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup resolves configuration and attaches the logger to the command context.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.flags.verbose {
		c.enableVerbose()
	}
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return err
	}
	c.applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

func (c *CLI) applyFlags(cfg *config.Config) {
	if c.flags.provider != "" && c.flags.provider != cfg.Provider.Name {
		// A key read for the previous provider belongs to that provider.
		cfg.Provider.Name = c.flags.provider
		cfg.Provider.APIKey = ""
		cfg.ResolveAPIKey(os.LookupEnv)
	}
	if c.flags.model != "" {
		cfg.Provider.Model = c.flags.model
	}
	if c.flags.locale != "" {
		cfg.UI.Locale = c.flags.locale
	}
	if c.flags.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
}

// =============================================================================
// Factories
// =============================================================================

// newGateway creates an inference gateway for the configured provider.
func (c *CLI) newGateway(ctx context.Context) (*gateway.Gateway, error) {
	provider, err := llm.NewProvider(ctx, c.Config.LLM())
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("using provider", "provider", llm.String(provider))
	gw := gateway.New(provider, c.Logger)
	gw.Model = c.Config.Provider.Model
	return gw, nil
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	store, keyer, err := c.newCache(ctx)
	if err != nil {
		return nil, err
	}
	renderer := render.NewMulti(render.NewMermaid(c.Config.Mermaid()), render.NewGraphviz())
	return pipeline.NewRunner(store, keyer, renderer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context) (cache.Cache, cache.Keyer, error) {
	cc := c.Config.Cache
	switch cc.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil, nil
	case config.CacheRedis:
		store, err := cache.NewRedisCache(ctx, c.Config.Redis())
		if err != nil {
			return nil, nil, err
		}
		return store, cache.NewScopedKeyer(nil, cc.Prefix), nil
	}

	dir, err := c.fileCacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil, nil
	}
	store, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

// newPatcher creates the directive patcher.
func (c *CLI) newPatcher() *diagram.Patcher {
	p := diagram.NewPatcher(c.Logger)
	p.SpliceMalformed = c.Config.Recolor.SpliceMalformed
	return p
}

// newEnv creates the local host environment.
func (c *CLI) newEnv(outputDir string) *env.Local {
	if outputDir == "" {
		outputDir = c.Config.Render.OutputDir
	}
	return env.NewLocal(outputDir, c.Config.UI.Theme)
}

// pipelineOptions returns render options for the host. An explicit render
// theme wins over the host's colour scheme.
func (c *CLI) pipelineOptions(host env.Environment) pipeline.Options {
	theme := c.Config.Render.Theme
	if theme == "" {
		theme = host.CurrentTheme().RenderTheme()
	}
	return pipeline.Options{
		Theme:      theme,
		Background: c.Config.Render.Background,
		Scale:      c.Config.Render.Scale,
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/flowsketch/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
