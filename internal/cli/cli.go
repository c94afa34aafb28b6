// Package cli implements the paperbanana command-line interface.
//
// This package provides commands for generating publication-quality diagrams
// from paper text, evaluating generated diagrams against human references,
// inspecting past runs, and serving the same capabilities over MCP. The CLI
// is built using cobra with structured logging via charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - generate: Run the iterative generation pipeline for a diagram or plot
//   - evaluate: Compare a generated diagram against a reference image
//   - runs: List past runs and their state
//   - setup: Check provider credentials and print remediation steps
//   - mcp: Serve generation and evaluation tools over MCP stdio
//
// # Logging
//
// Output is quiet by default (warnings only); --verbose (-v) enables
// debug-level logging. Loggers are passed through context.Context.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/llmsresearch/paperbanana/pkg/buildinfo"
	"github.com/llmsresearch/paperbanana/pkg/cache"
	"github.com/llmsresearch/paperbanana/pkg/config"
	"github.com/llmsresearch/paperbanana/pkg/judge"
	"github.com/llmsresearch/paperbanana/pkg/pipeline"
	"github.com/llmsresearch/paperbanana/pkg/providers"
	"github.com/llmsresearch/paperbanana/pkg/runstore"
)

// appName is the application name used for directories and display.
const appName = "paperbanana"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogWarn  = log.WarnLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configFile overrides the default settings lookup when set via --config.
	configFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "PaperBanana turns paper text into publication-quality diagrams",
		Long:         `PaperBanana orchestrates a vision-language model and an image generator to draft, critique, and iteratively refine scientific diagrams and statistical plots from method text or raw data.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to a settings YAML file")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.evaluateCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.setupCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadSettings resolves settings from defaults, the optional config file,
// and the environment.
func (c *CLI) loadSettings() (*config.Settings, error) {
	if c.configFile != "" {
		s, err := config.LoadFile(c.configFile)
		if err != nil {
			return nil, err
		}
		s.ApplyEnv()
		return s, nil
	}
	return config.FromEnvironment(), nil
}

// newRunner wires providers and the artifact store into a pipeline runner.
func (c *CLI) newRunner(settings *config.Settings, noCache bool) (*pipeline.Runner, error) {
	vlm, err := providers.CreateVLM(settings)
	if err != nil {
		return nil, err
	}
	imageGen, err := providers.CreateImageGen(settings)
	if err != nil {
		return nil, err
	}
	store, err := runstore.NewStore(settings.OutputDir)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(vlm, imageGen, store, newCache(noCache), c.Logger), nil
}

// newJudge wires the configured VLM into an evaluation judge.
func (c *CLI) newJudge(settings *config.Settings) (*judge.Judge, error) {
	vlm, err := providers.CreateVLM(settings)
	if err != nil {
		return nil, err
	}
	return judge.New(vlm, c.Logger), nil
}

func newCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/paperbanana/).
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
