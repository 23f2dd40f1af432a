// Package commands implements the faq-cli command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-cli/ui"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/bootstrap"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
)

// Options adjusts how commands build the application.
type Options struct {
	// Generator overrides the configured generation provider.
	Generator generation.Client
	// Config overrides loading configuration from --config.
	Config *config.Config
}

// env is the state shared by every command of one invocation.
type env struct {
	opts    Options
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(opts Options) *cobra.Command {
	e := &env{opts: opts}

	root := &cobra.Command{
		Use:   "faq-cli",
		Short: "FAQ Engine CLI for chatting and knowledge curation",
		Long: `faq-cli talks to the FAQ assistant and manages its knowledge base.

Use this tool to:
- Chat with the assistant in a terminal
- Curate learned questions (list, answer, verify, delete)
- Import and export seed files
- Inspect fuzzy matches, daily limits and chat history`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.Init(e.noColor, e.verbose)
			return e.load()
		},
	}

	root.PersistentFlags().StringVarP(&e.cfgFile, "config", "c", "", "config file path (default: env vars only)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVar(&e.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newChatCmd(e),
		newAskCmd(e),
		newKBCmd(e),
		newIndexCmd(e),
		newLimitsCmd(e),
		newHistoryCmd(e),
		newMigrateCmd(e),
	)
	return root
}

// Execute runs the CLI with default options.
func Execute() error {
	return NewRootCmd(Options{}).Execute()
}

func (e *env) load() error {
	if e.opts.Config != nil {
		e.cfg = e.opts.Config
	} else {
		cfg, err := config.Load(e.cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		e.cfg = cfg
	}

	level := "warn"
	if e.verbose {
		level = "debug"
	}
	e.logger = observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      ui.ErrWriter(),
		ServiceName: "faq-cli",
	})
	return nil
}

// open builds the application. Callers must Close it.
func (e *env) open(ctx context.Context) (*bootstrap.App, error) {
	app, err := bootstrap.New(ctx, e.cfg, bootstrap.Options{
		Logger:    e.logger,
		Generator: e.opts.Generator,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}
