package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-cli/ui"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/bootstrap"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/similarity"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

func newIndexCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the fuzzy question index",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "match <text>",
		Short: "Show the closest stored question and its score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			text := strings.Join(args, " ")
			match, err := app.Index.Match(ctx, text)
			if errors.Is(err, similarity.ErrEmptyCorpus) {
				ui.Warning("No answered questions are indexed")
				return nil
			}
			if err != nil {
				return err
			}
			if match == nil {
				ui.Warning("Nothing to match in %q", text)
				return nil
			}

			threshold := app.Config.Matching.FuzzyThreshold
			ui.Section("Best match")
			ui.KeyValue("Question", match.Question)
			ui.KeyValue("Score", fmt.Sprintf("%.3f (threshold %.2f)", match.Score, threshold))
			ui.KeyValue("Verified", fmt.Sprint(match.Verified))
			ui.KeyValue("Answer", ui.Truncate(match.Answer, 80))
			if match.Score >= threshold {
				ui.Success("Above threshold")
			} else {
				ui.Info("Below threshold")
			}
			return nil
		},
	})
	return cmd
}

func newLimitsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show or reset daily generation limits",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <user>",
		Short: "Show the remaining requests of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			return showLimits(ctx, app, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <user>",
		Short: "Reset today's counter of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Limiter.Reset(ctx, args[0]); err != nil {
				return err
			}
			ui.Success("Reset the daily limit of %s", args[0])
			return nil
		},
	})
	return cmd
}

func showLimits(ctx context.Context, app *bootstrap.App, user string) error {
	remaining, err := app.Limiter.Remaining(ctx, user)
	if err != nil {
		return err
	}
	ui.Info("%s has %d of %d requests left today", user, remaining, app.Limiter.DailyLimit())
	return nil
}

func newHistoryCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <user>",
		Short: "Show recent chat turns of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			return showHistory(ctx, app, args[0], limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of turns")
	return cmd
}

func showHistory(ctx context.Context, app *bootstrap.App, user string, limit int) error {
	entries, err := app.Repos.ChatLogs.ListByUser(ctx, user, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.Info("No history for %s", user)
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Stage,
			ui.Truncate(entry.UserMessage, 40),
			ui.Truncate(entry.BotResponse, 50),
		})
	}
	ui.Table([]string{"TIME", "STAGE", "MESSAGE", "REPLY"}, rows)
	return nil
}

func newMigrateCmd(e *env) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := bootstrap.New(ctx, e.cfg, bootstrap.Options{
				Logger:         e.logger,
				Generator:      e.opts.Generator,
				SkipMigrations: true,
			})
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer app.Close()

			mm := storage.NewMigrationManager(app.DB, e.cfg.Database.Driver)
			if statusOnly {
				status, err := mm.Check(ctx)
				if err != nil {
					return err
				}
				for _, name := range status.Applied {
					ui.Message("  applied  %s", name)
				}
				for _, name := range status.Pending {
					ui.Message("  pending  %s", name)
				}
				if status.UpToDate() {
					ui.Success("Schema is up to date")
				}
				return nil
			}

			applied, err := mm.Migrate(ctx)
			if err != nil {
				return err
			}
			if applied == 0 {
				ui.Success("Schema is up to date")
			} else {
				ui.Success("Applied %d migrations", applied)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "list migrations without applying them")
	return cmd
}
