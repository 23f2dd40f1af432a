package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-cli/ui"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/knowledge"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/textnorm"
)

func newKBCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Curate the knowledge base",
	}
	cmd.AddCommand(
		newKBListCmd(e),
		newKBAddCmd(e),
		newKBVerifyCmd(e),
		newKBDeleteCmd(e),
		newKBImportCmd(e),
		newKBExportCmd(e),
		newKBWatchCmd(e),
		newKBStatsCmd(e),
	)
	return cmd
}

// questionKey normalizes a question argument into a knowledge key.
func questionKey(args []string) (string, error) {
	key := textnorm.MatchingKey(strings.Join(args, " "))
	if key == "" {
		return "", errors.New("question is empty after normalization")
	}
	return key, nil
}

func newKBListCmd(e *env) *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge entries",
		Long:  "List entries by status: all, pending (no answer yet), unverified (learned) or verified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.Knowledge.List(ctx, storage.KnowledgeFilter{
				Status: storage.ParseKnowledgeStatus(status),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				ui.Info("No entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.NormalizedQuestion,
					entryStatus(&entry),
					ui.Truncate(entry.Answer, 50),
					entry.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			ui.Table([]string{"QUESTION", "STATUS", "ANSWER", "UPDATED"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "all", "filter: all, pending, unverified or verified")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}

func entryStatus(entry *storage.KnowledgeEntry) string {
	switch {
	case entry.IsPlaceholder():
		return string(storage.KnowledgeStatusPending)
	case entry.Verified:
		return string(storage.KnowledgeStatusVerified)
	default:
		return string(storage.KnowledgeStatusUnverified)
	}
}

func newKBAddCmd(e *env) *cobra.Command {
	var (
		answer     string
		unverified bool
	)

	cmd := &cobra.Command{
		Use:   "add <question>",
		Short: "Add or replace a curated answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if answer == "" {
				return errors.New("--answer is required")
			}
			key, err := questionKey(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.Knowledge.Save(ctx, key, strings.Join(args, " "), answer, !unverified); err != nil {
				return err
			}
			ui.Success("Saved %q", key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "answer text (required)")
	cmd.Flags().BoolVar(&unverified, "unverified", false, "store the answer as not yet curated")
	return cmd
}

func newKBVerifyCmd(e *env) *cobra.Command {
	var answer string

	cmd := &cobra.Command{
		Use:   "verify <question>",
		Short: "Mark an entry as curated, optionally answering it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := questionKey(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			_, err = app.Knowledge.Verify(ctx, key, answer)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				return fmt.Errorf("no entry for %q", key)
			case errors.Is(err, knowledge.ErrNoAnswer):
				return fmt.Errorf("%q has no answer yet, pass --answer", key)
			case err != nil:
				return err
			}
			ui.Success("Verified %q", key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "replace the stored answer")
	return cmd
}

func newKBDeleteCmd(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <question>",
		Short: "Delete an entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := questionKey(args)
			if err != nil {
				return err
			}

			if !yes {
				ok, err := ui.NewPrompter(cmd.InOrStdin()).Confirm(fmt.Sprintf("Delete %q?", key), false)
				if err != nil {
					return err
				}
				if !ok {
					ui.Info("Cancelled")
					return nil
				}
			}

			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Knowledge.Delete(ctx, key); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("no entry for %q", key)
				}
				return err
			}
			ui.Success("Deleted %q", key)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newKBImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Import a seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			seed, err := knowledge.LoadSeedFile(args[0])
			if err != nil {
				return err
			}

			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			bar := ui.NewProgressBar(int64(len(seed.Entries)), "Importing")
			result, err := app.Knowledge.Import(ctx, seed, func(done, total int) {
				bar.Set(int64(done))
			})
			bar.Finish()
			if err != nil {
				return err
			}

			printImportResult(result)
			return nil
		},
	}
}

func printImportResult(result *knowledge.ImportResult) {
	ui.Success("Imported %d, unchanged %d, skipped %d in %s",
		result.Imported, result.Unchanged, result.Skipped, result.Duration.Round(time.Millisecond))
	for _, msg := range result.Errors {
		ui.Warning("%s", msg)
	}
}

func newKBExportCmd(e *env) *cobra.Command {
	var (
		output       string
		verifiedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export answered entries as a seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			seed, err := app.Knowledge.Export(ctx, verifiedOnly)
			if err != nil {
				return err
			}
			if err := knowledge.WriteSeedFile(output, seed); err != nil {
				return err
			}
			ui.Success("Exported %d entries to %s", len(seed.Entries), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "knowledge.yaml", "destination file")
	cmd.Flags().BoolVar(&verifiedOnly, "verified-only", false, "leave learned answers out")
	return cmd
}

func newKBWatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [seed.yaml]",
		Short: "Re-import a seed file whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := e.cfg.Knowledge.SeedPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no seed file given and knowledge.seed_path is unset")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Knowledge.ImportFile(ctx, path, nil)
			if err != nil {
				return err
			}
			printImportResult(result)

			watcher, err := knowledge.NewSeedWatcher(app.Knowledge, path, e.logger)
			if err != nil {
				return err
			}
			defer watcher.Stop()
			watcher.OnReload = printImportResult

			ui.Info("Watching %s, press Ctrl+C to stop", path)
			return watcher.Run(ctx)
		},
	}
}

func newKBStatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count entries by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Knowledge.Stats(ctx)
			if err != nil {
				return err
			}
			ui.Section("Knowledge base")
			ui.KeyValue("Total", fmt.Sprint(stats.Total))
			ui.KeyValue("Answered", fmt.Sprint(stats.Answered))
			ui.KeyValue("Pending", fmt.Sprint(stats.Pending))
			ui.KeyValue("Verified", fmt.Sprint(stats.Verified))
			return nil
		},
	}
}
