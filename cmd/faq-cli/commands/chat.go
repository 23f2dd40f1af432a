package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-cli/ui"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/assistant"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/bootstrap"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/formatter"
)

const defaultCLIUser = "cli"

type chatOptions struct {
	user    string
	style   string
	numbers bool
}

func (o *chatOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.user, "user", "u", defaultCLIUser, "user the daily limit and history belong to")
	cmd.Flags().StringVar(&o.style, "style", "simple", "answer layout: box or simple")
	cmd.Flags().BoolVar(&o.numbers, "line-numbers", true, "number code lines")
}

func (o *chatOptions) validate() error {
	if o.style != "box" && o.style != "simple" {
		return fmt.Errorf("invalid --style %q: want box or simple", o.style)
	}
	return nil
}

func newChatCmd(e *env) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant interactively",
		Long: `Start an interactive session. Type a message and press Enter.

Commands inside the session:
  /limits   show the remaining generation requests
  /history  show recent turns
  /quit     leave the session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Start(ctx); err != nil {
				return err
			}
			return runChat(ctx, app, cmd.InOrStdin(), opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runChat(ctx context.Context, app *bootstrap.App, in io.Reader, opts chatOptions) error {
	ui.Section("FAQ Assistant")
	ui.Info("Chatting as %q. Type /quit to leave.", opts.user)
	ui.Newline()

	prompter := ui.NewPrompter(in)
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := prompter.ReadLine("you ❯ ")
		if errors.Is(err, io.EOF) {
			ui.Newline()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		switch strings.ToLower(line) {
		case "/quit", "/exit":
			ui.Info("Bye!")
			return nil
		case "/limits":
			if err := showLimits(ctx, app, opts.user); err != nil {
				ui.Error("%v", err)
			}
			continue
		case "/history":
			if err := showHistory(ctx, app, opts.user, 10); err != nil {
				ui.Error("%v", err)
			}
			continue
		}

		if err := respond(ctx, app.Engine, opts, line); err != nil {
			ui.Error("%v", err)
		}
	}
}

// respond runs one turn and prints the rendered reply.
func respond(ctx context.Context, engine *assistant.Engine, opts chatOptions, message string) error {
	spin := ui.NewSpinner("Thinking...")
	spin.Start()
	reply, err := engine.Respond(ctx, opts.user, message)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("respond: %w", err)
	}

	ui.Bot(render(reply, opts))
	ui.Debug("stage=%s remaining=%d", reply.Stage, reply.Remaining)
	return nil
}

// render lays out a reply for the terminal.
func render(reply *assistant.Reply, opts chatOptions) string {
	switch reply.Stage {
	case assistant.StageGenerated, assistant.StageExact, assistant.StageFuzzy:
	default:
		return reply.Text
	}

	if reply.IsCode && reply.Language != "" {
		return formatter.Code(reply.Text, reply.Language, opts.numbers)
	}
	return formatter.Text(reply.Text, "Answer", opts.style)
}

func newAskCmd(e *env) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Start(ctx); err != nil {
				return err
			}
			return respond(ctx, app.Engine, opts, strings.Join(args, " "))
		},
	}
	opts.bind(cmd)
	return cmd
}
